package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"tailscale.com/tsnet"

	"github.com/claude/vcday/internal/web"
)

func serveCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the session viewer over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "bind host (overrides config)"},
			&cli.IntFlag{Name: "port", Usage: "bind port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			cfg, st, client, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := web.New(client, log)

			// The tailnet listener always binds :80 on the tailscale
			// hostname; explicit bind flags would be silently ignored.
			if cfg.Tailscale.Enabled && (c.IsSet("host") || c.IsSet("port")) {
				return cli.Exit("--host/--port do not apply when tailscale.enabled is set; disable tailscale or drop the flags", 1)
			}

			// Listen on the tailnet or a plain local socket.
			var listener net.Listener
			if cfg.Tailscale.Enabled {
				tsServer := &tsnet.Server{
					Hostname: cfg.Tailscale.Hostname,
					Dir:      cfg.Tailscale.StateDir,
				}
				if err := tsServer.Start(); err != nil {
					return fmt.Errorf("tsnet start: %w", err)
				}
				defer tsServer.Close()

				listener, err = tsServer.Listen("tcp", ":80")
				if err != nil {
					return fmt.Errorf("tsnet listen: %w", err)
				}
				log.Info("viewer starting on tailnet", "hostname", cfg.Tailscale.Hostname)
			} else {
				host := cfg.Web.Host
				if c.IsSet("host") {
					host = c.String("host")
				}
				port := cfg.Web.Port
				if c.IsSet("port") {
					port = c.Int("port")
				}
				addr := fmt.Sprintf("%s:%d", host, port)
				listener, err = net.Listen("tcp", addr)
				if err != nil {
					return fmt.Errorf("listen %s: %w", addr, err)
				}
				log.Info("viewer starting", "url", "http://"+addr+"/sessions")
			}

			httpSrv := &http.Server{Handler: srv}

			errCh := make(chan error, 1)
			go func() {
				if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-quit:
				log.Info("shutting down", "signal", sig)
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		},
	}
}

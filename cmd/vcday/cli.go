package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/claude/vcday/internal/config"
	"github.com/claude/vcday/internal/mcp"
	"github.com/claude/vcday/internal/store"
	"github.com/claude/vcday/internal/vc"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(log *slog.Logger) *cli.App {
	return &cli.App{
		Name:    "vcday",
		Usage:   "Visual Coaching daily session client",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: config.DefaultPath(),
				Usage: "path to config file",
			},
		},
		Commands: []*cli.Command{
			loginCmd(log),
			logoutCmd(log),
			statusCmd(log),
			prefsCmd(log),
			sessionsCmd(log),
			showCmd(log),
			htmlCmd(log),
			serveCmd(log),
			mcpCmd(log),
		},
	}
}

// setup loads config, opens the session store, and builds the client.
// The caller owns closing the store.
func setup(c *cli.Context, log *slog.Logger) (*config.Config, *store.Store, *vc.Client, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.Open(cfg.State.Dir, log)
	if err != nil {
		return nil, nil, nil, err
	}
	client := vc.New(cfg.API.BaseURL, cfg.API.UserAgent, cfg.API.Timeout(), st, log)
	return cfg, st, client, nil
}

func expiredExit() error {
	return cli.Exit("session expired — run `vcday login` first", 1)
}

func loginCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and store the session cookie",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true, Usage: "Account email"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, EnvVars: []string{"VCDAY_PASSWORD"}, Usage: "Account password"},
		},
		Action: func(c *cli.Context) error {
			if c.String("password") == "" {
				return cli.Exit("password required (use --password or VCDAY_PASSWORD)", 1)
			}

			_, st, client, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := client.Login(c.Context, c.String("email"), c.String("password")); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			fmt.Println("logged in")
			return nil
		},
	}
}

func logoutCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Discard the stored session cookie",
		Action: func(c *cli.Context) error {
			_, st, _, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ClearCookie(); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func statusCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show login state and stored preferences",
		Action: func(c *cli.Context) error {
			_, st, _, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if st.LoggedIn() {
				fmt.Println("logged in")
			} else {
				fmt.Println("logged out")
			}
			if v := st.Company(); v != "" {
				fmt.Printf("company:       %s\n", v)
			}
			if v := st.Units(); v != "" {
				fmt.Printf("units:         %s\n", v)
			}
			fmt.Printf("notifications: %v\n", st.Notifications())
			return nil
		},
	}
}

func prefsCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "prefs",
		Usage: "Update stored preferences",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "company", Usage: "Displayed company/club name"},
			&cli.StringFlag{Name: "units", Usage: "Preferred units (metric|imperial)"},
			&cli.BoolFlag{Name: "notifications", Usage: "Enable or disable notifications"},
		},
		Action: func(c *cli.Context) error {
			_, st, _, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if !c.IsSet("company") && !c.IsSet("units") && !c.IsSet("notifications") {
				return cli.Exit("nothing to update; see vcday prefs --help", 1)
			}
			if c.IsSet("company") {
				if err := st.SetCompany(c.String("company")); err != nil {
					return err
				}
			}
			if c.IsSet("units") {
				if err := st.SetUnits(c.String("units")); err != nil {
					return err
				}
			}
			if c.IsSet("notifications") {
				if err := st.SetNotifications(c.Bool("notifications")); err != nil {
					return err
				}
			}
			fmt.Println("preferences updated")
			return nil
		},
	}
}

func sessionsCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "List scheduled sessions for a date",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Aliases: []string{"d"}, Usage: "Date (YYYY-MM-DD), defaults to today"},
			&cli.BoolFlag{Name: "json", Usage: "Emit JSON instead of text"},
		},
		Action: func(c *cli.Context) error {
			date := time.Now()
			if ds := c.String("date"); ds != "" {
				d, err := time.Parse(vc.DateFormat, ds)
				if err != nil {
					return cli.Exit("bad --date, want YYYY-MM-DD", 1)
				}
				date = d
			}

			_, st, client, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			briefs, err := client.ListSessions(c.Context, date)
			if errors.Is(err, vc.ErrUnauthorized) {
				return expiredExit()
			}
			if err != nil {
				return err
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(briefs)
			}

			if len(briefs) == 0 {
				fmt.Printf("no sessions on %s\n", date.Format(vc.DateFormat))
				return nil
			}
			for _, b := range briefs {
				who := b.Client
				if b.Group != "" {
					who += " (" + b.Group + ")"
				}
				if who != "" {
					fmt.Printf("%-30s %s\n", b.Title, who)
				} else {
					fmt.Println(b.Title)
				}
				fmt.Printf("    %s\n", vc.NormalizeSessionURL(b.URL, b))
			}
			return nil
		},
	}
}

func showCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Fetch full session content",
		ArgsUsage: "<session-url>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: vcday show <session-url>", 1)
			}

			_, st, client, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			detail, err := client.SessionDetail(c.Context, c.Args().First())
			switch {
			case errors.Is(err, vc.ErrUnauthorized):
				return expiredExit()
			case errors.Is(err, vc.ErrBadSessionURL):
				return cli.Exit("no detail available: not a session URL", 1)
			case err != nil:
				return err
			}

			fmt.Println(detail.Title)
			fmt.Println()
			fmt.Println(detail.HTML)
			return nil
		},
	}
}

func htmlCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:      "html",
		Usage:     "Fetch the literal session page HTML",
		ArgsUsage: "<session-url>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("usage: vcday html <session-url>", 1)
			}

			_, st, client, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			html, err := client.RawHTML(c.Context, c.Args().First())
			if errors.Is(err, vc.ErrUnauthorized) {
				return expiredExit()
			}
			if err != nil {
				return err
			}
			fmt.Println(html)
			return nil
		},
	}
}

func mcpCmd(log *slog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(c *cli.Context) error {
			_, st, client, err := setup(c, log)
			if err != nil {
				return err
			}
			defer st.Close()

			return mcp.ServeStdio(mcp.New(client, Version, log))
		},
	}
}

package web

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/claude/vcday/internal/vc"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server renders the day's sessions in a browser. It is a thin
// presentation layer over the Visual Coaching client; all state lives
// upstream or in the session store.
type Server struct {
	client *vc.Client
	log    *slog.Logger
	tmpl   *template.Template
	router chi.Router
}

// New creates a Server with all routes configured.
func New(client *vc.Client, log *slog.Logger) *Server {
	s := &Server{
		client: client,
		log:    log,
		tmpl:   template.Must(template.ParseFS(templateFS, "templates/*.html")),
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/sessions", http.StatusFound)
	})
	s.router.Get("/sessions", s.handleSessions)
	s.router.Get("/sessions/view", s.handleSessionView)
	s.router.Get("/healthz", s.handleHealthz)
}

package web

import (
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/claude/vcday/internal/vc"
)

type sessionRow struct {
	Title  string
	Client string
	Group  string
	URL    string // normalized, used as the view link
}

type listPage struct {
	Date     string
	Prev     string
	Next     string
	Sessions []sessionRow
}

type detailPage struct {
	Title string
	Body  template.HTML
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if ds := r.URL.Query().Get("date"); ds != "" {
		d, err := time.Parse(vc.DateFormat, ds)
		if err != nil {
			http.Error(w, "bad date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = d
	}

	briefs, err := s.client.ListSessions(r.Context(), date)
	if errors.Is(err, vc.ErrUnauthorized) {
		s.renderExpired(w)
		return
	}
	if err != nil {
		s.log.Error("listing sessions", "error", err)
		http.Error(w, "could not reach the coaching service", http.StatusBadGateway)
		return
	}

	page := listPage{
		Date: date.Format(vc.DateFormat),
		Prev: date.AddDate(0, 0, -1).Format(vc.DateFormat),
		Next: date.AddDate(0, 0, 1).Format(vc.DateFormat),
	}
	for _, b := range briefs {
		page.Sessions = append(page.Sessions, sessionRow{
			Title:  b.Title,
			Client: b.Client,
			Group:  b.Group,
			URL:    vc.NormalizeSessionURL(b.URL, b),
		})
	}
	s.render(w, http.StatusOK, "list.html", page)
}

func (s *Server) handleSessionView(w http.ResponseWriter, r *http.Request) {
	sessionURL := r.URL.Query().Get("u")
	if sessionURL == "" {
		http.Error(w, "missing u parameter", http.StatusBadRequest)
		return
	}

	detail, err := s.client.SessionDetail(r.Context(), sessionURL)
	switch {
	case errors.Is(err, vc.ErrUnauthorized):
		s.renderExpired(w)
		return
	case errors.Is(err, vc.ErrBadSessionURL):
		http.Error(w, "no detail available for this session", http.StatusNotFound)
		return
	case err != nil:
		s.log.Error("fetching session detail", "url", sessionURL, "error", err)
		http.Error(w, "could not reach the coaching service", http.StatusBadGateway)
		return
	}

	s.render(w, http.StatusOK, "detail.html", detailPage{
		Title: detail.Title,
		// The body is the coaching service's own markup; rendering it
		// unescaped is the whole point of the viewer.
		Body: template.HTML(detail.HTML),
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) renderExpired(w http.ResponseWriter) {
	s.render(w, http.StatusUnauthorized, "expired.html", nil)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("render failed", "template", name, "error", err)
	}
}

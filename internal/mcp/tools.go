package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/claude/vcday/internal/vc"
	"github.com/mark3labs/mcp-go/mcp"
)

const expiredMsg = "session expired or not logged in — run `vcday login` and retry"

// parseDate accepts YYYY-MM-DD, defaulting to today.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return time.Parse(vc.DateFormat, s)
}

// --- Tool definitions ---

var toolListSessions = mcp.NewTool("list_sessions",
	mcp.WithDescription("List the scheduled workout sessions for a date. Returns title, client/group, and a normalized session URL usable with get_session."),
	mcp.WithString("date", mcp.Description("Date (YYYY-MM-DD). Defaults to today.")),
)

var toolGetSession = mcp.NewTool("get_session",
	mcp.WithDescription("Fetch the full content of one session: title plus the session body as HTML."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Session URL from list_sessions (e.g. /Session/10?week=3&day=1&session=0&i=0)")),
)

var toolGetSessionHTML = mcp.NewTool("get_session_html",
	mcp.WithDescription("Fetch the literal session page HTML, for sessions whose content does not round-trip through the summary endpoint."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Relative session URL")),
)

var toolLoginStatus = mcp.NewTool("login_status",
	mcp.WithDescription("Report whether a Visual Coaching session cookie is currently stored."),
)

// --- Tool handlers ---

// sessionSummary is the list_sessions output row. URL is normalized so it
// can be passed straight to get_session.
type sessionSummary struct {
	Title  string `json:"title"`
	Client string `json:"client,omitempty"`
	Group  string `json:"group,omitempty"`
	URL    string `json:"url"`
}

func (h *handlers) listSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	date, err := parseDate(req.GetString("date", ""))
	if err != nil {
		return mcp.NewToolResultError("invalid date, want YYYY-MM-DD: " + err.Error()), nil
	}

	briefs, err := h.client.ListSessions(ctx, date)
	if errors.Is(err, vc.ErrUnauthorized) {
		return mcp.NewToolResultError(expiredMsg), nil
	}
	if err != nil {
		h.log.Error("mcp list_sessions", "error", err)
		return mcp.NewToolResultError("fetch failed: " + err.Error()), nil
	}

	rows := make([]sessionSummary, 0, len(briefs))
	for _, b := range briefs {
		rows = append(rows, sessionSummary{
			Title:  b.Title,
			Client: b.Client,
			Group:  b.Group,
			URL:    vc.NormalizeSessionURL(b.URL, b),
		})
	}

	result, err := mcp.NewToolResultJSON(rows)
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getSession(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	detail, err := h.client.SessionDetail(ctx, sessionURL)
	switch {
	case errors.Is(err, vc.ErrUnauthorized):
		return mcp.NewToolResultError(expiredMsg), nil
	case errors.Is(err, vc.ErrBadSessionURL):
		return mcp.NewToolResultError("url does not look like a session URL; use one returned by list_sessions"), nil
	case err != nil:
		h.log.Error("mcp get_session", "url", sessionURL, "error", err)
		return mcp.NewToolResultError("fetch failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(detail)
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

func (h *handlers) getSessionHTML(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url parameter is required"), nil
	}

	html, err := h.client.RawHTML(ctx, sessionURL)
	if errors.Is(err, vc.ErrUnauthorized) {
		return mcp.NewToolResultError(expiredMsg), nil
	}
	if err != nil {
		h.log.Error("mcp get_session_html", "url", sessionURL, "error", err)
		return mcp.NewToolResultError("fetch failed: " + err.Error()), nil
	}

	return mcp.NewToolResultText(html), nil
}

func (h *handlers) loginStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(map[string]bool{"logged_in": h.client.LoggedIn()})
	if err != nil {
		return mcp.NewToolResultError("encoding failed: " + err.Error()), nil
	}
	return result, nil
}

package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claude/vcday/internal/store"
	"github.com/claude/vcday/internal/vc"
)

// newTestHandlers builds the tool handlers against a fake vendor server.
func newTestHandlers(t *testing.T, vendor map[string]http.HandlerFunc) (*handlers, *store.Store) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := vendor[r.URL.Path]
		if !ok {
			t.Errorf("unexpected vendor request path: %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(ts.Close)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(t.TempDir(), log)
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	client := vc.New(ts.URL, "vcday-test", 5*time.Second, st, log)
	return &handlers{client: client, log: log}, st
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", result.Content[0])
	}
	return tc.Text
}

// TestParseDateDefault verifies an empty date defaults to today.
func TestParseDateDefault(t *testing.T) {
	got, err := parseDate("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now := time.Now()
	if got.Year() != now.Year() || got.YearDay() != now.YearDay() {
		t.Errorf("parseDate(\"\") = %v, want today", got)
	}
}

// TestParseDateExplicit verifies YYYY-MM-DD parsing.
func TestParseDateExplicit(t *testing.T) {
	got, err := parseDate("2025-06-19")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Year() != 2025 || got.Month() != 6 || got.Day() != 19 {
		t.Errorf("parseDate = %v, want 2025-06-19", got)
	}
}

// TestParseDateInvalid verifies other formats are rejected.
func TestParseDateInvalid(t *testing.T) {
	if _, err := parseDate("19/06/2025"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

// TestListSessionsToolNormalizes verifies the list_sessions output carries
// normalized URLs: session/i forced to 0, defaults added, anchor date
// injected from the brief.
func TestListSessionsToolNormalizes(t *testing.T) {
	h, st := newTestHandlers(t, map[string]http.HandlerFunc{
		"/Application/Program/": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`[{"title":"Intervals","url":"/Session/5?week=1&day=2&session=2&i=3","client":"Jo","dateStart":"2025-06-19"}]`))
		},
	})
	_ = st.SaveCookie("tok")

	result, err := h.listSessions(context.Background(), makeRequest(map[string]any{"date": "2025-06-19"}))
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}

	var rows []sessionSummary
	if err := json.Unmarshal([]byte(resultText(t, result)), &rows); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	want := "/Session/5?week=1&day=2&session=0&i=0&format=Tablet&version=2&ad=2025-06-19"
	if rows[0].URL != want {
		t.Errorf("url = %q, want %q", rows[0].URL, want)
	}
	if rows[0].Title != "Intervals" || rows[0].Client != "Jo" {
		t.Errorf("row = %+v", rows[0])
	}
}

// TestListSessionsToolExpired verifies an upstream 401 surfaces as the
// re-login error message and clears the stored cookie.
func TestListSessionsToolExpired(t *testing.T) {
	h, st := newTestHandlers(t, map[string]http.HandlerFunc{
		"/Application/Program/": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		},
	})
	_ = st.SaveCookie("stale")

	result, err := h.listSessions(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected error result for 401")
	}
	if got := resultText(t, result); got != expiredMsg {
		t.Errorf("message = %q, want %q", got, expiredMsg)
	}
	if st.LoggedIn() {
		t.Error("cookie should be cleared after 401")
	}
}

// TestListSessionsToolBadDate verifies a malformed date argument is
// rejected without reaching upstream.
func TestListSessionsToolBadDate(t *testing.T) {
	h, _ := newTestHandlers(t, map[string]http.HandlerFunc{})

	result, err := h.listSessions(context.Background(), makeRequest(map[string]any{"date": "19/06/2025"}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected error result for bad date")
	}
}

// TestGetSessionTool verifies the detail fetch round-trip through the
// composite summary key.
func TestGetSessionTool(t *testing.T) {
	h, st := newTestHandlers(t, map[string]http.HandlerFunc{
		"/api/2/Program/Summary2/10": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("key"); got != "3:1:2:1" {
				t.Errorf("key = %q, want 3:1:2:1", got)
			}
			_, _ = w.Write([]byte(`{"title":"Strength A","html":"<p>5x5 squat</p>"}`))
		},
	})
	_ = st.SaveCookie("tok")

	req := makeRequest(map[string]any{"url": "/Session/10?week=3&day=1&session=2&i=1"})
	result, err := h.getSession(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}

	var detail vc.SessionDetail
	if err := json.Unmarshal([]byte(resultText(t, result)), &detail); err != nil {
		t.Fatalf("unmarshaling result: %v", err)
	}
	if detail.Title != "Strength A" || detail.HTML != "<p>5x5 squat</p>" {
		t.Errorf("detail = %+v", detail)
	}
}

// TestGetSessionToolBadURL verifies a non-session URL is rejected locally.
func TestGetSessionToolBadURL(t *testing.T) {
	h, st := newTestHandlers(t, map[string]http.HandlerFunc{})
	_ = st.SaveCookie("tok")

	result, err := h.getSession(context.Background(), makeRequest(map[string]any{"url": "/Calendar/10?week=3"}))
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Fatal("expected error result for non-session URL")
	}
}

// TestGetSessionHTMLTool verifies the literal page fetch.
func TestGetSessionHTMLTool(t *testing.T) {
	h, st := newTestHandlers(t, map[string]http.HandlerFunc{
		"/Session/5": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>session page</html>"))
		},
	})
	_ = st.SaveCookie("tok")

	req := makeRequest(map[string]any{"url": "/Session/5?week=1&day=2&session=0&i=0"})
	result, err := h.getSessionHTML(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}
	if got := resultText(t, result); got != "<html>session page</html>" {
		t.Errorf("html = %q", got)
	}
}

// TestLoginStatusTool verifies the logged_in flag tracks the store.
func TestLoginStatusTool(t *testing.T) {
	h, st := newTestHandlers(t, map[string]http.HandlerFunc{})

	status := func() bool {
		t.Helper()
		result, err := h.loginStatus(context.Background(), makeRequest(nil))
		if err != nil {
			t.Fatal(err)
		}
		var payload map[string]bool
		if err := json.Unmarshal([]byte(resultText(t, result)), &payload); err != nil {
			t.Fatalf("unmarshaling result: %v", err)
		}
		return payload["logged_in"]
	}

	if status() {
		t.Error("fresh store should report logged_in=false")
	}
	if err := st.SaveCookie("tok"); err != nil {
		t.Fatal(err)
	}
	if !status() {
		t.Error("logged_in=false after saving a cookie")
	}
}

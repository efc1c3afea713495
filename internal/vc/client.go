package vc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/vcday/internal/store"
)

const (
	// cookieName is the vendor's session cookie. Every authenticated
	// request sends it verbatim in the Cookie header.
	cookieName = ".VCPCOOKIES"

	loginPath   = "/api/2/Account/Logon"
	programPath = "/Application/Program/"
	summaryPath = "/api/2/Program/Summary2/"

	// DateFormat is the yyyy-MM-dd form the vendor expects everywhere.
	DateFormat = "2006-01-02"
)

var (
	// ErrUnauthorized is returned when the vendor rejects the session
	// cookie (HTTP 401). The stored cookie has already been cleared;
	// the caller should prompt for a new login.
	ErrUnauthorized = errors.New("vc: unauthorized, session expired")

	// ErrBadSessionURL is returned when a session URL does not match the
	// /Session/{id}?week=&day=&session=&i= pattern. No request is made.
	ErrBadSessionURL = errors.New("vc: session url does not match /Session/{id} pattern")

	// ErrNoCookie is returned when a logon succeeds at the HTTP level but
	// neither the body nor the headers carry a session cookie.
	ErrNoCookie = errors.New("vc: login response contained no cookie")
)

// Client talks to the Visual Coaching service. It reads the session
// cookie from the store on every call and clears it when the vendor
// answers 401, so the store's logged-in state always tracks the last
// response. Requests are single-shot: no retries, no in-flight
// coordination.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	store      *store.Store
	log        *slog.Logger
}

// New creates a Client against the given base URL.
func New(baseURL, userAgent string, timeout time.Duration, st *store.Store, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		store:      st,
		log:        log,
	}
}

// LoggedIn reports whether a session cookie is currently stored.
func (c *Client) LoggedIn() bool {
	return c.store.LoggedIn()
}

// Login posts credentials to the logon endpoint and stores the issued
// session cookie. The cookie is taken from the JSON body's Cookie field
// when present, otherwise from a Set-Cookie header carrying the vendor
// cookie name.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("user", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("vc: create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("vc: login: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("vc: read login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("vc: login returned %d", resp.StatusCode)
	}

	cookie := ""
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err == nil && lr.Cookie != "" {
		cookie = lr.Cookie
	} else {
		cookie = cookieFromHeaders(resp.Header.Values("Set-Cookie"))
	}
	if cookie == "" {
		return "", ErrNoCookie
	}

	if err := c.store.SaveCookie(cookie); err != nil {
		return "", fmt.Errorf("vc: saving cookie: %w", err)
	}
	return cookie, nil
}

// cookieFromHeaders scans Set-Cookie values for the vendor session cookie
// and returns its value up to the first attribute separator.
func cookieFromHeaders(headers []string) string {
	for _, h := range headers {
		if !strings.HasPrefix(h, cookieName+"=") {
			continue
		}
		v := strings.TrimPrefix(h, cookieName+"=")
		if i := strings.IndexByte(v, ';'); i >= 0 {
			v = v[:i]
		}
		return v
	}
	return ""
}

// ListSessions fetches the scheduled sessions for a date, deduplicated
// per client+title (lowest session index wins). The vendor emits two
// list shapes; both are accepted, and an unrecognized payload degrades
// to an empty list rather than an error.
func (c *Client) ListSessions(ctx context.Context, date time.Time) ([]SessionBrief, error) {
	params := url.Values{}
	params.Set("date", date.Format(DateFormat))
	params.Set("current", "true")
	params.Set("version", "2")
	params.Set("today", "true")
	params.Set("format", "Tablet")
	params.Set("json", "true")
	params.Set("requireSortFilters", "true")
	params.Set("client", "")

	body, err := c.get(ctx, c.baseURL+programPath+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	return Dedupe(c.parseSessionList(body)), nil
}

// parseSessionList accepts a bare array or an object wrapping the array
// in a "sessions" field. Anything else degrades to an empty list.
func (c *Client) parseSessionList(body []byte) []SessionBrief {
	var briefs []SessionBrief
	if err := json.Unmarshal(body, &briefs); err == nil {
		return briefs
	}
	var wrapped listEnvelope
	if err := json.Unmarshal(body, &wrapped); err == nil && wrapped.Sessions != nil {
		return wrapped.Sessions
	}
	c.log.Warn("unrecognized session list payload", "bytes", len(body))
	return nil
}

// SessionDetail fetches the full content of a session. The session URL
// must match /Session/{id}?week=&day=&session=&i=; its coordinates become
// the week:day:session:i key the summary endpoint expects.
func (c *Client) SessionDetail(ctx context.Context, sessionURL string) (*SessionDetail, error) {
	id, key, ok := ParseSessionPath(sessionURL)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBadSessionURL, sessionURL)
	}

	body, err := c.get(ctx, c.baseURL+summaryPath+id+"?key="+key)
	if err != nil {
		return nil, err
	}

	var detail SessionDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("vc: decode session detail: %w", err)
	}
	return &detail, nil
}

// RawHTML fetches the literal session page at baseURL+sessionURL. A 401
// clears the stored cookie and returns ErrUnauthorized, same as the JSON
// endpoints.
func (c *Client) RawHTML(ctx context.Context, sessionURL string) (string, error) {
	body, err := c.get(ctx, c.baseURL+sessionURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// get issues an authenticated GET. A 401 clears the stored cookie and
// returns ErrUnauthorized; any other non-200 status or transport fault is
// a wrapped error distinguishable from it via errors.Is.
func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("vc: create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cookie", cookieName+"="+c.store.Cookie())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vc: %s: %w", req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("vc: read body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := c.store.ClearCookie(); err != nil {
			c.log.Warn("clearing expired cookie", "error", err)
		}
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vc: %s returned %d: %s", req.URL.Path, resp.StatusCode, body)
	}
	return body, nil
}

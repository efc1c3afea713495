package store

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, dir
}

// TestCookieRoundTrip verifies save/get/clear and the logged-in check.
func TestCookieRoundTrip(t *testing.T) {
	s, _ := openTemp(t)

	if s.LoggedIn() {
		t.Fatal("fresh store should not be logged in")
	}
	if got := s.Cookie(); got != "" {
		t.Fatalf("Cookie() = %q, want empty", got)
	}

	if err := s.SaveCookie("abc123"); err != nil {
		t.Fatalf("SaveCookie failed: %v", err)
	}
	if got := s.Cookie(); got != "abc123" {
		t.Errorf("Cookie() = %q, want abc123", got)
	}
	if !s.LoggedIn() {
		t.Error("LoggedIn() = false after save")
	}

	// Overwrite
	if err := s.SaveCookie("def456"); err != nil {
		t.Fatalf("SaveCookie failed: %v", err)
	}
	if got := s.Cookie(); got != "def456" {
		t.Errorf("Cookie() = %q, want def456", got)
	}

	if err := s.ClearCookie(); err != nil {
		t.Fatalf("ClearCookie failed: %v", err)
	}
	if s.LoggedIn() {
		t.Error("LoggedIn() = true after clear")
	}
	// Clearing twice is fine
	if err := s.ClearCookie(); err != nil {
		t.Errorf("second ClearCookie failed: %v", err)
	}
}

// TestCookiePersists verifies the cookie survives a process restart:
// a second Store opened on the same directory lazily loads it from disk.
func TestCookiePersists(t *testing.T) {
	s, dir := openTemp(t)
	if err := s.SaveCookie("persisted-value"); err != nil {
		t.Fatalf("SaveCookie failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	if got := s2.Cookie(); got != "persisted-value" {
		t.Errorf("Cookie() after reopen = %q, want persisted-value", got)
	}
}

// TestClearPersists verifies a cleared cookie stays cleared after reopen.
func TestClearPersists(t *testing.T) {
	s, dir := openTemp(t)
	if err := s.SaveCookie("x"); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearCookie(); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(dir, discardLogger())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	if s2.LoggedIn() {
		t.Error("cookie came back after clear and reopen")
	}
}

// TestPreferences verifies company, units, and notifications round-trips.
func TestPreferences(t *testing.T) {
	s, _ := openTemp(t)

	if err := s.SetCompany("Acme Athletics"); err != nil {
		t.Fatal(err)
	}
	if got := s.Company(); got != "Acme Athletics" {
		t.Errorf("Company() = %q", got)
	}

	if err := s.SetUnits("metric"); err != nil {
		t.Fatal(err)
	}
	if got := s.Units(); got != "metric" {
		t.Errorf("Units() = %q", got)
	}

	if s.Notifications() {
		t.Error("Notifications() default should be false")
	}
	if err := s.SetNotifications(true); err != nil {
		t.Fatal(err)
	}
	if !s.Notifications() {
		t.Error("Notifications() = false after enabling")
	}
}

// TestPreferencesIndependentOfCookie verifies clearing the cookie leaves
// preferences intact.
func TestPreferencesIndependentOfCookie(t *testing.T) {
	s, _ := openTemp(t)

	if err := s.SaveCookie("c"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetUnits("imperial"); err != nil {
		t.Fatal(err)
	}
	if err := s.ClearCookie(); err != nil {
		t.Fatal(err)
	}

	if got := s.Units(); got != "imperial" {
		t.Errorf("Units() = %q after cookie clear, want imperial", got)
	}
}

// TestReadFailureLogged verifies a database-level read failure reads as
// absent but leaves a trace in the log rather than failing silently.
func TestReadFailureLogged(t *testing.T) {
	var buf bytes.Buffer
	s, err := Open(t.TempDir(), slog.New(slog.NewTextHandler(&buf, nil)))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	// Closing the database makes the next uncached read fail at the
	// driver level, which is not the same as a missing row.
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := s.Company(); got != "" {
		t.Errorf("Company() = %q, want empty on read failure", got)
	}
	if !strings.Contains(buf.String(), "state read failed") {
		t.Errorf("read failure not logged, log output: %q", buf.String())
	}
}

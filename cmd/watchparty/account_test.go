package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"watchparty/internal/api"
	"watchparty/internal/config"
	"watchparty/internal/mockdata"
	"watchparty/internal/settings"
	"watchparty/internal/store"

	"github.com/charmbracelet/log"
)

// mockApp returns an App in mock mode over an in-memory settings store and
// captures stdout for the duration of the test.
func mockApp(t *testing.T) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := config.Defaults()
	cfg.UseMockData = true
	cfg.StoreURL = "memory:"

	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })

	app := &App{ctx: context.Background(), cfg: cfg, logger: log.New(io.Discard), table: mockdata.Default()}
	t.Cleanup(app.Close)
	return app, &buf
}

func TestLoginCmd_StoresAccessToken(t *testing.T) {
	app, out := mockApp(t)

	if err := (&LoginCmd{Email: "demo@example.com", Password: "secret"}).Run(app); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out.String(), "demo_user") {
		t.Fatalf("output = %q", out.String())
	}

	s, err := app.Settings()
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if token, ok := (settings.TokenSource{Store: s}).Token(); !ok || token != "mock-jwt-access-token" {
		t.Fatalf("stored token = %q, %v", token, ok)
	}
}

func TestDashboardCmd(t *testing.T) {
	app, out := mockApp(t)

	if err := (&DashboardCmd{}).Run(app); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, want := range []string{"demo_user", "12 (3 upcoming)", "2 unread of 5", "Party Invitation"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestPartyCmds(t *testing.T) {
	app, out := mockApp(t)

	if err := (&PartyListCmd{}).Run(app); err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out.String(), "parties") {
		t.Fatalf("list output = %q", out.String())
	}

	out.Reset()
	if err := (&PartyCreateCmd{Title: "Late show"}).Run(app); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(out.String(), "party 3") {
		t.Fatalf("create output = %q", out.String())
	}
}

func TestCheck(t *testing.T) {
	if err := check("x", api.Response[int]{Data: 1, Status: http.StatusOK}); err != nil {
		t.Fatalf("check(ok) = %v", err)
	}

	err := check("current user", api.Response[api.User]{Error: "Unauthorized", Status: http.StatusUnauthorized})
	var exit exitError
	if !errors.As(err, &exit) || exit.code != 1 {
		t.Fatalf("check(failure) = %v", err)
	}
	if !strings.Contains(exit.msg, "current user") || !strings.Contains(exit.msg, "Unauthorized") {
		t.Fatalf("message = %q", exit.msg)
	}
}

func TestLastSaved(t *testing.T) {
	db, err := store.NewSQLite(filepath.Join(t.TempDir(), "settings.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer db.Close()

	if _, ok := lastSaved(db); ok {
		t.Fatal("lastSaved reported a time before any write")
	}
	s := settings.Open(db, settings.WithLogger(log.New(io.Discard)))
	_ = s.Set("theme", "dark")
	if at, ok := lastSaved(db); !ok || at.IsZero() {
		t.Fatalf("lastSaved = %v, %v", at, ok)
	}

	if _, ok := lastSaved(store.NewMemory()); ok {
		t.Fatal("memory backend reported a save time")
	}
}

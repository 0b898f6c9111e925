package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		port:             8080,
		challengeTimeout: 10 * time.Second,
		opentdbURL:       "http://example.invalid/api.php",
		opentdbAmount:    20,
		opentdbCategory:  9,
		logFormat:        "console",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"ok", func(*Config) {}, ""},
		{"port", func(c *Config) { c.port = 0 }, "invalid port"},
		{"challenge timeout", func(c *Config) { c.challengeTimeout = 0 }, "challenge timeout"},
		{"session timeout", func(c *Config) { c.sessionTimeout = -time.Second }, "session timeout"},
		{"opentdb amount", func(c *Config) { c.opentdb = true; c.opentdbAmount = 51 }, "opentdb amount"},
		{"opentdb category", func(c *Config) { c.opentdb = true; c.opentdbCategory = 5 }, "opentdb category"},
		{"opentdb url", func(c *Config) { c.opentdb = true; c.opentdbURL = "" }, "--opentdb-url"},
		{"log format", func(c *Config) { c.logFormat = "xml" }, "log format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := c.validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFlagDefaults(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)
	if cfg.challengeTimeout != 10*time.Second {
		t.Fatalf("expected 10s challenge timeout, got %s", cfg.challengeTimeout)
	}
	if !cfg.backwardCaptures || cfg.restoreInPlace {
		t.Fatalf("expected backward captures on and in-place restore off")
	}
	if cfg.opentdbCategory != 9 {
		t.Fatalf("expected general knowledge category, got %d", cfg.opentdbCategory)
	}
	if cfg.port != 8080 || cfg.bind != "0.0.0.0" {
		t.Fatalf("unexpected listen defaults %s:%d", cfg.bind, cfg.port)
	}
	r := cfg.rules()
	if !r.BackwardCaptures || r.RestoreCaptureInPlace {
		t.Fatalf("unexpected rules %+v", r)
	}
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("CHECKERS_PORT", "9090")
	t.Setenv("CHECKERS_CHALLENGE_TIMEOUT", "15s")
	t.Setenv("CHECKERS_BACKWARD_CAPTURES", "false")
	t.Setenv("CHECKERS_OPENTDB_CATEGORY", "22")
	cfg := &Config{}
	newCmd(cfg)
	if cfg.opentdbCategory != 22 {
		t.Fatalf("expected category from env, got %d", cfg.opentdbCategory)
	}
	if cfg.port != 9090 {
		t.Fatalf("expected port from env, got %d", cfg.port)
	}
	if cfg.challengeTimeout != 15*time.Second {
		t.Fatalf("expected timeout from env, got %s", cfg.challengeTimeout)
	}
	if cfg.backwardCaptures {
		t.Fatalf("expected backward captures disabled from env")
	}
}

func TestFlagsBeatEnv(t *testing.T) {
	t.Setenv("CHECKERS_PORT", "9090")
	cfg := &Config{}
	cmd := newCmd(cfg)
	if err := cmd.Flags().Parse([]string{"--port", "7070"}); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.port != 7070 {
		t.Fatalf("expected flag to win, got %d", cfg.port)
	}
}

func TestLoadBankFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	raw := `questions:
  - question: "Is the sky blue?"
    choices: ["True", "False"]
    answer: "True"
`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := validConfig()
	cfg.questions = path
	bank, err := loadBank(context.Background(), cfg)
	if err != nil {
		t.Fatalf("loadBank: %v", err)
	}
	if bank.Len() != 1 {
		t.Fatalf("expected 1 question, got %d", bank.Len())
	}
}

func TestLoadBankMissingFile(t *testing.T) {
	cfg := validConfig()
	cfg.questions = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := loadBank(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for missing bank")
	}
}

func TestLoadBankKeepsEmbeddedWhenOpenTDBFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := validConfig()
	cfg.opentdb = true
	cfg.opentdbURL = srv.URL + "/api.php"
	bank, err := loadBank(context.Background(), cfg)
	if err != nil {
		t.Fatalf("loadBank: %v", err)
	}
	if bank.Len() != 10 {
		t.Fatalf("expected the 10 built-in questions, got %d", bank.Len())
	}
}

func TestLoadBankRequestsConfiguredCategory(t *testing.T) {
	got := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got <- r.URL.Query().Get("category")
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := validConfig()
	cfg.opentdb = true
	cfg.opentdbURL = srv.URL + "/api.php"
	cfg.opentdbCategory = 22
	if _, err := loadBank(context.Background(), cfg); err != nil {
		t.Fatalf("loadBank: %v", err)
	}
	select {
	case c := <-got:
		if c != "22" {
			t.Fatalf("expected category 22, got %q", c)
		}
	default:
		t.Fatalf("opentdb was not queried")
	}
}

func TestServeStopsWithContext(t *testing.T) {
	cfg := validConfig()
	cfg.bind = "127.0.0.1"
	cfg.port = 0
	cfg.logLevel = "error"
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("Serve did not stop")
	}
}

package config_test

import (
	"strings"
	"testing"
	"time"

	"stock-game-frontend/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "s3cret")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.App.Port != ":3000" {
		t.Errorf("Expected default port :3000, got %s", cfg.App.Port)
	}
	if cfg.Feed.PollInterval != 10*time.Second || cfg.Feed.LeaderboardInterval != 10*time.Second {
		t.Errorf("Expected 10s poll intervals, got %+v", cfg.Feed)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour || cfg.Auth.CookieName != "sid" {
		t.Errorf("Unexpected auth defaults %+v", cfg.Auth)
	}
	if cfg.Journal.Driver != "none" {
		t.Errorf("Expected journal disabled by default, got %s", cfg.Journal.Driver)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AUTH_SECRET_KEY", "s3cret")
	t.Setenv("BACKEND_BASE_URL", "http://pepo_backend:5000")
	t.Setenv("FEED_POLL_INTERVAL", "2s")
	t.Setenv("TRADE_SUBMIT_TIMEOUT", "3s")

	cfg, err := config.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Backend.BaseURL != "http://pepo_backend:5000" {
		t.Errorf("Unexpected backend url %s", cfg.Backend.BaseURL)
	}
	if cfg.Feed.PollInterval != 2*time.Second || cfg.Trade.SubmitTimeout != 3*time.Second {
		t.Errorf("Durations not overridden: %+v %+v", cfg.Feed, cfg.Trade)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		return &config.Config{
			Auth:    config.AuthConfig{SecretKey: "x", SessionTTL: time.Hour},
			Feed:    config.FeedConfig{PollInterval: time.Second, LeaderboardInterval: time.Second},
			Journal: config.JournalConfig{Driver: "none"},
		}
	}

	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"missing secret", func(c *config.Config) { c.Auth.SecretKey = "" }, "secret"},
		{"zero poll interval", func(c *config.Config) { c.Feed.PollInterval = 0 }, "poll interval"},
		{"zero leaderboard interval", func(c *config.Config) { c.Feed.LeaderboardInterval = 0 }, "leaderboard interval"},
		{"unknown journal", func(c *config.Config) { c.Journal.Driver = "sqlite" }, "journal driver"},
		{"mongo without uri", func(c *config.Config) { c.Journal.Driver = "mongo" }, "MONGO_URI"},
		{"production without passcode", func(c *config.Config) { c.App.Env = "production" }, "PASSCODE"},
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

package config

import "testing"

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]string{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != "0.0.0.0:7777" {
		t.Fatalf("unexpected default listen addr: %s", cfg.ListenAddr)
	}
	if cfg.MaxSessions != 2000 {
		t.Fatalf("unexpected default max sessions: %d", cfg.MaxSessions)
	}
}

func TestParseOverridesFlags(t *testing.T) {
	cfg, err := Parse([]string{"--listen-addr=127.0.0.1:9999", "--max-sessions=5"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.MaxSessions != 5 {
		t.Fatalf("unexpected max sessions: %d", cfg.MaxSessions)
	}
}

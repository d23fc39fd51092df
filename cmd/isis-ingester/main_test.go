package main

import (
	"strings"
	"testing"
)

func TestParseFlags(t *testing.T) {
	path, level := parseFlags([]string{"--config", "/etc/isis.yaml", "--log-level", "debug"})
	if path != "/etc/isis.yaml" || level != "debug" {
		t.Errorf("unexpected flags %q %q", path, level)
	}

	path, level = parseFlags([]string{"--config"})
	if path != "" || level != "" {
		t.Errorf("expected dangling flag to be ignored, got %q %q", path, level)
	}
}

func TestRedactDSN(t *testing.T) {
	tests := []struct {
		dsn     string
		secret  string
		keepsIn string
	}{
		{"postgres://isis:hunter2@db:5432/isis", "hunter2", "isis"},
		{"host=db user=isis password=hunter2 dbname=isis", "hunter2", "dbname=isis"},
	}
	for _, tt := range tests {
		got := redactDSN(tt.dsn)
		if strings.Contains(got, tt.secret) {
			t.Errorf("password leaked in %q", got)
		}
		if !strings.Contains(got, tt.keepsIn) {
			t.Errorf("expected %q to keep %q", got, tt.keepsIn)
		}
	}
}

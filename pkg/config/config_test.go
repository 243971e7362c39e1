package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadServerConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelrelay.toml")
	cfg := NewDefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:9999"
	cfg.UpstreamURL = "https://upstream.example.com/v1/chat/completions"
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := LoadServerConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("listen_addr = %q", got.ListenAddr)
	}
	if got.UpstreamURL != cfg.UpstreamURL {
		t.Fatalf("upstream_url = %q", got.UpstreamURL)
	}
	if got.TimeoutSeconds != 300 {
		t.Fatalf("timeout_seconds = %d, want default 300", got.TimeoutSeconds)
	}
}

func TestLoadOrDefaultServerConfigMissingFile(t *testing.T) {
	cfg, err := LoadOrDefaultServerConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("missing config should fall back to defaults, got %v", err)
	}
	if cfg.UpstreamURL == "" || cfg.ListenAddr == "" {
		t.Fatalf("defaults not populated: %+v", cfg)
	}
}

func TestLoadServerConfigRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modelrelay.toml")
	body := "listen_addr = \"127.0.0.1:8000\"\nupstream_url = \"https://x.example/v1/chat/completions\"\nbogus_field = true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadServerConfig(path); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}

func TestValidateUpstreamURL(t *testing.T) {
	cases := []struct {
		url    string
		wantOK bool
	}{
		{"https://api.openai.com/v1/chat/completions", true},
		{"http://localhost:1234/v1/chat/completions", true},
		{"", false},
		{"not a url", false},
		{"ftp://example.com/x", false},
	}
	for _, tc := range cases {
		cfg := NewDefaultServerConfig()
		cfg.UpstreamURL = tc.url
		cfg.Normalize()
		err := cfg.Validate()
		if tc.wantOK && err != nil {
			t.Fatalf("url %q: unexpected error %v", tc.url, err)
		}
		if !tc.wantOK && err == nil {
			t.Fatalf("url %q: expected validation error", tc.url)
		}
	}
}

func TestValidateTLSRequiresDomain(t *testing.T) {
	cfg := NewDefaultServerConfig()
	cfg.TLS.Enabled = true
	cfg.Normalize()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "tls.domain") {
		t.Fatalf("expected tls.domain error, got %v", err)
	}
}

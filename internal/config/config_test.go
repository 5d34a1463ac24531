// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
)

func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, name := range []string{
		"RIGMARK_HOST", "RIGMARK_PORT", "RIGMARK_OLLAMA_URL", "RIGMARK_MODEL",
		"RIGMARK_STYLES", "RIGMARK_HIGHLIGHT", "RIGMARK_SANITIZE", "RIGMARK_STRICT", "RIGMARK_DB",
	} {
		t.Setenv(name, "")
	}
	return home
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	isolateHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8787 {
		t.Errorf("Server.Port = %d, want 8787", cfg.Server.Port)
	}
	if cfg.Ollama.URL != "http://127.0.0.1:11434" {
		t.Errorf("Ollama.URL = %q", cfg.Ollama.URL)
	}
}

func TestLoadFromPath_TOMLOverlaysDefaults(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
port = 9000
cors_origins = ["https://chat.example.com"]

[render]
highlight = true
styles_file = "/tmp/styles.toml"
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://chat.example.com" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if !cfg.Render.Highlight || cfg.Render.StylesFile != "/tmp/styles.toml" {
		t.Errorf("Render = %+v", cfg.Render)
	}
	// Untouched keys keep defaults.
	if cfg.Ollama.Model != "qwen2.5-coder:14b" {
		t.Errorf("Ollama.Model = %q, want default", cfg.Ollama.Model)
	}
	if !cfg.Render.Sanitize {
		t.Error("Render.Sanitize lost its default")
	}
}

func TestLoadFromPath_JSON(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"ollama": {"model": "llama3.2"}}`), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if cfg.Ollama.Model != "llama3.2" {
		t.Errorf("Ollama.Model = %q, want llama3.2", cfg.Ollama.Model)
	}
}

func TestLoadFromPath_Invalid(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nport = 70000\n"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := LoadFromPath(path)
	if err == nil {
		t.Fatal("LoadFromPath() expected error for port 70000")
	}
	var verrs ValidateErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("error %v is not ValidateErrors", err)
	}
	if verrs[0].Field != "server.port" {
		t.Errorf("first error field = %q, want server.port", verrs[0].Field)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
		{"negative rate", func(c *Config) { c.Server.RateLimit = -1 }, "server.rate_limit"},
		{"zero burst", func(c *Config) { c.Server.RateBurst = 0 }, "server.rate_burst"},
		{"bad origin", func(c *Config) { c.Server.CORSOrigins = []string{"not a url"} }, "server.cors_origins"},
		{"bad ollama url", func(c *Config) { c.Ollama.URL = "ftp://x" }, "ollama.url"},
		{"empty model", func(c *Config) { c.Ollama.Model = "  " }, "ollama.model"},
		{"watch without file", func(c *Config) { c.Render.WatchStyles = true }, "render.watch_styles"},
		{"bad theme", func(c *Config) { c.Export.Theme = "neon" }, "export.theme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			var verrs ValidateErrors
			if !errors.As(err, &verrs) {
				t.Fatalf("Validate() = %v, want ValidateErrors", err)
			}
			found := false
			for _, e := range verrs {
				if e.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("Validate() = %v, want error on %s", err, tt.field)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	isolateHome(t)
	t.Setenv("RIGMARK_PORT", "9999")
	t.Setenv("RIGMARK_MODEL", "mistral")
	t.Setenv("RIGMARK_HIGHLIGHT", "true")
	t.Setenv("RIGMARK_SANITIZE", "0")
	t.Setenv("RIGMARK_DB", "/data/history.db")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Ollama.Model != "mistral" {
		t.Errorf("Ollama.Model = %q, want mistral", cfg.Ollama.Model)
	}
	if !cfg.Render.Highlight {
		t.Error("Render.Highlight = false, want true")
	}
	if cfg.Render.Sanitize {
		t.Error("Render.Sanitize = true, want false")
	}
	if path, _ := cfg.StoragePath(); path != "/data/history.db" {
		t.Errorf("StoragePath() = %q", path)
	}
}

func TestStoragePath_Default(t *testing.T) {
	home := isolateHome(t)
	path, err := Default().StoragePath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(home, ".rigmark", "history.db"); path != want {
		t.Errorf("StoragePath() = %q, want %q", path, want)
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("server.port")
	if err != nil || v.(int) != 8787 {
		t.Fatalf("Get(server.port) = %v, %v", v, err)
	}
	if err := cfg.Set("server.port", "9090"); err != nil {
		t.Fatalf("Set(server.port) error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d after Set", cfg.Server.Port)
	}
	if err := cfg.Set("render.highlight", "yes"); err != nil || !cfg.Render.Highlight {
		t.Errorf("Set(render.highlight) = %v, Highlight = %v", err, cfg.Render.Highlight)
	}
	if err := cfg.Set("server.cors_origins", "https://a.com, https://b.com"); err != nil {
		t.Fatalf("Set(server.cors_origins) error = %v", err)
	}
	if len(cfg.Server.CORSOrigins) != 2 {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if _, err := cfg.Get("server.nope"); err == nil {
		t.Error("Get(server.nope) expected error")
	}
	if _, err := cfg.Get("server.port.x"); err == nil {
		t.Error("Get(server.port.x) expected error")
	}
	if err := cfg.Set("server.port", "abc"); err == nil {
		t.Error("Set(server.port, abc) expected error")
	}
}

func TestGetAllKeys(t *testing.T) {
	keys := GetAllKeys()
	sort.Strings(keys)

	cfg := Default()
	for _, want := range []string{"server.port", "ollama.url", "render.styles_file", "storage.path", "export.theme"} {
		i := sort.SearchStrings(keys, want)
		if i >= len(keys) || keys[i] != want {
			t.Errorf("GetAllKeys() missing %s", want)
		}
	}
	for _, key := range keys {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%s) error = %v", key, err)
		}
	}
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolateHome(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Port = 8123
	cfg.Render.StylesFile = "themes/dark.toml"
	if err := SaveTOML(cfg, path); err != nil {
		t.Fatalf("SaveTOML() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("permissions = %o, want 600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath() error = %v", err)
	}
	if loaded.Server.Port != 8123 || loaded.Render.StylesFile != "themes/dark.toml" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func TestClone_Independent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Server.CORSOrigins[0] = "https://other.example"
	if cfg.Server.CORSOrigins[0] == "https://other.example" {
		t.Error("Clone() shares CORSOrigins")
	}
}

// TestConfig_ConcurrentAccess checks Global and SetGlobal under the race detector.
func TestConfig_ConcurrentAccess(t *testing.T) {
	isolateHome(t)
	ResetGlobalForTesting()
	defer ResetGlobalForTesting()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			SetGlobal(Default())
		}()
		go func() {
			defer wg.Done()
			if Global() == nil {
				t.Error("Global() returned nil")
			}
		}()
	}
	wg.Wait()

	if err := ReloadGlobal(); err != nil {
		t.Errorf("ReloadGlobal() error = %v", err)
	}
}

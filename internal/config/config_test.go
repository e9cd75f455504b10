package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir(), "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != "" {
		// Only possible if a patchwork.toml sits above the temp dir.
		t.Skipf("found unrelated config at %s", cfg.Path)
	}
	if !cfg.Transform.Cache || cfg.UI.Mode != UIAuto || len(cfg.Transform.ReservedPrefixes) != 2 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	want := writeFile(t, root, "")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	got, ok, err := Find(nested)
	if err != nil || !ok {
		t.Fatalf("find: ok=%v err=%v", ok, err)
	}
	if got != want {
		t.Fatalf("found %s, want %s", got, want)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, `
[transform]
jobs = 3
reserved_prefixes = ["java", "net/minecraft", "com/mojang"]
cache = false

[trace]
level = "phase"

[ui]
mode = "off"
`)
	cfg, err := Load(dir, "")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transform.Jobs != 3 || cfg.Transform.Cache || cfg.Trace.Level != "phase" || cfg.UI.Mode != UIOff {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if len(cfg.Transform.ReservedPrefixes) != 3 {
		t.Fatalf("reserved prefixes = %v", cfg.Transform.ReservedPrefixes)
	}
	if cfg.Trace.Mode != "stream" {
		t.Fatalf("unset key lost its default: %q", cfg.Trace.Mode)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "[transform]\njobs = 3\ncache_dir = \"/from/file\"\n")
	t.Setenv("PATCHWORK_JOBS", "7")
	t.Setenv("PATCHWORK_RESERVED_PREFIXES", "java,org/vendor")
	t.Setenv("PATCHWORK_TRACE_LEVEL", "debug")

	cfg, err := Load("", path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Transform.Jobs != 7 {
		t.Fatalf("jobs = %d, want 7", cfg.Transform.Jobs)
	}
	if cfg.Transform.CacheDir != "/from/file" {
		t.Fatalf("cache_dir = %q", cfg.Transform.CacheDir)
	}
	if strings.Join(cfg.Transform.ReservedPrefixes, "|") != "java|org/vendor" {
		t.Fatalf("reserved prefixes = %v", cfg.Transform.ReservedPrefixes)
	}
	if cfg.Trace.Level != "debug" {
		t.Fatalf("trace level = %q", cfg.Trace.Level)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
		want string
	}{
		{name: "syntax", body: "[transform\n", want: "failed to parse TOML"},
		{name: "unknown key", body: "[transform]\nthreads = 2\n", want: "unknown keys: transform.threads"},
		{name: "negative jobs", body: "[transform]\njobs = -1\n", want: "must not be negative"},
		{name: "ui mode", body: "[ui]\nmode = \"sometimes\"\n", want: "invalid ui mode"},
		{name: "trace level", body: "[trace]\nlevel = \"loud\"\n", want: "invalid trace level"},
		{name: "env type", env: map[string]string{"PATCHWORK_JOBS": "many"}, want: "parse env:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), tt.body)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in %v", tt.want, err)
			}
		})
	}
}

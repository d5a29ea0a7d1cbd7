package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"subforge/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv(config.EnvConfigPath, "")
	chdir(t, t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "subforge", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if want := filepath.Join(tempHome, ".local", "share", "subforge", "work"); cfg.Paths.WorkDir != want {
		t.Fatalf("work dir = %q, want %q", cfg.Paths.WorkDir, want)
	}
	if cfg.HistoryPath() != filepath.Join(tempHome, ".local", "state", "subforge", "history.db") {
		t.Fatalf("history path = %q", cfg.HistoryPath())
	}
	if cfg.Tools.Prober != config.ProberMkvmerge || cfg.Build.ChapterOrder != "strict" || cfg.Build.Compression != "zlib" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Build.DropZeroDuration {
		t.Fatal("zero-duration lines are kept by default")
	}
	if cfg.ToolTimeout().Seconds() != 600 {
		t.Fatalf("tool timeout = %v", cfg.ToolTimeout())
	}
}

func TestLoadFromEnvPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.toml")
	content := `
[paths]
work_dir = "` + filepath.Join(dir, "work") + `"

[tools]
prober = "FFprobe"
timeout_seconds = 0

[build]
parallelism = 4
chapter_order = "sort"
drop_zero_duration = true

[logging]
format = "json"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfigPath, path)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("resolved=%q exists=%v", resolved, exists)
	}
	if cfg.Paths.WorkDir != filepath.Join(dir, "work") {
		t.Fatalf("work dir = %q", cfg.Paths.WorkDir)
	}
	if cfg.Tools.Prober != config.ProberFFprobe {
		t.Fatalf("prober = %q", cfg.Tools.Prober)
	}
	if cfg.Build.Parallelism != 4 || cfg.Build.ChapterOrder != "sort" || !cfg.Build.DropZeroDuration {
		t.Fatalf("build = %+v", cfg.Build)
	}
	if cfg.ToolTimeout() != 0 {
		t.Fatalf("timeout should be disabled, got %v", cfg.ToolTimeout())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "info" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
}

func TestExplicitPathBeatsEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(config.EnvConfigPath, filepath.Join(t.TempDir(), "env.toml"))
	explicit := filepath.Join(t.TempDir(), "explicit.toml")
	if err := os.WriteFile(explicit, []byte("[build]\nparallelism = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, resolved, _, err := config.Load(explicit)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != explicit || cfg.Build.Parallelism != 3 {
		t.Fatalf("resolved=%q parallelism=%d", resolved, cfg.Build.Parallelism)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[build]\nparalelism = 3\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, _, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), "paralelism") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestLogLevelEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SUBFORGE_LOG_LEVEL", "DEBUG")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var cfg config.Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	def := config.Default()
	if cfg.Tools != def.Tools || cfg.Build != def.Build || cfg.Logging != def.Logging {
		t.Fatalf("sample drifted from defaults:\n got %+v\nwant %+v", cfg, def)
	}
	if err := config.CreateSample(path, false); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if err := config.CreateSample(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{name: "prober", mutate: func(c *config.Config) { c.Tools.Prober = "mediainfo" }, want: "tools.prober"},
		{name: "timeout", mutate: func(c *config.Config) { c.Tools.TimeoutSeconds = -1 }, want: "timeout_seconds"},
		{name: "parallelism", mutate: func(c *config.Config) { c.Build.Parallelism = 64 }, want: "parallelism"},
		{name: "chapter order", mutate: func(c *config.Config) { c.Build.ChapterOrder = "random" }, want: "chapter_order"},
		{name: "compression", mutate: func(c *config.Config) { c.Build.Compression = "lzo" }, want: "compression"},
		{name: "free space", mutate: func(c *config.Config) { c.Build.MinFreeGiB = -2 }, want: "min_free_gib"},
		{name: "format", mutate: func(c *config.Config) { c.Logging.Format = "xml" }, want: "logging.format"},
		{name: "level", mutate: func(c *config.Config) { c.Logging.Level = "loud" }, want: "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate error = %v, want containing %q", err, tt.want)
			}
		})
	}
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

// chdir is a Go 1.21-compatible stand-in for testing.T.Chdir.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func useConfigHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	return filepath.Join(home, DirName)
}

func TestLoadDefaults(t *testing.T) {
	useConfigHome(t)
	t.Setenv("JOBSCRAPE_DRIVER", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultSite != "keejob" || cfg.Driver != "http" || cfg.MaxRetries != 3 || !cfg.Headless {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	sc := cfg.Scraper()
	if sc.Timeout != 15*time.Second || sc.Backoff != 2*time.Second || sc.ArticleDelay != 0 {
		t.Fatalf("unexpected scraper config: %+v", sc)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	useConfigHome(t)
	t.Setenv("JOBSCRAPE_SITE", "naukrigulf")
	t.Setenv("JOBSCRAPE_WORKERS", "4")
	t.Setenv("JOBSCRAPE_HEADLESS", "false")
	t.Setenv("JOBSCRAPE_RETRIES", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultSite != "naukrigulf" || cfg.Workers != 4 || cfg.Headless {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.MaxRetries != 3 {
		t.Fatalf("invalid env value should fall back, got %d", cfg.MaxRetries)
	}
}

func TestLoadJSON5File(t *testing.T) {
	dir := useConfigHome(t)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := `{
  // slower pacing for a shared proxy
  default_site: "naukrigulf",
  article_delay: "1s",
  page_retries: 2,
}`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultSite != "naukrigulf" || cfg.PageRetries != 2 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if got := cfg.Scraper().ArticleDelay; got != time.Second {
		t.Fatalf("ArticleDelay = %v, want 1s", got)
	}
	if cfg.Timeout != "15s" {
		t.Fatalf("unset keys should keep defaults, got timeout %q", cfg.Timeout)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "lynx"
	cfg.Timeout = "soon"
	cfg.Workers = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"driver", "timeout", "workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q should mention %s", err, want)
		}
	}
}

func TestInitCreatesFilesOnce(t *testing.T) {
	dir := useConfigHome(t)

	created, err := Init()
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 files, got %v", created)
	}
	if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err != nil {
		t.Fatalf("config not written: %v", err)
	}

	created, err = Init()
	if err != nil || len(created) != 0 {
		t.Fatalf("second Init() = %v, %v", created, err)
	}
	if _, err := Load(); err != nil {
		t.Fatalf("Load() after Init() error = %v", err)
	}
}

func TestLoadProxies(t *testing.T) {
	dir := useConfigHome(t)
	t.Setenv("JOBSCRAPE_PROXIES", "")

	got, err := LoadProxies(" http://a:1 , ,http://b:2")
	if err != nil || len(got) != 2 || got[1] != "http://b:2" {
		t.Fatalf("LoadProxies(flag) = %v, %v", got, err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	file := "# comment\nhttp://c:3\n\nhttp://d:4\n"
	if err := os.WriteFile(filepath.Join(dir, ProxiesFileName), []byte(file), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = LoadProxies("")
	if err != nil || len(got) != 2 || got[0] != "http://c:3" {
		t.Fatalf("LoadProxies(file) = %v, %v", got, err)
	}

	t.Setenv("JOBSCRAPE_PROXIES", "http://e:5")
	got, _ = LoadProxies("")
	if len(got) != 1 || got[0] != "http://e:5" {
		t.Fatalf("LoadProxies(env) = %v", got)
	}
}

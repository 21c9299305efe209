package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jimezsa/jobscrape/internal/models"
	"github.com/yosuke-furukawa/json5/encoding/json5"
)

const (
	DirName         = "jobscrape"
	ConfigFileName  = "config.json"
	ProxiesFileName = "proxies.txt"
	DatabaseName    = "jobs.db"
)

const envPrefix = "JOBSCRAPE_"

// Config contains default scrape settings. Durations are Go duration
// strings such as "500ms" or "2s".
type Config struct {
	DefaultSite  string `json:"default_site" validate:"required"`
	DefaultPages int    `json:"default_pages" validate:"gte=0,lte=100"`
	Driver       string `json:"driver" validate:"oneof=http chromedp playwright selenium"`
	Timeout      string `json:"timeout" validate:"duration"`
	MaxRetries   int    `json:"max_retries" validate:"gte=1,lte=10"`
	Backoff      string `json:"backoff" validate:"duration"`
	ArticleDelay string `json:"article_delay" validate:"omitempty,duration"`
	PageDelay    string `json:"page_delay" validate:"omitempty,duration"`
	PageRetries  int    `json:"page_retries" validate:"gte=0,lte=5"`
	Workers      int    `json:"workers" validate:"gte=1,lte=16"`
	Headless     bool   `json:"headless"`
	WebDriverURL string `json:"webdriver_url" validate:"omitempty,url"`
	Database     string `json:"database"`
	Templates    string `json:"templates"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		d, err := time.ParseDuration(fl.Field().String())
		return err == nil && d >= 0
	})
	return v
}

func DefaultConfig() Config {
	return Config{
		DefaultSite:  envString("SITE", "keejob"),
		DefaultPages: envInt("PAGES", 0),
		Driver:       envString("DRIVER", "http"),
		Timeout:      envString("TIMEOUT", "15s"),
		MaxRetries:   envInt("RETRIES", 3),
		Backoff:      envString("BACKOFF", "2s"),
		ArticleDelay: envString("ARTICLE_DELAY", ""),
		PageDelay:    envString("PAGE_DELAY", ""),
		PageRetries:  envInt("PAGE_RETRIES", 1),
		Workers:      envInt("WORKERS", 1),
		Headless:     envBool("HEADLESS", true),
		WebDriverURL: envString("WEBDRIVER_URL", "http://127.0.0.1:9515/wd/hub"),
		Database:     envString("DB", ""),
		Templates:    envString("TEMPLATES", ""),
	}
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: invalid value %q (%s)", fe.Field(), fmt.Sprint(fe.Value()), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Scraper converts the settings used by the scrape pipeline. Call Validate
// first; unparsable durations become zero.
func (c Config) Scraper() models.ScraperConfig {
	return models.ScraperConfig{
		Timeout:      parseDuration(c.Timeout),
		MaxRetries:   c.MaxRetries,
		Backoff:      parseDuration(c.Backoff),
		ArticleDelay: parseDuration(c.ArticleDelay),
		PageDelay:    parseDuration(c.PageDelay),
		PageRetries:  c.PageRetries,
		Workers:      c.Workers,
	}
}

func parseDuration(value string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(value))
	return d
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

func ProxiesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ProxiesFileName), nil
}

// DatabasePath is the default location of the seen-jobs database.
func DatabasePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseName), nil
}

func Load() (Config, error) {
	cfg := DefaultConfig()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, cfg.Validate()
		}
		return cfg, err
	}

	if len(strings.TrimSpace(string(data))) == 0 {
		return cfg, cfg.Validate()
	}

	if err := json5.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Init writes default config.json and proxies.txt if they don't already exist.
func Init() ([]string, error) {
	var created []string

	dir, err := ConfigDir()
	if err != nil {
		return created, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return created, err
	}

	configPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		if err := writeConfig(configPath, DefaultConfig()); err != nil {
			return created, err
		}
		created = append(created, configPath)
	}

	proxiesPath := filepath.Join(dir, ProxiesFileName)
	if _, err := os.Stat(proxiesPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(proxiesPath, []byte("# one proxy URL per line\n"), 0o644); err != nil {
			return created, err
		}
		created = append(created, proxiesPath)
	}

	return created, nil
}

func writeConfig(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func LoadProxies(flagValue string) ([]string, error) {
	if strings.TrimSpace(flagValue) != "" {
		return splitCSV(flagValue), nil
	}

	if env := strings.TrimSpace(os.Getenv(envPrefix + "PROXIES")); env != "" {
		return splitCSV(env), nil
	}

	path, err := ProxiesPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var proxies []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		proxies = append(proxies, line)
	}
	return proxies, nil
}

func envString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(envPrefix + key)); val != "" {
		return val
	}
	return fallback
}

func envInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(envPrefix + key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(envPrefix + key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

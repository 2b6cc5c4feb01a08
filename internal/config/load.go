package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	s := strings.TrimSpace(value.Value)
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must look like \"1500ms\" or \"10s\": %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

func defaultConfig() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8090",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			AllowOrigins:      []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Upstream: UpstreamConfig{
			BaseURL:     "http://127.0.0.1:5000",
			PredictPath: "/api/v1/predict",
			HealthPath:  "/health",
			LogsPath:    "/prediction_logs",
			Timeout:     Duration{Duration: 15 * time.Second},
			MaxRetries:  1,
		},
		Live: LiveConfig{
			Debounce: Duration{Duration: 1500 * time.Millisecond},
		},
		History: HistoryConfig{
			Cap: 20,
		},
		Monitor: MonitorConfig{
			Interval:       Duration{Duration: 10 * time.Second},
			AlertThreshold: 6,
			WindowSize:     20,
		},
		Admin: AdminConfig{
			SessionTTL: Duration{Duration: 12 * time.Hour},
		},
		DB: DBConfig{
			Path: "riskengine.db",
		},
	}
}

// Load reads config from CA_CONFIG_PATH (or ./config/config.yaml when present),
// applies env overrides, and validates the result.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("CA_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}

	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("CA_ENV")); v != "" {
		cfg.Env = v
	}
	if v := strings.TrimSpace(os.Getenv("CA_HTTP_ADDR")); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("CA_UPSTREAM_BASE_URL")); v != "" {
		cfg.Upstream.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("CA_DB_PATH")); v != "" {
		cfg.DB.Path = v
	}
	if v := strings.TrimSpace(os.Getenv("CA_DB_DSN")); v != "" {
		cfg.DB.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv("CA_ADMIN_EMAIL")); v != "" {
		cfg.Admin.Email = v
	}
	if v := strings.TrimSpace(os.Getenv("CA_ADMIN_PASSWORD_HASH")); v != "" {
		cfg.Admin.PasswordHash = v
	}
	if v := strings.TrimSpace(os.Getenv("CA_ADMIN_JWT_SECRET")); v != "" {
		cfg.Admin.JWTSecret = v
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Env == "" {
		c.Env = "development"
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":8090"
	}
	if c.HTTP.MaxRequestBytes <= 0 {
		c.HTTP.MaxRequestBytes = 1 << 20
	}

	c.Upstream.BaseURL = strings.TrimRight(strings.TrimSpace(c.Upstream.BaseURL), "/")
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream.base_url is required")
	}
	if c.Upstream.Timeout.Duration <= 0 {
		c.Upstream.Timeout = Duration{Duration: 15 * time.Second}
	}
	if c.Upstream.MaxRetries < 0 {
		return errors.New("upstream.max_retries must be >= 0")
	}

	if c.Live.Debounce.Duration <= 0 {
		c.Live.Debounce = Duration{Duration: 1500 * time.Millisecond}
	}

	if c.History.Cap < 20 || c.History.Cap > 50 {
		return fmt.Errorf("history.cap must be in [20, 50], got %d", c.History.Cap)
	}

	if c.Monitor.Interval.Duration <= 0 {
		c.Monitor.Interval = Duration{Duration: 10 * time.Second}
	}
	if c.Monitor.AlertThreshold <= 0 {
		c.Monitor.AlertThreshold = 6
	}
	if c.Monitor.WindowSize <= 0 {
		c.Monitor.WindowSize = 20
	}

	if c.Admin.SessionTTL.Duration <= 0 {
		c.Admin.SessionTTL = Duration{Duration: 12 * time.Hour}
	}

	return nil
}

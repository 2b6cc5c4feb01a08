package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	IdleTimeout       Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`

	// AllowOrigins is the CORS allow-list for the browser clients.
	AllowOrigins []string `yaml:"allow_origins"`
}

// UpstreamConfig points at the external prediction service. The engine never
// runs model inference itself; everything goes through this endpoint.
type UpstreamConfig struct {
	BaseURL     string   `yaml:"base_url"`
	PredictPath string   `yaml:"predict_path"`
	HealthPath  string   `yaml:"health_path"`
	LogsPath    string   `yaml:"logs_path"`
	Timeout     Duration `yaml:"timeout"`
	MaxRetries  int      `yaml:"max_retries"`
}

type LiveConfig struct {
	// Debounce is how long input must settle before a live call is dispatched.
	Debounce Duration `yaml:"debounce"`
}

type HistoryConfig struct {
	// Cap bounds the number of stored assessments; oldest entries are evicted.
	Cap int `yaml:"cap"`
}

type MonitorConfig struct {
	Interval Duration `yaml:"interval"`
	// AlertThreshold is the high-risk count in the current log window at or
	// above which the alert flag is raised.
	AlertThreshold int `yaml:"alert_threshold"`
	// WindowSize bounds how many recent log entries a snapshot considers.
	WindowSize int `yaml:"window_size"`
}

type AdminConfig struct {
	Email        string   `yaml:"email"`
	PasswordHash string   `yaml:"password_hash"`
	JWTSecret    string   `yaml:"jwt_secret"`
	SessionTTL   Duration `yaml:"session_ttl"`
}

type DBConfig struct {
	// Path is the local sqlite file. When DSN is set, postgres is used instead.
	Path string `yaml:"path"`
	DSN  string `yaml:"dsn"`
}

type Config struct {
	Env      string         `yaml:"env"`
	HTTP     HTTPConfig     `yaml:"http"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Live     LiveConfig     `yaml:"live"`
	History  HistoryConfig  `yaml:"history"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Admin    AdminConfig    `yaml:"admin"`
	DB       DBConfig       `yaml:"db"`
}

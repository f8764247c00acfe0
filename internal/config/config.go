package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"exchange-analytics-dashboard/internal/preset"
)

// EnvPrefix namespaces every environment variable read by Load.
const EnvPrefix = "DASHBOARD"

// Config holds application configuration loaded from environment variables.
type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:":8080"`
	AppMode  string `envconfig:"APP_MODE" default:"dev"`

	APIBaseURL     string        `envconfig:"API_BASE_URL" default:"http://localhost:8000/api"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s"`

	SearchDelay     time.Duration `envconfig:"SEARCH_DELAY" default:"300ms"`
	SearchMinLength int           `envconfig:"SEARCH_MIN_LENGTH" default:"2"`

	WeekStart string `envconfig:"WEEK_START" default:"sunday"`
	Timezone  string `envconfig:"TIMEZONE" default:"Local"`

	SessionCookie string `envconfig:"SESSION_COOKIE" default:"dashboard_session"`
	CookieSecure  bool   `envconfig:"COOKIE_SECURE" default:"false"`

	SessionIdleTimeout   time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	SessionSweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"1m"`

	HealthPollInterval time.Duration `envconfig:"HEALTH_POLL_INTERVAL" default:"0s"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	weekStart time.Weekday
	location  *time.Location
}

// Load reads configuration from environment variables with sane defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.AppMode = strings.ToLower(c.AppMode)
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")

	u, err := url.Parse(c.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s_API_BASE_URL must be an absolute URL, got %q", EnvPrefix, c.APIBaseURL)
	}

	if c.SearchMinLength < 1 {
		return fmt.Errorf("%s_SEARCH_MIN_LENGTH must be positive", EnvPrefix)
	}
	if c.SearchDelay < 0 || c.RequestTimeout < 0 || c.HealthPollInterval < 0 ||
		c.SessionIdleTimeout < 0 || c.SessionSweepInterval < 0 {
		return fmt.Errorf("%s durations must not be negative", EnvPrefix)
	}

	ws, err := preset.ParseWeekStart(c.WeekStart)
	if err != nil {
		return fmt.Errorf("%s_WEEK_START: %w", EnvPrefix, err)
	}
	c.weekStart = ws

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%s_TIMEZONE: %w", EnvPrefix, err)
	}
	c.location = loc

	if strings.TrimSpace(c.SessionCookie) == "" {
		return fmt.Errorf("%s_SESSION_COOKIE is required", EnvPrefix)
	}
	return nil
}

// FirstDayOfWeek returns the parsed WeekStart.
func (c *Config) FirstDayOfWeek() time.Weekday {
	return c.weekStart
}

// Location returns the time zone used to decide what "today" is.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// IsDev reports whether the app runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// Package config loads vidshare's settings.
//
// Precedence, lowest to highest: built-in defaults, the YAML config file,
// environment variables. Every key has an environment form: prefix VIDSHARE_,
// dots become underscores (api.base_url → VIDSHARE_API_BASE_URL).
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "VIDSHARE"

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	API       APIConfig       `mapstructure:"api"`
	Session   SessionConfig   `mapstructure:"session"`
	View      ViewConfig      `mapstructure:"view"`
	Upload    UploadConfig    `mapstructure:"upload"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

type HTTPConfig struct {
	Port int `mapstructure:"port"`
}

// APIConfig points at the upstream REST API.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SessionConfig struct {
	Backend      string `mapstructure:"backend"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	RedisAddr    string `mapstructure:"redis_addr"`
	CookieSecure bool   `mapstructure:"cookie_secure"`
}

// ViewConfig tunes page instances.
type ViewConfig struct {
	RenderWait   time.Duration `mapstructure:"render_wait"`
	InstanceTTL  time.Duration `mapstructure:"instance_ttl"`
	MaxInstances int           `mapstructure:"max_instances"`
}

type UploadConfig struct {
	MaxBytes int64         `mapstructure:"max_bytes"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Dir      string        `mapstructure:"dir"`
}

// RateLimitConfig throttles the login and signup submits per client IP.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8080)
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("session.backend", BackendSQLite)
	v.SetDefault("session.sqlite_path", "data/sessions.db")
	v.SetDefault("session.redis_addr", "localhost:6379")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("view.render_wait", 2*time.Second)
	v.SetDefault("view.instance_ttl", 30*time.Minute)
	v.SetDefault("view.max_instances", 10000)
	v.SetDefault("upload.max_bytes", int64(512<<20))
	v.SetDefault("upload.timeout", 10*time.Minute)
	v.SetDefault("upload.dir", "")
	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "vidshare")
}

// Load reads the configuration. file may be empty, in which case
// vidshare.yaml is looked up in . and ./configs and is optional.
func Load(file string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("vidshare")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every setting that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	} else if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url %q must be an http(s) URL", c.API.BaseURL))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.HTTP.Port))
	}
	switch c.Session.Backend {
	case BackendSQLite:
		if c.Session.SQLitePath == "" {
			errs = append(errs, errors.New("session.sqlite_path is required for the sqlite backend"))
		}
	case BackendRedis:
		if c.Session.RedisAddr == "" {
			errs = append(errs, errors.New("session.redis_addr is required for the redis backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("session.backend %q must be one of sqlite, redis, memory", c.Session.Backend))
	}
	if c.View.MaxInstances <= 0 {
		errs = append(errs, errors.New("view.max_instances must be positive"))
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.max_bytes must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

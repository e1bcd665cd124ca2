package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/cpcoach/backend/internal/database"
)

type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	RatingSource RatingSourceConfig `koanf:"ratingsource"`
	Cache        CacheConfig        `koanf:"cache"`
	Recommend    RecommendConfig    `koanf:"recommend"`
	Feedback     FeedbackConfig     `koanf:"feedback"`
	RateLimit    RateLimitConfig    `koanf:"ratelimit"`
	Auth         AuthConfig         `koanf:"auth"`
	Coach        CoachConfig        `koanf:"coach"`
	Logging      LoggingConfig      `koanf:"logging"`
}

type ServerConfig struct {
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	CORSOrigins  []string      `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	// Enabled false runs every store in memory.
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
	MaxOpen  int    `koanf:"max_open"`
	MaxIdle  int    `koanf:"max_idle"`
}

func (d DatabaseConfig) Options() database.Options {
	return database.Options{
		Host:     d.Host,
		Port:     d.Port,
		User:     d.User,
		Password: d.Password,
		Name:     d.Name,
		SSLMode:  d.SSLMode,
		MaxOpen:  d.MaxOpen,
		MaxIdle:  d.MaxIdle,
	}
}

type RedisConfig struct {
	// Addr empty selects the in-process cache.
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type RatingSourceConfig struct {
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	MaxRetries        int           `koanf:"max_retries"`
	RetryBase         time.Duration `koanf:"retry_base"`
	RefreshInterval   time.Duration `koanf:"refresh_interval"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	BreakerFailures   uint32        `koanf:"breaker_failures"`
	BreakerCooldown   time.Duration `koanf:"breaker_cooldown"`
}

type CacheConfig struct {
	UserTTL        time.Duration `koanf:"user_ttl"`
	UserMaxEntries int           `koanf:"user_max_entries"`
	ProblemsTTL    time.Duration `koanf:"problems_ttl"`
}

type RecommendConfig struct {
	Limit        int  `koanf:"limit"`
	Window       int  `koanf:"window"`
	TopicFloor   bool `koanf:"topic_floor"`
	SkipCooldown int  `koanf:"skip_cooldown"`
}

type FeedbackConfig struct {
	Timezone string `koanf:"timezone"`
}

type RateLimitConfig struct {
	PerMinute int `koanf:"per_minute"`
	Burst     int `koanf:"burst"`
}

type AuthConfig struct {
	JWTSecret    string        `koanf:"jwt_secret"`
	TokenTTL     time.Duration `koanf:"token_ttl"`
	RequireToken bool          `koanf:"require_token"`
	// AdminKeyHash is a bcrypt hash of the key guarding admin routes.
	AdminKeyHash string `koanf:"admin_key_hash"`
}

type CoachConfig struct {
	AnthropicAPIKey string `koanf:"anthropic_api_key"`
	Model           string `koanf:"model"`
	// CLIPath points at a local claude binary used when no API key is set.
	CLIPath string        `koanf:"cli_path"`
	Timeout time.Duration `koanf:"timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			CORSOrigins:  []string{"*"},
		},
		Database: DatabaseConfig{
			Enabled: true,
			Host:    "localhost",
			Port:    5432,
			User:    "cpcoach",
			Name:    "cpcoach",
			SSLMode: "disable",
			MaxOpen: 25,
			MaxIdle: 5,
		},
		RatingSource: RatingSourceConfig{
			BaseURL:           "https://codeforces.com/api",
			Timeout:           30 * time.Second,
			MaxRetries:        3,
			RetryBase:         time.Second,
			RefreshInterval:   6 * time.Hour,
			RequestsPerSecond: 0.5,
			BreakerFailures:   5,
			BreakerCooldown:   60 * time.Second,
		},
		Cache: CacheConfig{
			UserTTL:        6 * time.Hour,
			UserMaxEntries: 1000,
			ProblemsTTL:    12 * time.Hour,
		},
		Recommend: RecommendConfig{
			Limit:        3,
			Window:       150,
			SkipCooldown: 10,
		},
		Feedback:  FeedbackConfig{Timezone: "UTC"},
		RateLimit: RateLimitConfig{PerMinute: 60, Burst: 10},
		Auth:      AuthConfig{TokenTTL: 72 * time.Hour},
		Coach: CoachConfig{
			Model:   "claude-sonnet-4-5",
			Timeout: 5 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Location resolves the fixed timezone that daily counters roll over in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Feedback.Timezone)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Recommend.Limit <= 0 {
		errs = append(errs, errors.New("recommend.limit must be positive"))
	}
	if c.Recommend.Window <= 0 {
		errs = append(errs, errors.New("recommend.window must be positive"))
	}
	if c.Recommend.SkipCooldown < 0 {
		errs = append(errs, errors.New("recommend.skip_cooldown must not be negative"))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("feedback.timezone: %w", err))
	}
	if c.RatingSource.BaseURL == "" {
		errs = append(errs, errors.New("ratingsource.base_url is required"))
	}
	if c.RatingSource.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("ratingsource.requests_per_second must be positive"))
	}
	if c.RateLimit.PerMinute <= 0 {
		errs = append(errs, errors.New("ratelimit.per_minute must be positive"))
	}
	if c.Auth.RequireToken && c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required when auth.require_token is set"))
	}
	return errors.Join(errs...)
}

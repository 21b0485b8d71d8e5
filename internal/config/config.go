package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/xxxsen/common/logger"
)

const EnvPrefix = "DAILYPEN_"

type Config struct {
	Port            int              `json:"port" env:"PORT"`
	JWTSecret       string           `json:"jwt_secret" env:"JWT_SECRET"`
	JWTTTLHours     int              `json:"jwt_ttl_hours" env:"JWT_TTL_HOURS"`
	DisableRegister bool             `json:"disable_register" env:"DISABLE_REGISTER"`
	CORSAllowlist   []string         `json:"cors_allowlist" env:"CORS_ALLOWLIST" envSeparator:","`
	LogConfig       logger.LogConfig `json:"log_config" env:"-"`
	Database        DatabaseConfig   `json:"database" envPrefix:"DB_"`
	Mail            MailConfig       `json:"mail" envPrefix:"MAIL_"`
	OTP             OTPConfig        `json:"otp" envPrefix:"OTP_"`
	RateLimit       RateLimitConfig  `json:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

type DatabaseConfig struct {
	Type     string      `json:"type" env:"TYPE"`
	DSN      string      `json:"dsn" env:"DSN"`
	Host     string      `json:"host" env:"HOST"`
	Port     int         `json:"port" env:"PORT"`
	User     string      `json:"user" env:"USER"`
	Password string      `json:"password" env:"PASSWORD"`
	DBName   string      `json:"dbname" env:"NAME"`
	SSLMode  string      `json:"sslmode" env:"SSLMODE"`
	Mongo    MongoConfig `json:"mongo" envPrefix:"MONGO_"`
}

type MongoConfig struct {
	URI      string `json:"uri" env:"URI"`
	Database string `json:"database" env:"DATABASE"`
}

type MailConfig struct {
	// Type is "smtp", or "log" for local development (codes are written to the log).
	Type         string `json:"type" env:"TYPE"`
	Host         string `json:"host" env:"HOST"`
	Port         int    `json:"port" env:"PORT"`
	Username     string `json:"username" env:"USERNAME"`
	Password     string `json:"password" env:"PASSWORD"`
	From         string `json:"from" env:"FROM"`
	DisableRetry bool   `json:"disable_retry" env:"DISABLE_RETRY"`
	RetryDelayMS int    `json:"retry_delay_ms" env:"RETRY_DELAY_MS"`
}

type OTPConfig struct {
	TTLSeconds int    `json:"ttl_seconds" env:"TTL_SECONDS"`
	DigestKey  string `json:"digest_key" env:"DIGEST_KEY"`
}

type RateLimitConfig struct {
	// Backend is "memory", "redis" or "off".
	Backend       string      `json:"backend" env:"BACKEND"`
	WindowSeconds int         `json:"window_seconds" env:"WINDOW_SECONDS"`
	MaxRequests   int         `json:"max_requests" env:"MAX_REQUESTS"`
	MaxKeys       int         `json:"max_keys" env:"MAX_KEYS"`
	Redis         RedisConfig `json:"redis" envPrefix:"REDIS_"`
}

type RedisConfig struct {
	Addr     string `json:"addr" env:"ADDR"`
	Password string `json:"password" env:"PASSWORD"`
	DB       int    `json:"db" env:"DB"`
	Prefix   string `json:"prefix" env:"PREFIX"`
}

// Load reads the JSON config at path, applies DAILYPEN_* environment overrides,
// fills defaults and validates the result.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (cfg *Config) normalize() error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.JWTTTLHours == 0 {
		cfg.JWTTTLHours = 72
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if err := cfg.Database.normalize(); err != nil {
		return err
	}
	if err := cfg.Mail.normalize(); err != nil {
		return err
	}
	if cfg.OTP.TTLSeconds <= 0 {
		cfg.OTP.TTLSeconds = 300
	}
	return cfg.RateLimit.normalize()
}

func (c *DatabaseConfig) normalize() error {
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Type == "" {
		c.Type = "postgres"
	}
	switch c.Type {
	case "postgres":
		if c.DSN == "" && c.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if c.Port == 0 {
			c.Port = 5432
		}
	case "mongo":
		if c.Mongo.URI == "" {
			return fmt.Errorf("database.mongo.uri is required for mongo")
		}
		if c.Mongo.Database == "" {
			c.Mongo.Database = "dailypen"
		}
	case "memory":
	default:
		return fmt.Errorf("database.type must be postgres, mongo or memory")
	}
	return nil
}

func (c *MailConfig) normalize() error {
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	if c.Type == "" {
		c.Type = "smtp"
	}
	switch c.Type {
	case "smtp":
		if c.Host == "" || c.Port == 0 || c.From == "" {
			return fmt.Errorf("mail host/port/from are required for smtp")
		}
	case "log":
	default:
		return fmt.Errorf("mail.type must be smtp or log")
	}
	if c.RetryDelayMS <= 0 {
		c.RetryDelayMS = 500
	}
	return nil
}

func (c *RateLimitConfig) normalize() error {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.WindowSeconds <= 0 {
		c.WindowSeconds = 900
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = 100
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = 10000
	}
	switch c.Backend {
	case "memory", "off":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("rate_limit.redis.addr is required for redis backend")
		}
		if c.Redis.Prefix == "" {
			c.Redis.Prefix = "dailypen:rl"
		}
	default:
		return fmt.Errorf("rate_limit.backend must be memory, redis or off")
	}
	return nil
}

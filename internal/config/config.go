// Package config loads service settings from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/technohub6911/smartcropx/internal/ratelimit"
)

const DefaultPath = "config/default.yaml"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	NATS      NATSConfig      `yaml:"nats"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Influx    InfluxConfig    `yaml:"influx"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type TelemetryConfig struct {
	Capacity     int `yaml:"capacity"`
	DefaultHours int `yaml:"default_hours"`
}

type RealtimeConfig struct {
	SendBuffer  int    `yaml:"send_buffer"`
	PresenceKey string `yaml:"presence_key"`
}

type RateLimitConfig struct {
	SoilData ratelimit.LimitConfig `yaml:"soil_data"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type NATSConfig struct {
	URL             string `yaml:"url"`
	Subject         string `yaml:"subject"`
	PublishRetryMax int    `yaml:"publish_retry_max"`
	TrackedDevices  int    `yaml:"tracked_devices"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Default returns the configuration used when no file is present.
// Backends with an empty address stay disabled.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            "8080",
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Telemetry: TelemetryConfig{Capacity: 100, DefaultHours: 24},
		Realtime:  RealtimeConfig{SendBuffer: 32, PresenceKey: "presence:online"},
		RateLimit: RateLimitConfig{
			SoilData: ratelimit.LimitConfig{Rate: 120, Window: time.Minute},
		},
		NATS: NATSConfig{
			Subject:         "irrigation.actuations",
			PublishRetryMax: 3,
			TrackedDevices:  1024,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Config: %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Port, "PORT")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.NATS.URL, "NATS_URL")
	setString(&c.Influx.URL, "INFLUXDB_URL")
	setString(&c.Influx.Token, "INFLUXDB_TOKEN")
	setString(&c.Influx.Org, "INFLUXDB_ORG")
	setString(&c.Influx.Bucket, "INFLUXDB_BUCKET")

	if v := os.Getenv("TELEMETRY_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Telemetry.Capacity = n
		} else {
			log.Printf("Config: ignoring TELEMETRY_CAPACITY=%q: %v", v, err)
		}
	}

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Postgres.DSN = dsn
	} else if host := os.Getenv("DB_HOST"); host != "" {
		c.Postgres.DSN = fmt.Sprintf("postgres://%s:%s@%s:5432/%s?sslmode=disable",
			os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), host, os.Getenv("DB_NAME"))
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("config: server.port is required")
	}
	if c.Telemetry.Capacity <= 0 {
		return fmt.Errorf("config: telemetry.capacity must be positive, got %d", c.Telemetry.Capacity)
	}
	if c.Telemetry.DefaultHours <= 0 {
		return fmt.Errorf("config: telemetry.default_hours must be positive, got %d", c.Telemetry.DefaultHours)
	}
	if c.RateLimit.SoilData.Rate < 0 || c.RateLimit.SoilData.Window < 0 {
		return errors.New("config: rate_limit.soil_data must not be negative")
	}
	if c.Influx.URL != "" && (c.Influx.Org == "" || c.Influx.Bucket == "") {
		return errors.New("config: influx.org and influx.bucket are required when influx.url is set")
	}
	return nil
}

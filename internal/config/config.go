package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "FOLLOWUP"

type App struct {
	Name      string `mapstructure:"name"`
	Port      int    `mapstructure:"port"`
	PublicURL string `mapstructure:"public_url"`
}

type Database struct {
	URL             string        `mapstructure:"url"`
	ReportingURL    string        `mapstructure:"reporting_url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type Redis struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

type RabbitMQ struct {
	Enabled            bool          `mapstructure:"enabled"`
	URL                string        `mapstructure:"url"`
	DeliveryCheckDelay time.Duration `mapstructure:"delivery_check_delay"`
}

type SendPulse struct {
	BaseURL      string        `mapstructure:"base_url"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	BotID        string        `mapstructure:"bot_id"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type SMTP struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
}

type Tracking struct {
	BaseURL   string `mapstructure:"base_url"`
	HomeURL   string `mapstructure:"home_url"`
	SearchURL string `mapstructure:"search_url"`
	// RateLimit is the number of /track_click requests allowed per client IP
	// per minute. Zero disables the limit.
	RateLimit int `mapstructure:"rate_limit"`
}

type Webhook struct {
	Secret string `mapstructure:"secret"`
}

type Scheduler struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

type Telemetry struct {
	Enabled      bool    `mapstructure:"enabled"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	App       App       `mapstructure:"app"`
	Database  Database  `mapstructure:"database"`
	Redis     Redis     `mapstructure:"redis"`
	RabbitMQ  RabbitMQ  `mapstructure:"rabbitmq"`
	SendPulse SendPulse `mapstructure:"sendpulse"`
	SMTP      SMTP      `mapstructure:"smtp"`
	Tracking  Tracking  `mapstructure:"tracking"`
	Webhook   Webhook   `mapstructure:"webhook"`
	Scheduler Scheduler `mapstructure:"scheduler"`
	Telemetry Telemetry `mapstructure:"telemetry"`
	Log       Log       `mapstructure:"log"`
}

// Load reads .env (if present), then the YAML file at path (if present),
// then FOLLOWUP_* environment variables, later sources winning.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lead-followup")
	v.SetDefault("app.port", 8080)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.lock_ttl", 2*time.Minute)
	v.SetDefault("rabbitmq.delivery_check_delay", 60*time.Second)
	v.SetDefault("sendpulse.base_url", "https://api.sendpulse.com")
	v.SetDefault("sendpulse.timeout", 15*time.Second)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("tracking.home_url", "https://bimedis.com")
	v.SetDefault("tracking.search_url", "https://bimedis.com/search")
	v.SetDefault("tracking.rate_limit", 60)
	v.SetDefault("scheduler.interval", time.Hour)
	v.SetDefault("telemetry.sample_rate", 1.0)
	v.SetDefault("log.level", "info")

	// keys without a default must be bound for Unmarshal to see them
	for _, key := range []string{
		"app.public_url",
		"database.url", "database.reporting_url",
		"redis.enabled", "redis.password", "redis.db",
		"rabbitmq.enabled", "rabbitmq.url",
		"sendpulse.client_id", "sendpulse.client_secret", "sendpulse.bot_id",
		"smtp.host", "smtp.username", "smtp.password", "smtp.from",
		"tracking.base_url",
		"webhook.secret",
		"scheduler.enabled",
		"telemetry.enabled", "telemetry.otlp_endpoint",
	} {
		_ = v.BindEnv(key)
	}
}

type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate lists every missing or inconsistent setting.
func (c *Config) Validate() []FieldError {
	var errs []FieldError
	required := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			errs = append(errs, FieldError{field, "is required"})
		}
	}

	required("database.url", c.Database.URL)
	required("sendpulse.client_id", c.SendPulse.ClientID)
	required("sendpulse.client_secret", c.SendPulse.ClientSecret)
	required("sendpulse.bot_id", c.SendPulse.BotID)
	required("smtp.host", c.SMTP.Host)
	required("smtp.from", c.SMTP.From)
	required("tracking.base_url", c.Tracking.BaseURL)

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, FieldError{"app.port", "must be between 1 and 65535"})
	}
	if c.Redis.Enabled {
		required("redis.addr", c.Redis.Addr)
	}
	if c.RabbitMQ.Enabled {
		required("rabbitmq.url", c.RabbitMQ.URL)
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, FieldError{"scheduler.interval", "must be positive"})
	}
	if c.Telemetry.Enabled {
		required("telemetry.otlp_endpoint", c.Telemetry.OTLPEndpoint)
	}

	return errs
}

// ReportingDSN falls back to the primary database when no reporting replica is
// configured.
func (c *Config) ReportingDSN() string {
	if c.Database.ReportingURL != "" {
		return c.Database.ReportingURL
	}
	return c.Database.URL
}

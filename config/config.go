package config

import (
	"errors"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	SessionStrategyStore = "store"
	SessionStrategyJWT   = "jwt"

	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQL    = "sql"
)

// HTTPConfig holds the listener and cookie settings
type HTTPConfig struct {
	Addr         string `json:"addr" default:":8080"`
	CookieName   string `json:"cookie_name" split_words:"true" default:"walletauth_session"`
	CookieSecure bool   `json:"cookie_secure" split_words:"true" default:"true"`
}

// ChallengeConfig controls challenge issuance
type ChallengeConfig struct {
	TTL    time.Duration `json:"ttl" default:"60s"`
	Prefix string        `json:"prefix" default:"Authentication request\n"`
}

// SessionConfig selects and tunes the session strategy
type SessionConfig struct {
	Strategy string        `json:"strategy" default:"store"`
	TTL      time.Duration `json:"ttl" default:"24h"`
	// KeyFile is a PEM encoded P-256 key, required for the jwt strategy
	KeyFile string `json:"key_file" split_words:"true"`
}

// StoreConfig selects where challenges, sessions and revocations live
type StoreConfig struct {
	Backend       string        `json:"backend" default:"memory"`
	RedisURL      string        `json:"redis_url" envconfig:"REDIS_URL"`
	DSN           string        `json:"dsn"`
	SweepInterval time.Duration `json:"sweep_interval" split_words:"true" default:"30m"`
}

// EventsConfig controls login/logout notifications
type EventsConfig struct {
	Enabled bool   `json:"enabled"`
	Topic   string `json:"topic" default:"walletauth.events"`
}

// LoggingConfig mirrors the usual LOG_* settings
type LoggingConfig struct {
	Level  string            `json:"log_level" default:"info"`
	File   string            `json:"log_file"`
	Fields map[string]string `json:"fields"`
}

var ErrEventsNeedRedis = errors.New("events: redis_url must be set when events are enabled")

// Config is the root configuration, read from WALLETAUTH_* variables
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Challenge ChallengeConfig `json:"challenge"`
	Session   SessionConfig   `json:"session"`
	Store     StoreConfig     `json:"store"`
	Events    EventsConfig    `json:"events"`
	Logging   LoggingConfig   `json:"logging" envconfig:"LOG"`
}

func loadEnvironment(filename string) error {
	var err error
	if filename != "" {
		err = godotenv.Overload(filename)
	} else {
		err = godotenv.Load()
		// no .env file is fine
		if os.IsNotExist(err) {
			return nil
		}
	}
	return err
}

// Load reads an optional env file, then the environment, and validates the
// result
func Load(filename string) (*Config, error) {
	if err := loadEnvironment(filename); err != nil {
		return nil, err
	}

	config := new(Config)
	if err := envconfig.Process("walletauth", config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the settings are consistent
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.HTTP),
		validation.Field(&c.Challenge),
		validation.Field(&c.Session),
		validation.Field(&c.Store),
		validation.Field(&c.Events),
		validation.Field(&c.Logging),
	); err != nil {
		return err
	}

	// events travel over redis streams
	if c.Events.Enabled && c.Store.RedisURL == "" {
		return ErrEventsNeedRedis
	}
	return nil
}

func (c HTTPConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Addr, validation.Required),
		validation.Field(&c.CookieName, validation.Required),
	)
}

func (c ChallengeConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.Prefix, validation.Required),
	)
}

func (c SessionConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Strategy, validation.Required, validation.In(SessionStrategyStore, SessionStrategyJWT)),
		validation.Field(&c.TTL, validation.Min(time.Duration(0)), requiredIf(c.Strategy == SessionStrategyJWT)),
		validation.Field(&c.KeyFile, requiredIf(c.Strategy == SessionStrategyJWT)),
	)
}

func (c StoreConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendMemory, BackendRedis, BackendSQL)),
		validation.Field(&c.RedisURL, requiredIf(c.Backend == BackendRedis)),
		validation.Field(&c.DSN, requiredIf(c.Backend == BackendSQL)),
		validation.Field(&c.SweepInterval, validation.Min(time.Duration(0))),
	)
}

func (c EventsConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Topic, requiredIf(c.Enabled)),
	)
}

func (c LoggingConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Level, validation.In("trace", "debug", "info", "warn", "warning", "error", "fatal", "panic")),
	)
}

func requiredIf(cond bool) validation.Rule {
	if cond {
		return validation.Required
	}
	return validation.Skip
}

package config

import (
	"fmt"
	"time"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout"`
	CORSOrigins     string        `mapstructure:"cors_origins"`
}

// Addr returns the listen address. A bare port wins over http_addr so the
// PORT convention of hosted platforms keeps working.
func (s Server) Addr() string {
	if s.Port > 0 {
		return fmt.Sprintf(":%d", s.Port)
	}
	return s.HTTPAddr
}

type DB struct {
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	Debug        bool   `mapstructure:"debug"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

type Auth struct {
	SigningKey             string        `mapstructure:"signing_key"`
	SigningMethod          string        `mapstructure:"signing_method"`
	KeyID                  string        `mapstructure:"key_id"`
	TokenTTL               time.Duration `mapstructure:"token_ttl"`
	BcryptCost             int           `mapstructure:"bcrypt_cost"`
	AuthScheme             string        `mapstructure:"auth_scheme"`
	TokenLookup            string        `mapstructure:"token_lookup"`
	ContextKey             string        `mapstructure:"context_key"`
	StrictActivityTracking bool          `mapstructure:"strict_activity_tracking"`
	UseHashid              bool          `mapstructure:"use_hashid"`
}

func (a Auth) GetSigningKey() string             { return a.SigningKey }
func (a Auth) GetSigningMethod() string          { return a.SigningMethod }
func (a Auth) GetKeyID() string                  { return a.KeyID }
func (a Auth) GetContextKey() string             { return a.ContextKey }
func (a Auth) GetTokenExpiration() time.Duration { return a.TokenTTL }
func (a Auth) GetTokenLookup() string            { return a.TokenLookup }
func (a Auth) GetAuthScheme() string             { return a.AuthScheme }
func (a Auth) GetBcryptCost() int                { return a.BcryptCost }
func (a Auth) GetStrictActivityTracking() bool   { return a.StrictActivityTracking }
func (a Auth) GetUseHashid() bool                { return a.UseHashid }

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type Config struct {
	App     App     `mapstructure:"app"`
	Server  Server  `mapstructure:"server"`
	DB      DB      `mapstructure:"db"`
	Auth    Auth    `mapstructure:"auth"`
	Log     Log     `mapstructure:"log"`
	Metrics Metrics `mapstructure:"metrics"`
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }

const (
	ErrEmptySigningKey   = ErrConfig("config: auth.signing_key must not be empty")
	ErrUnsupportedDriver = ErrConfig("config: db.driver must be sqlite or postgres")
	ErrBcryptCost        = ErrConfig("config: auth.bcrypt_cost must be between 4 and 31")
	ErrSigningMethod     = ErrConfig("config: auth.signing_method must be HS256")
	ErrTokenTTL          = ErrConfig("config: auth.token_ttl must not be negative")
)

// Validate rejects configurations the service can not start with
func (c *Config) Validate() error {
	if c.Auth.SigningKey == "" {
		return ErrEmptySigningKey
	}
	if c.Auth.SigningMethod != "" && c.Auth.SigningMethod != "HS256" {
		return ErrSigningMethod
	}
	if c.Auth.TokenTTL < 0 {
		return ErrTokenTTL
	}
	switch c.DB.Driver {
	case "sqlite", "postgres":
	default:
		return ErrUnsupportedDriver
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return ErrBcryptCost
	}
	return nil
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.Auth.SigningKey != "" {
		c.Auth.SigningKey = "********"
	}
	if c.DB.DSN != "" && c.DB.Driver == "postgres" {
		c.DB.DSN = "********"
	}
	return c
}

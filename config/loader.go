package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. PILEAPI_DB_DSN
const EnvPrefix = "PILEAPI"

// Load reads the optional YAML file at path, applies defaults and
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetDefault("app.name", "pile-api")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "dev")

	v.SetDefault("server.http_addr", ":3000")
	v.SetDefault("server.port", 0)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_timeout", "15s")
	v.SetDefault("server.cors_origins", "*")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:pileapi.db?cache=shared")
	v.SetDefault("db.debug", false)
	v.SetDefault("db.max_open_conns", 10)
	v.SetDefault("db.auto_migrate", true)

	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.signing_method", "HS256")
	v.SetDefault("auth.key_id", "pileapi")
	v.SetDefault("auth.token_ttl", "720h")
	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.auth_scheme", "Bearer")
	v.SetDefault("auth.token_lookup", "header:Authorization")
	v.SetDefault("auth.context_key", "user")
	v.SetDefault("auth.strict_activity_tracking", false)
	v.SetDefault("auth.use_hashid", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// names used by existing deployments
	_ = v.BindEnv("auth.signing_key", EnvPrefix+"_AUTH_SIGNING_KEY", "JWT_SECRET")
	_ = v.BindEnv("db.dsn", EnvPrefix+"_DB_DSN", "CONNECTION_URI")
	_ = v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	GMaps    GMapsConfig    `yaml:"gmaps" mapstructure:"gmaps"`
	Opendata OpendataConfig `yaml:"opendata" mapstructure:"opendata"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	Travel   TravelConfig   `yaml:"travel" mapstructure:"travel"`
	Render   RenderConfig   `yaml:"render" mapstructure:"render"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the session database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GMapsConfig holds Google Maps API settings shared by the geocoding and
// directions clients.
type GMapsConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// OpendataConfig holds Opendatasoft download settings.
type OpendataConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// CacheConfig configures the geocode/directions response cache.
type CacheConfig struct {
	Backend       string `yaml:"backend" mapstructure:"backend"`
	MaxEntries    int    `yaml:"max_entries" mapstructure:"max_entries"`
	TTLHours      int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// TravelConfig configures route evaluation.
type TravelConfig struct {
	Origin      string `yaml:"origin" mapstructure:"origin"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"`
}

// RenderConfig configures map rendering.
type RenderConfig struct {
	Style string `yaml:"style" mapstructure:"style"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TRANSIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "transit-ratio.db")
	v.SetDefault("gmaps.base_url", "https://maps.googleapis.com")
	v.SetDefault("gmaps.timeout_secs", 10)
	v.SetDefault("gmaps.rate_limit", 10)
	v.SetDefault("opendata.base_url", "https://public.opendatasoft.com")
	v.SetDefault("opendata.timeout_secs", 30)
	v.SetDefault("opendata.rate_limit", 5)
	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 1024)
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("travel.origin", "Victoria Station, London")
	v.SetDefault("travel.concurrency", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that required settings are present for the given command
// mode. Modes: "retrieve" (open data only), "travel" (Google APIs),
// "serve" (Google APIs plus HTTP server).
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "retrieve":
	case "travel":
		if c.GMaps.Key == "" {
			problems = append(problems, "gmaps.key is required (set TRANSIT_GMAPS_KEY)")
		}
	case "serve":
		if c.GMaps.Key == "" {
			problems = append(problems, "gmaps.key is required (set TRANSIT_GMAPS_KEY)")
		}
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		problems = append(problems, "cache.backend must be memory or redis")
	}
	if c.Cache.Backend == "redis" && c.Cache.RedisAddr == "" {
		problems = append(problems, "cache.redis_addr is required for the redis backend")
	}
	if c.Travel.Concurrency < 1 || c.Travel.Concurrency > 32 {
		problems = append(problems, "travel.concurrency must be between 1 and 32")
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

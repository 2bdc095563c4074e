package config

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Session  SessionConfig  `mapstructure:"session"`
	Roster   RosterConfig   `mapstructure:"roster"`
	Players  PlayersConfig  `mapstructure:"players"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DatabaseConfig struct {
	// DSN accepts sqlite:///path.db, a bare sqlite path, postgres://... or mysql://...
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookieName"`
	Expire     int    `mapstructure:"expire"` // hours
	Secure     bool   `mapstructure:"secure"`
}

type RosterConfig struct {
	Store           string `mapstructure:"store"` // memory, redis
	PropagateTables []int  `mapstructure:"propagateTables"`
}

type PlayersConfig struct {
	ReuseByName bool `mapstructure:"reuseByName"`
}

const (
	RosterStoreMemory = "memory"
	RosterStoreRedis  = "redis"
)

var GlobalConfig *Config

// well-known variables from the Heroku-style deployment, bound on top of the
// generic SECTION_KEY overrides.
var envAliases = map[string]string{
	"database.dsn":   "DATABASE_URL",
	"session.secret": "SECRET_KEY",
	"redis.url":      "REDIS_URL",
	"server.port":    "PORT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5000")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.dsn", "sqlite:///poker_game.db")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("session.secret", "dev-secret-change-me")
	v.SetDefault("session.cookieName", "pokernight_session")
	v.SetDefault("session.expire", 24)
	v.SetDefault("session.secure", false)
	v.SetDefault("roster.store", RosterStoreMemory)
	v.SetDefault("roster.propagateTables", []int{})
	v.SetDefault("players.reuseByName", true)
}

// Load reads the optional YAML file at path and applies defaults and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, err
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

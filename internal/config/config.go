package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Cache struct {
		// memory | redis
		Kind  string `yaml:"kind"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Discord struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		// APIBase permite apuntar a un mock en tests/staging.
		// Default: https://discord.com/api/v10
		APIBase string `yaml:"api_base"`
	} `yaml:"discord"`

	Keys struct {
		// TTL de la clave de firma en cache (ambas mitades). Default: 1h
		TTL string `yaml:"ttl"`
	} `yaml:"keys"`

	Token struct {
		// TTL del id_token emitido. Default: 1h
		TTL string `yaml:"ttl"`
	} `yaml:"token"`
}

// Load lee el YAML (si existe), aplica defaults y luego overrides por ENV.
// El archivo es opcional: con path vacío o inexistente se arranca solo con
// defaults + ENV.
func Load(path string) (*Config, error) {
	c := &Config{}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	c.applyDefaults()
	c.applyEnv()

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "littlejohn"
	}
	if c.Discord.APIBase == "" {
		c.Discord.APIBase = "https://discord.com/api/v10"
	}
	if c.Keys.TTL == "" {
		c.Keys.TTL = "1h"
	}
	if c.Token.TTL == "" {
		c.Token.TTL = "1h"
	}
}

func (c *Config) applyEnv() {
	c.App.Env = getenv("APP_ENV", c.App.Env)
	c.Server.Addr = getenv("SERVER_ADDR", c.Server.Addr)
	c.Log.Level = getenv("LOG_LEVEL", c.Log.Level)

	c.Cache.Kind = getenv("CACHE_KIND", c.Cache.Kind)
	c.Cache.Redis.Addr = getenv("CACHE_REDIS_ADDR", c.Cache.Redis.Addr)
	c.Cache.Redis.Password = getenv("CACHE_REDIS_PASSWORD", c.Cache.Redis.Password)
	c.Cache.Redis.DB = getenvInt("CACHE_REDIS_DB", c.Cache.Redis.DB)
	c.Cache.Redis.Prefix = getenv("CACHE_REDIS_PREFIX", c.Cache.Redis.Prefix)

	c.Discord.ClientID = getenv("DISCORD_CLIENT_ID", c.Discord.ClientID)
	c.Discord.ClientSecret = getenv("DISCORD_CLIENT_SECRET", c.Discord.ClientSecret)
	c.Discord.APIBase = getenv("DISCORD_API_BASE", c.Discord.APIBase)

	c.Keys.TTL = getenv("KEYS_TTL", c.Keys.TTL)
	c.Token.TTL = getenv("TOKEN_TTL", c.Token.TTL)
}

func (c *Config) validate() error {
	if c.Discord.ClientID == "" {
		return fmt.Errorf("config: discord.client_id es requerido (env DISCORD_CLIENT_ID)")
	}
	if c.Discord.ClientSecret == "" {
		return fmt.Errorf("config: discord.client_secret es requerido (env DISCORD_CLIENT_SECRET)")
	}
	if _, err := time.ParseDuration(c.Keys.TTL); err != nil {
		return fmt.Errorf("config: keys.ttl inválido: %w", err)
	}
	if _, err := time.ParseDuration(c.Token.TTL); err != nil {
		return fmt.Errorf("config: token.ttl inválido: %w", err)
	}
	return nil
}

// KeyTTL retorna keys.ttl parseado. Load ya validó el formato.
func (c *Config) KeyTTL() time.Duration {
	d, _ := time.ParseDuration(c.Keys.TTL)
	return d
}

// TokenTTL retorna token.ttl parseado. Load ya validó el formato.
func (c *Config) TokenTTL() time.Duration {
	d, _ := time.ParseDuration(c.Token.TTL)
	return d
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

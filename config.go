package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config holds the application's runtime configuration. It is loaded
// from a .config.json file if one is present, with environment
// variables taking precedence over both the file and the defaults.
type Config struct {
	Port      int    `json:"port"`
	Env       string `json:"env"`
	JWTSecret string `json:"jwt_secret"`
	// DatabaseURL is a postgres connection string. When empty, the app
	// falls back to an embedded sqlite database under ./data.
	DatabaseURL string `json:"database_url"`
	// RedisAddr is a host:port pair. When empty, caching happens in memory.
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
}

func (c Config) IsProd() bool {
	return c.Env == "prod"
}

func DefaultConfig() Config {
	return Config{
		Port:      3000,
		Env:       "dev",
		JWTSecret: "jwt-conduit-secret",
	}
}

// LoadConfig reads .config.json if present, otherwise returns the
// default dev setup. In production the file is required. Environment
// variables override whatever was loaded.
func LoadConfig(prod bool) Config {
	c := DefaultConfig()
	f, err := os.Open(".config.json")
	if err != nil {
		if prod {
			panic("running with -prod requires a .config.json file")
		}
	} else {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(&c); err != nil {
			panic(fmt.Errorf("err parsing .config.json: %w", err))
		}
		fmt.Println("Successfully loaded .config.json")
	}
	if prod {
		c.Env = "prod"
	}
	applyEnv(&c)
	return c
}

func applyEnv(c *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
}

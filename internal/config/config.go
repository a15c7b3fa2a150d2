// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the chat server.
type Config struct {
	// Port the coordinator listens on for client connections.
	Port int `validate:"gte=1,lte=65535"`
	// MaxRooms bounds the room table; creation beyond it fails.
	MaxRooms int `validate:"gte=1"`
	// BindAddr is the bind address for the listener, empty for all interfaces.
	BindAddr string
}

const (
	defaultPort     = 8888
	defaultMaxRooms = 15
)

// New loads configuration from environment variables, falling back to the
// defaults when unset.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		Port:     defaultPort,
		MaxRooms: defaultMaxRooms,
		BindAddr: os.Getenv("PARLEY_BIND_ADDR"),
	}

	if v := os.Getenv("PARLEY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PARLEY_PORT %q: %w", v, err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("PARLEY_MAX_ROOMS"); v != "" {
		maxRooms, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PARLEY_MAX_ROOMS %q: %w", v, err)
		}
		cfg.MaxRooms = maxRooms
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}

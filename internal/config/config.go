// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// Config holds all application configuration.
type Config struct {
	Port             string
	ChatServer       string
	ChatPort         int
	HandshakeTimeout time.Duration
	Debug            bool
	AllowedOrigins   []string
	Monitor          MonitorConfig
}

// MonitorConfig controls the operator event feed.
type MonitorConfig struct {
	Enabled   bool
	QueueSize int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := fromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadWithArgs reads the environment and then overlays command-line flags.
// The first positional argument, if any, names the chat server host.
func LoadWithArgs(args []string) (*Config, error) {
	cfg := fromEnv()
	if err := cfg.ApplyFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		Port:             getEnv("PORT", "50355"),
		ChatServer:       getEnv("CHAT_SERVER", ""),
		ChatPort:         getEnvInt("CHAT_PORT", 22222),
		HandshakeTimeout: getEnvDuration("HANDSHAKE_TIMEOUT", 10*time.Second),
		Debug:            getEnvBool("DEBUG", true),
		AllowedOrigins:   getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		Monitor: MonitorConfig{
			Enabled:   getEnvBool("MONITOR_ENABLED", true),
			QueueSize: getEnvInt("MONITOR_QUEUE_SIZE", 64),
		},
	}
}

// ApplyFlags overlays command-line flags on top of the current values.
// Flags that are not given keep the environment value.
func (c *Config) ApplyFlags(args []string) error {
	fs := pflag.NewFlagSet("scratchat", pflag.ContinueOnError)
	port := fs.StringP("port", "p", c.Port, "HTTP port for the polling client")
	chatServer := fs.StringP("chat-server", "s", c.ChatServer, "chat service host")
	chatPort := fs.Int("chat-port", c.ChatPort, "chat service TCP port")
	handshake := fs.Duration("handshake-timeout", c.HandshakeTimeout, "deadline for the chat greeting")
	verbose := fs.BoolP("verbose", "v", c.Debug, "debug logging")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	c.Port = *port
	c.ChatServer = *chatServer
	c.ChatPort = *chatPort
	c.HandshakeTimeout = *handshake
	c.Debug = *verbose
	if rest := fs.Args(); len(rest) > 0 && !fs.Changed("chat-server") {
		c.ChatServer = rest[0]
	}
	return nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("PORT must be a number in 1..65535, got %q", c.Port)
	}
	if c.ChatServer == "" {
		return fmt.Errorf("CHAT_SERVER cannot be empty")
	}
	if c.ChatPort < 1 || c.ChatPort > 65535 {
		return fmt.Errorf("CHAT_PORT must be in 1..65535, got %d", c.ChatPort)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT must be > 0")
	}
	if c.Monitor.QueueSize <= 0 {
		return fmt.Errorf("MONITOR_QUEUE_SIZE must be > 0")
	}
	return nil
}

// ChatAddr returns the chat service address in host:port form.
func (c *Config) ChatAddr() string {
	return c.ChatServer + ":" + strconv.Itoa(c.ChatPort)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

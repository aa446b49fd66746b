// Package config loads the connection settings for a Transmission daemon from
// a TOML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dogmatiq/transmission"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultPath is the location of the configuration file used when no path is
// given.
const DefaultPath = "~/.config/transmission-rpc/config.toml"

// Config is the content of a configuration file.
type Config struct {
	Scheme   string `toml:"scheme"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Path     string `toml:"path"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	// Transport contains named transport options, as accepted by
	// transmission.OptionsFromMap().
	Transport map[string]any `toml:"transport"`
}

// Load reads the configuration file at path.
//
// If path is empty, DefaultPath is used. A missing file is not an error; the
// zero Config is returned, which connects to the daemon's default endpoint.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a configuration from r.
func Parse(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.Scheme = strings.TrimSpace(cfg.Scheme)
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.Path = strings.TrimSpace(cfg.Path)

	if cfg.Port < 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("parse config: port %d is out of range", cfg.Port)
	}

	if _, err := transmission.OptionsFromMap(cfg.Transport); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// ClientConfig returns the endpoint configuration for a client.
func (c Config) ClientConfig() transmission.Config {
	return transmission.Config{
		Scheme: c.Scheme,
		Host:   c.Host,
		Port:   c.Port,
		Path:   c.Path,
	}
}

// NewClient returns a client configured according to c.
//
// Additional options are applied after the transport options from the
// configuration file. If c contains a username or password the client is
// authenticated.
func (c Config) NewClient(options ...transmission.Option) (*transmission.Client, error) {
	opts, err := transmission.OptionsFromMap(c.Transport)
	if err != nil {
		return nil, err
	}

	client := transmission.New(
		c.ClientConfig(),
		append(opts, options...)...,
	)

	if c.Username != "" || c.Password != "" {
		client.Authenticate(c.Username, c.Password)
	}

	return client, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}

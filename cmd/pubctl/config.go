package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// pubctl config.toml key mapping to client settings.
type fileConfig struct {
	Server    string `toml:"server"`
	Publisher string `toml:"publisher"`
	Timeout   string `toml:"timeout"`
}

type clientConfig struct {
	Server    string
	Publisher string
	Timeout   time.Duration
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		Server:  "http://localhost:8181",
		Timeout: 10 * time.Second,
	}
}

// loadClientConfig overlays the keys defined in path onto the defaults. A
// missing file yields the defaults unless required is set.
func loadClientConfig(path string, required bool) (clientConfig, error) {
	cfg := defaultClientConfig()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !required {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return clientConfig{}, fmt.Errorf("load pubctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return clientConfig{}, fmt.Errorf("load pubctl config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("server") {
		cfg.Server = strings.TrimSpace(raw.Server)
	}
	if meta.IsDefined("publisher") {
		cfg.Publisher = strings.TrimSpace(raw.Publisher)
	}
	if meta.IsDefined("timeout") {
		timeout, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return clientConfig{}, fmt.Errorf("load pubctl config: timeout: %w", err)
		}
		if timeout <= 0 {
			return clientConfig{}, fmt.Errorf("load pubctl config: timeout must be positive")
		}
		cfg.Timeout = timeout
	}
	return cfg, nil
}

func (c clientConfig) validate() error {
	if strings.TrimSpace(c.Server) == "" {
		return fmt.Errorf("server is required")
	}
	if strings.TrimSpace(c.Publisher) == "" {
		return fmt.Errorf("publisher is required")
	}
	return nil
}

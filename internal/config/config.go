package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/pubd/internal/protocol/rsync"
	"github.com/pelletier/go-toml/v2"
)

const DefaultMaxBodyBytes int64 = 8 * 1024 * 1024

// ServerConfig is the pubd config.toml shape.
type ServerConfig struct {
	ID           string            `toml:"id"`
	Addr         string            `toml:"addr"`
	CorsOrigins  []string          `toml:"cors_origins"`
	MaxBodyBytes int64             `toml:"max_body_bytes"`
	Publishers   []PublisherConfig `toml:"publishers"`
}

// PublisherConfig registers one publishing client.
type PublisherConfig struct {
	Handle  string `toml:"handle"`
	BaseURI string `toml:"base_uri"`
}

func LoadServerConfig(path string) (ServerConfig, error) {
	var cfg ServerConfig
	if err := loadToml(path, &cfg); err != nil {
		return ServerConfig{}, err
	}
	if cfg.ID == "" {
		cfg.ID = "pubd"
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8181"
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if err := ValidateServerConfig(cfg); err != nil {
		return ServerConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateServerConfig(cfg ServerConfig) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return fmt.Errorf("server config missing id")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("server config missing addr")
	}
	if cfg.MaxBodyBytes < 0 {
		return fmt.Errorf("server config max_body_bytes must be positive")
	}
	seen := make(map[string]struct{}, len(cfg.Publishers))
	for i, p := range cfg.Publishers {
		if err := ValidatePublisherEntry(p); err != nil {
			return fmt.Errorf("publisher[%d] invalid: %w", i, err)
		}
		handle := strings.TrimSpace(p.Handle)
		if _, ok := seen[handle]; ok {
			return fmt.Errorf("publisher[%d] invalid: duplicate handle %q", i, handle)
		}
		seen[handle] = struct{}{}
	}
	return nil
}

func ValidatePublisherEntry(cfg PublisherConfig) error {
	if strings.TrimSpace(cfg.Handle) == "" {
		return fmt.Errorf("handle is required")
	}
	base, err := rsync.Parse(strings.TrimSpace(cfg.BaseURI))
	if err != nil {
		return err
	}
	if !base.IsDirectory() {
		return fmt.Errorf("base_uri must end with a slash")
	}
	return nil
}

// ParsedBaseURI returns the parsed base directory; the entry must have passed
// ValidatePublisherEntry.
func (p PublisherConfig) ParsedBaseURI() rsync.URI {
	return rsync.MustParse(strings.TrimSpace(p.BaseURI))
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config carries the service-level settings for judged. The [alloc] table
// maps bech32 addresses to decimal balances funded once on a fresh data
// directory.
type Config struct {
	RPCAddress    string            `toml:"RPCAddress"`
	DataDir       string            `toml:"DataDir"`
	NetworkName   string            `toml:"NetworkName"`
	CollateralBps uint32            `toml:"CollateralBps"`
	Alloc         map[string]string `toml:"alloc"`
}

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = "127.0.0.1:8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./judged-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "judged-local"
	}
	if cfg.CollateralBps == 0 {
		cfg.CollateralBps = 100
	}
	if cfg.Alloc == nil {
		cfg.Alloc = map[string]string{}
	}
}

// Validate rejects configurations the engine cannot honour.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil config")
	}
	if cfg.CollateralBps > 10_000 {
		return fmt.Errorf("config: CollateralBps %d exceeds 10000", cfg.CollateralBps)
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

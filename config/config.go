package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"citadel/native/funding"
)

// Config is the top-level TOML configuration for a funding service.
type Config struct {
	RPCAddress string         `toml:"RPCAddress"`
	DataDir    string         `toml:"DataDir"`
	Env        string         `toml:"Env"`
	Funding    funding.Config `toml:"funding"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		RPCAddress: "127.0.0.1:8645",
		DataDir:    "./citadel-data",
		Env:        "dev",
	}
}

// Load reads the configuration from the given path. A missing file yields the
// defaults; unknown keys are rejected so typos surface early.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config: unknown key %s in %s", undecoded[0], path)
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = Default().RPCAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = Default().DataDir
	}
	return cfg, nil
}

// FundingParameters validates and converts the [funding] table.
func (c *Config) FundingParameters() (funding.Parameters, error) {
	return c.Funding.Parameters()
}

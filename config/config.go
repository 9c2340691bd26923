package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"escrowd/crypto"
	"escrowd/native/platform"

	"github.com/BurntSushi/toml"
)

// Genesis seeds the platform configuration on first boot. All three fields
// must be set together; a daemon started without them serves escrow reads but
// rejects settlements until platform_initialize is called over RPC.
type Genesis struct {
	Admin     string `toml:"Admin"`
	FeeWallet string `toml:"FeeWallet"`
	FeeBps    uint32 `toml:"FeeBps"`
}

type Config struct {
	RPCAddress  string  `toml:"RPCAddress"`
	DataDir     string  `toml:"DataDir"`
	NetworkName string  `toml:"NetworkName"`
	Genesis     Genesis `toml:"genesis"`
}

// Load loads the configuration from the given path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "escrow-local"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./escrow-data"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Genesis.FeeBps > platform.MaxFeeBps {
		return fmt.Errorf("config: genesis FeeBps %d exceeds maximum %d", c.Genesis.FeeBps, platform.MaxFeeBps)
	}
	hasAdmin := strings.TrimSpace(c.Genesis.Admin) != ""
	hasWallet := strings.TrimSpace(c.Genesis.FeeWallet) != ""
	if hasAdmin != hasWallet {
		return fmt.Errorf("config: genesis Admin and FeeWallet must be set together")
	}
	if hasAdmin {
		if _, err := crypto.DecodeAddress(strings.TrimSpace(c.Genesis.Admin)); err != nil {
			return fmt.Errorf("config: invalid genesis Admin: %w", err)
		}
		if _, err := crypto.DecodeAddress(strings.TrimSpace(c.Genesis.FeeWallet)); err != nil {
			return fmt.Errorf("config: invalid genesis FeeWallet: %w", err)
		}
	}
	return nil
}

// HasGenesis reports whether the file carries a complete platform bootstrap.
func (c *Config) HasGenesis() bool {
	return strings.TrimSpace(c.Genesis.Admin) != "" && strings.TrimSpace(c.Genesis.FeeWallet) != ""
}

// GenesisAddresses decodes the bootstrap admin and fee wallet. Callers must
// check HasGenesis first.
func (c *Config) GenesisAddresses() (admin, wallet [20]byte, err error) {
	adminAddr, err := crypto.DecodeAddress(strings.TrimSpace(c.Genesis.Admin))
	if err != nil {
		return admin, wallet, fmt.Errorf("config: invalid genesis Admin: %w", err)
	}
	walletAddr, err := crypto.DecodeAddress(strings.TrimSpace(c.Genesis.FeeWallet))
	if err != nil {
		return admin, wallet, fmt.Errorf("config: invalid genesis FeeWallet: %w", err)
	}
	return adminAddr.Bytes(), walletAddr.Bytes(), nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		RPCAddress:  ":8080",
		DataDir:     "./escrow-data",
		NetworkName: "escrow-local",
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

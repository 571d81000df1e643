// Package config reads the YAML list of networks preloaded into the
// registry at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/0xPuncker/chain-gatekeeper/pkg/types"
	"gopkg.in/yaml.v3"
)

const DefaultSeedPath = "config/networks.yaml"

type Seed struct {
	Networks []types.ChainParams `yaml:"networks"`
}

// LoadSeed reads the seed file at seedPath. A missing file yields an
// empty seed.
func LoadSeed(seedPath string) (*Seed, error) {
	if seedPath == "" {
		seedPath = DefaultSeedPath
	}

	absPath, err := filepath.Abs(seedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Seed{}, nil
		}
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	return &seed, nil
}

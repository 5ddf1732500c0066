package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/elys-network/lp-tracker/internal/types"
)

var ErrInvalidVaultConfig = errors.New("invalid vault configuration")

// DefaultVaults is the built-in registry, in report order.
var DefaultVaults = []types.VaultConfig{
	{
		Name:         "scBTC/LBTC Weighted Pool",
		Type:         "balancer-v2-pool",
		Protocol:     types.ProtocolBeets,
		Version:      types.VersionV2,
		PoolID:       "0x83952912178aa33c3853ee5d942c96254b235dcc",
		GaugeAddress: "0x11c43F630b52F1271a5005839d34b07C0C125e72",
		URL:          "https://beets.fi/pools/sonic/v2/0x83952912178aa33c3853ee5d942c96254b235dcc0002000000000000000000ab",
	},
	{
		Name:         "Avalon Bitcoin Treble",
		Type:         "balancer-v3-pool",
		Protocol:     types.ProtocolBeets,
		Version:      types.VersionV3,
		PoolID:       "0xd5ab187442998f1a62ea58133a03050691a0c280",
		GaugeAddress: "0x232c81fb683b830f2aa8457f88a7ced78ef956ac",
		URL:          "https://beets.fi/pools/sonic/v3/0xd5ab187442998f1a62ea58133a03050691a0c280",
	},
	{
		Name:     "beefy-wbtc-usdc.e",
		Type:     "vault",
		Protocol: types.ProtocolBeefy,
		PoolID:   "0x920D88cA46041eFdB317c1a4150e8f0515e88D9B",
		URL:      "https://app.beefy.com/vault/shadow-cow-sonic-wbtc-usdc.e-vault",
	},
	{
		Name:     "beefy-wbtc-scbtc",
		Type:     "vault",
		Protocol: types.ProtocolBeefy,
		PoolID:   "0x7152bf607BD043084f265c649a09A8F90BBdBF1B",
		URL:      "https://app.beefy.com/vault/swapx-ichi-wbtc-scbtc",
	},
}

type vaultsFile struct {
	Vaults []types.VaultConfig `yaml:"vaults"`
}

// LoadVaults returns the vault registry. An empty path selects DefaultVaults.
// Vaults without their own reward priority inherit the default one.
func LoadVaults(path string, defaultPriority []string) ([]types.VaultConfig, error) {
	vaults := DefaultVaults
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read vaults file %s: %w", path, err)
		}
		parsed, err := ParseVaults(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse vaults file %s: %w", path, err)
		}
		vaults = parsed
		log.Info().Str("path", path).Int("vaults", len(vaults)).Msg("Loaded vault registry from file")
	}

	out := make([]types.VaultConfig, len(vaults))
	for i, v := range vaults {
		if len(v.RewardPriority) == 0 {
			v.RewardPriority = append([]string(nil), defaultPriority...)
		}
		out[i] = v
	}
	return out, nil
}

// ParseVaults decodes and validates a YAML vault registry.
func ParseVaults(data []byte) ([]types.VaultConfig, error) {
	var file vaultsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Vaults) == 0 {
		return nil, fmt.Errorf("%w: no vaults defined", ErrInvalidVaultConfig)
	}
	for i, v := range file.Vaults {
		if err := ValidateVault(v); err != nil {
			return nil, fmt.Errorf("vault %d: %w", i, err)
		}
	}
	return file.Vaults, nil
}

// ValidateVault checks the fields each protocol requires.
func ValidateVault(v types.VaultConfig) error {
	if strings.TrimSpace(v.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidVaultConfig)
	}
	if v.PoolID == "" {
		return fmt.Errorf("%w: %s: pool_id is required", ErrInvalidVaultConfig, v.Name)
	}
	switch v.Protocol {
	case types.ProtocolBeets:
		if v.Version != types.VersionV2 && v.Version != types.VersionV3 {
			return fmt.Errorf("%w: %s: version must be 2 or 3", ErrInvalidVaultConfig, v.Name)
		}
		if v.Version == types.VersionV2 && v.GaugeAddress == "" {
			return fmt.Errorf("%w: %s: gauge_address is required for v2 pools", ErrInvalidVaultConfig, v.Name)
		}
	case types.ProtocolBeefy:
	default:
		return fmt.Errorf("%w: %s: unknown protocol %q", ErrInvalidVaultConfig, v.Name, v.Protocol)
	}
	return nil
}

/*

Vault configuration and the valuation mode chosen for each vault.

*/

package types

import "strings"

type Protocol string

const (
	ProtocolBeets Protocol = "beets"
	ProtocolBeefy Protocol = "beefy"
)

// ProtocolVersion is the Balancer version backing a Beets pool.
type ProtocolVersion int

const (
	VersionV2 ProtocolVersion = 2
	VersionV3 ProtocolVersion = 3
)

type VaultConfig struct {
	Name           string          `json:"name" yaml:"name"`
	Type           string          `json:"type" yaml:"type"` // e.g., balancer-v2-pool, vault
	Protocol       Protocol        `json:"protocol" yaml:"protocol"`
	Version        ProtocolVersion `json:"version,omitempty" yaml:"version"`
	PoolID         string          `json:"pool_id,omitempty" yaml:"pool_id"` // pool id for Beets, vault address for Beefy
	GaugeAddress   string          `json:"gauge_address,omitempty" yaml:"gauge_address"`
	URL            string          `json:"url" yaml:"url"`
	RewardPriority []string        `json:"reward_priority,omitempty" yaml:"reward_priority"`
}

// Address returns the identifier reported for the vault.
func (v VaultConfig) Address() string {
	return v.PoolID
}

// ValuationMode selects how gains are attributed for a vault.
type ValuationMode int

const (
	ModeUnknown ValuationMode = iota
	ModeUnstakedPool
	ModeStakedGauge
	ModeYieldRateAppreciation
	ModeVaultShareAccrual
)

func (m ValuationMode) String() string {
	switch m {
	case ModeUnstakedPool:
		return "unstaked_pool"
	case ModeStakedGauge:
		return "staked_gauge"
	case ModeYieldRateAppreciation:
		return "yield_rate_appreciation"
	case ModeVaultShareAccrual:
		return "vault_share_accrual"
	default:
		return "unknown"
	}
}

// MarshalText renders the mode name in JSON output.
func (m ValuationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// NormalizeSymbol is the canonical form used for every symbol lookup.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}

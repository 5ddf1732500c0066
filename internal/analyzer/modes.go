package analyzer

import (
	"github.com/elys-network/lp-tracker/internal/types"
)

// SelectMode decides how a vault's gain is attributed. It depends on the protocol, the pool version and
// whether the user still holds the pool token directly.
func SelectMode(vault types.VaultConfig, facts *types.PositionFacts) types.ValuationMode {
	switch vault.Protocol {
	case types.ProtocolBeefy:
		return types.ModeVaultShareAccrual
	case types.ProtocolBeets:
		if vault.Version == types.VersionV3 {
			return types.ModeYieldRateAppreciation
		}
		if facts != nil && facts.CurrentShare.HasBalance() {
			return types.ModeUnstakedPool
		}
		return types.ModeStakedGauge
	default:
		return types.ModeUnknown
	}
}

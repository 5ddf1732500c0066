package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const erc20ABI = `[
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const gaugeABI = `[
  {"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"arg0","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"reward_count","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"reward_tokens","stateMutability":"view","inputs":[{"name":"arg0","type":"uint256"}],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"claimable_reward","stateMutability":"view","inputs":[{"name":"_user","type":"address"},{"name":"_reward_token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"claimed_reward","stateMutability":"view","inputs":[{"name":"_addr","type":"address"},{"name":"_token","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const rateProviderABI = `[
  {"type":"function","name":"getRate","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const beefyVaultABI = `[
  {"type":"function","name":"want","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"getPricePerFullShare","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

const balancerPoolABI = `[
  {"type":"function","name":"getSwapFeePercentage","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

// Contract ABIs used by the reader. Beefy vault shares are ERC20, so balanceOf comes from ERC20.
var (
	ERC20ABI        = mustParse(erc20ABI)
	GaugeABI        = mustParse(gaugeABI)
	RateProviderABI = mustParse(rateProviderABI)
	BeefyVaultABI   = mustParse(beefyVaultABI)
	BalancerPoolABI = mustParse(balancerPoolABI)
)

func mustParse(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic("invalid contract ABI: " + err.Error())
	}
	return parsed
}

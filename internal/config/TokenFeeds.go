/*
CoinGecko is used for current and historical USD prices.

This file contains the mapping of token symbols (lowercase) to CoinGecko ids, plus static rates that are
served before any network lookup. The static rates exist for tokens CoinGecko does not list or for
dates its history endpoint does not serve reliably.

Rate providers expose the exchange rate of a yield-bearing wrapped token to its underlying asset.
*/

package config

var (
	CoinGeckoIDs = map[string]string{
		"swpx":              "swapx-2",
		"usdt":              "tether",
		"usdc.e":            "sonic-bridged-usdc-e-sonic",
		"ws":                "wrapped-sonic",
		"scusd":             "rings-scusd",
		"shadow":            "shadow-2",
		"x33":               "shadow-liquid-staking-token",
		"frxusd":            "frax-usd",
		"weth":              "weth",
		"pendle":            "pendle",
		"wbtc":              "wrapped-bitcoin",
		"scbtc":             "rings-scbtc",
		"lbtc":              "lombard-staked-btc",
		"beets":             "beets",
		"wasonicsolvbtcbbn": "solv-protocol-solvbtc-bbn",
		"wasonicsolvbtc":    "solv-btc",
		"solvbtc":           "solv-btc",
		"xsolvbtc":          "solv-protocol-solvbtc-bbn",
		"sceth":             "rings-sc-eth",
		"sts":               "beets-staked-sonic",
		"beetsfragmentss1":  "beetsfragmentss1", // not listed on CoinGecko, static rate only
		"gems":              "gems",
	}

	CoinGeckoRates = map[string]float64{
		"swapx-2":                     0.1329,
		"shadow-2":                    55.84,
		"shadow-liquid-staking-token": 49.01,
		"wrapped-sonic":               0.4952,
		"sonic":                       0.4952,
		"sonic-bridged-usdc-e-sonic":  1,
		"rings-scusd":                 1,
		"tether":                      1,
		"frax-usd":                    1,
		"weth":                        2298.87,
		"pendle":                      3.80,
		"wrapped-bitcoin":             103637.04,
		"rings-scbtc":                 108313,
		"solv-protocol-btc":           111139.00,
		"lombard-staked-btc":          106963,
		"gems":                        32.52,
		"solv-protocol-solvbtc-bbn":   111637.53,
		"solv-btc":                    111590.65,
		"beets-staked-sonic":          0.478688,
		"rings-sc-eth":                2528.03,
		"beetsfragmentss1":            0.211,
		"beets":                       0.05295,
	}

	// CoinGeckoHistoricalRates is keyed by CoinGecko id, then by dd-mm-yyyy.
	CoinGeckoHistoricalRates = map[string]map[string]float64{
		"rings-scbtc": {
			"22-05-2025": 109353.807744479,
			"16-05-2025": 103393.983167005,
			"15-05-2025": 103331.502813178,
		},
		"lombard-staked-btc": {
			"22-05-2025": 109806.556180727,
			"16-05-2025": 103515.8513815589,
			"15-05-2025": 103102.080844769,
		},
		"solv-protocol-staked-btc": {
			"22-05-2025": 110388.000000000,
		},
		"solv-btc": {
			"22-05-2025": 109360.000053171,
		},
		"beets-staked-sonic": {
			"23-05-2025": 0.478688,
		},
		"rings-sc-eth": {
			"23-05-2025": 2657.34893766992,
		},
	}

	// RateProviders maps a yield-bearing token symbol to its rate provider contract.
	RateProviders = map[string]string{
		"wasonicsolvbtcbbn": "0x00dE97829D01815346e58372be55aeFD84CA2457",
		"wasonicsolvbtc":    "0xa6C292D06251dA638Be3B58f1473E03d99C26FF0",
	}
)

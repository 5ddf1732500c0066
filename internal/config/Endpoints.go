package config

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

const (
	defaultSonicRPC     = "https://rpc.soniclabs.com"
	defaultCoinGeckoAPI = "https://api.coingecko.com/api/v3"
	defaultBeefyAPI     = "https://api.beefy.finance"
	theGraphGateway     = "https://gateway-arbitrum.network.thegraph.com/api/%s/subgraphs/id/%s"

	beetsV2SubgraphID = "wwazpiPPt5oJMiTNnQ2VjVxKnKakGDuE2FfEZPD4TKj"
	beetsV3SubgraphID = "8dRsm8mbA77DwEhVQVgzKmmYByjcbZoyXkafDbD5TuHq"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// NodeRPC is the JSON-RPC endpoint of the Sonic node.
	NodeRPC string
	// CoinGeckoAPI is the base URL of the CoinGecko v3 API.
	CoinGeckoAPI string
	// BeetsV2Subgraph and BeetsV3Subgraph serve Balancer v2 and v3 position history.
	BeetsV2Subgraph string
	BeetsV3Subgraph string
	// BeefySubgraph serves Beefy vault deposit history. Beefy vaults are skipped when it is empty.
	BeefySubgraph string
	// BeefyAPI serves Beefy vault metadata and LP prices.
	BeefyAPI string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in General.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	NodeRPC = getEnvOrDefault("SONIC_RPC_URL", defaultSonicRPC)
	CoinGeckoAPI = getEnvOrDefault("COINGECKO_API_URL", defaultCoinGeckoAPI)
	BeefyAPI = getEnvOrDefault("BEEFY_API_URL", defaultBeefyAPI)
	BeetsV2Subgraph = getEnvOrDefault("BEETS_V2_SUBGRAPH_URL", gatewayURL(beetsV2SubgraphID))
	BeetsV3Subgraph = getEnvOrDefault("BEETS_V3_SUBGRAPH_URL", gatewayURL(beetsV3SubgraphID))
	BeefySubgraph = getEnvOrDefault("BEEFY_SUBGRAPH_URL", "")

	log.Debug().
		Str("NodeRPC", NodeRPC).
		Str("CoinGeckoAPI", CoinGeckoAPI).
		Str("BeefyAPI", BeefyAPI).
		Bool("BeefySubgraph", BeefySubgraph != "").
		Msg("Endpoint configuration loaded successfully.")

	return nil
}

func gatewayURL(subgraphID string) string {
	return fmt.Sprintf(theGraphGateway, SubgraphAPIKey, subgraphID)
}

/*
This file reads Beefy vault data: the user's deposit history from the Beefy subgraph and LP token
prices from the Beefy API (vault address -> oracle id -> USD price of one underlying token).
*/

package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/elys-network/lp-tracker/internal/utils"
)

var ErrVaultNotListed = errors.New("vault not listed by beefy api")

// BeefyDeposit is one deposit of underlying tokens into a vault.
type BeefyDeposit struct {
	ID          string     `json:"id"`
	Timestamp   FlexUint64 `json:"timestamp"`
	BlockNumber FlexUint64 `json:"blockNumber"`
}

const beefyDepositsQuery = `{
  deposits: vaultDeposits(where: {user: "%s", vault: "%s"}, orderBy: timestamp, orderDirection: asc, first: 100) {
    id
    timestamp
    blockNumber
  }
}`

// BeefyVaultInfo is the subset of /vaults the valuation needs.
type BeefyVaultInfo struct {
	ID                  string     `json:"id"`
	EarnContractAddress string     `json:"earnContractAddress"`
	OracleID            string     `json:"oracleId"`
	TokenDecimals       FlexUint64 `json:"tokenDecimals"`
	Chain               string     `json:"chain"`
}

// BeefyClient combines the Beefy subgraph and the Beefy API.
type BeefyClient struct {
	subgraph *SubgraphClient
	apiURL   string
	req      requester
	logger   zerolog.Logger

	mu     sync.Mutex
	vaults map[string]BeefyVaultInfo // lowercase earn contract address
}

// NewBeefyClient creates a client. subgraph may be nil, in which case deposit queries fail.
func NewBeefyClient(subgraph *SubgraphClient, apiURL string, timeout time.Duration, log zerolog.Logger) *BeefyClient {
	clientLogger := log.With().Str("client", "beefy").Logger()
	return &BeefyClient{
		subgraph: subgraph,
		apiURL:   strings.TrimRight(apiURL, "/"),
		req:      newRequester(timeout, clientLogger),
		logger:   clientLogger,
	}
}

// Deposits returns the user's deposits into a vault in ascending time order.
func (c *BeefyClient) Deposits(ctx context.Context, user, vault string) ([]BeefyDeposit, error) {
	if c.subgraph == nil {
		return nil, errors.New("beefy subgraph is not configured")
	}
	user, vault, err := normalizeIdentifiers(user, vault)
	if err != nil {
		return nil, err
	}

	var out struct {
		Deposits []BeefyDeposit `json:"deposits"`
	}
	if err := c.subgraph.Query(ctx, fmt.Sprintf(beefyDepositsQuery, user, vault), nil, &out); err != nil {
		return nil, fmt.Errorf("beefy deposits query failed: %w", err)
	}
	return out.Deposits, nil
}

// VaultInfo returns the API metadata for a vault. The vault list is fetched once per client.
func (c *BeefyClient) VaultInfo(ctx context.Context, vault string) (BeefyVaultInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.vaults == nil {
		var list []BeefyVaultInfo
		if err := c.req.getJSON(ctx, c.apiURL+"/vaults", &list); err != nil {
			return BeefyVaultInfo{}, fmt.Errorf("failed to fetch beefy vaults: %w", err)
		}
		vaults := make(map[string]BeefyVaultInfo, len(list))
		for _, v := range list {
			vaults[strings.ToLower(v.EarnContractAddress)] = v
		}
		c.vaults = vaults
		c.logger.Debug().Int("vaults", len(vaults)).Msg("Loaded beefy vault list")
	}

	info, ok := c.vaults[strings.ToLower(vault)]
	if !ok {
		return BeefyVaultInfo{}, fmt.Errorf("%w: %s", ErrVaultNotListed, vault)
	}
	return info, nil
}

// LPPrices returns USD prices keyed by oracle id.
func (c *BeefyClient) LPPrices(ctx context.Context) (map[string]float64, error) {
	var prices map[string]float64
	if err := c.req.getJSON(ctx, c.apiURL+"/lps", &prices); err != nil {
		return nil, fmt.Errorf("failed to fetch beefy lp prices: %w", err)
	}
	return prices, nil
}

// UnderlyingValueUSD values a raw quantity of a vault's underlying token.
func (c *BeefyClient) UnderlyingValueUSD(ctx context.Context, vault string, raw sdkmath.Int) (float64, error) {
	info, err := c.VaultInfo(ctx, vault)
	if err != nil {
		return 0, err
	}
	prices, err := c.LPPrices(ctx)
	if err != nil {
		return 0, err
	}
	price, ok := prices[info.OracleID]
	if !ok {
		return 0, fmt.Errorf("%w: no lp price for oracle %s", ErrInvalidPriceData, info.OracleID)
	}
	if err := validatePrice(price, info.OracleID); err != nil {
		return 0, err
	}

	amount, err := utils.RawToFloat64(raw, int(info.TokenDecimals))
	if err != nil {
		return 0, fmt.Errorf("invalid underlying amount for %s: %w", vault, err)
	}
	return amount * price, nil
}

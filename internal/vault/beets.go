package vault

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/elys-network/lp-tracker/internal/datafetcher"
	"github.com/elys-network/lp-tracker/internal/types"
	"github.com/elys-network/lp-tracker/internal/utils"
)

// bptDecimals is the precision of Balancer pool tokens.
const bptDecimals = 18

// BalancerSource is the subgraph read used by BeetsGateway.
type BalancerSource interface {
	PoolShares(ctx context.Context, version int, user, poolID string) ([]datafetcher.BalancerPoolShare, error)
	FirstDeposits(ctx context.Context, version int, user, poolID string) ([]datafetcher.BalancerDeposit, error)
}

// BeetsGateway reads Beets v2 and v3 positions from the Balancer subgraphs.
type BeetsGateway struct {
	source BalancerSource
	logger zerolog.Logger
}

func NewBeetsGateway(source BalancerSource, log zerolog.Logger) *BeetsGateway {
	return &BeetsGateway{
		source: source,
		logger: log.With().Str("gateway", "beets").Logger(),
	}
}

func (g *BeetsGateway) FetchFacts(ctx context.Context, user string, vault types.VaultConfig) (*types.PositionFacts, error) {
	version := int(vault.Version)

	var (
		shares           []datafetcher.BalancerPoolShare
		deposits         []datafetcher.BalancerDeposit
		shareErr, depErr error
	)
	var eg errgroup.Group
	eg.Go(func() error {
		shares, shareErr = g.source.PoolShares(ctx, version, user, vault.PoolID)
		return nil
	})
	eg.Go(func() error {
		deposits, depErr = g.source.FirstDeposits(ctx, version, user, vault.PoolID)
		return nil
	})
	eg.Wait()

	if err := joinReads(shareErr, depErr); err != nil {
		return nil, err
	}

	facts := &types.PositionFacts{}
	if shareErr != nil {
		g.logger.Warn().Err(shareErr).Str("vault", vault.Name).Msg("Pool share read failed, continuing with deposit history only")
	} else {
		share, err := convertShare(shares, vault.Version)
		if err != nil {
			return nil, err
		}
		facts.CurrentShare = share
	}

	if depErr != nil {
		g.logger.Warn().Err(depErr).Str("vault", vault.Name).Msg("Deposit history read failed")
		return facts, nil
	}
	for _, d := range deposits {
		deposit, err := convertDeposit(d)
		if err != nil {
			return nil, err
		}
		facts.Deposits = append(facts.Deposits, deposit)
	}
	sort.SliceStable(facts.Deposits, func(i, j int) bool {
		return facts.Deposits[i].Timestamp < facts.Deposits[j].Timestamp
	})

	return facts, nil
}

// convertShare picks the first share record with a positive balance.
func convertShare(shares []datafetcher.BalancerPoolShare, version types.ProtocolVersion) (*types.PositionShare, error) {
	for _, s := range shares {
		balance, err := utils.ParseUnits(s.Balance, bptDecimals)
		if err != nil {
			return nil, fmt.Errorf("invalid share balance %q: %w", s.Balance, err)
		}
		if !balance.IsPositive() {
			continue
		}

		totalShares, err := utils.ParseUnits(s.Pool.TotalShares, bptDecimals)
		if err != nil {
			return nil, fmt.Errorf("invalid total shares %q: %w", s.Pool.TotalShares, err)
		}
		tokens, err := convertTokens(s.Pool.Tokens, true)
		if err != nil {
			return nil, err
		}

		snapshot := types.PoolSnapshot{
			ID:          s.Pool.ID,
			Address:     s.Pool.Address,
			TotalShares: totalShares,
			Tokens:      tokens,
		}
		if version == types.VersionV2 && s.Pool.TotalLiquidity != "" {
			liquidity, err := strconv.ParseFloat(s.Pool.TotalLiquidity, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid total liquidity %q: %w", s.Pool.TotalLiquidity, err)
			}
			snapshot.TotalLiquidityUSD = &liquidity
		}
		return &types.PositionShare{Balance: balance, Pool: snapshot}, nil
	}
	return nil, nil
}

func convertTokens(tokens []datafetcher.BalancerToken, withBalance bool) ([]types.TokenAmount, error) {
	out := make([]types.TokenAmount, 0, len(tokens))
	for _, t := range tokens {
		token := types.TokenAmount{
			Address:  t.Address,
			Symbol:   t.Symbol,
			Name:     t.Name,
			Decimals: int(t.Decimals),
		}
		if withBalance {
			raw, err := utils.ParseUnits(t.Balance, token.Decimals)
			if err != nil {
				return nil, fmt.Errorf("invalid balance for %s: %w", t.Symbol, err)
			}
			token.Raw = raw
		}
		out = append(out, token)
	}
	return out, nil
}

func convertDeposit(d datafetcher.BalancerDeposit) (types.Deposit, error) {
	tokens, err := convertTokens(d.Pool.Tokens, false)
	if err != nil {
		return types.Deposit{}, err
	}
	if len(d.Amounts) > len(tokens) {
		return types.Deposit{}, fmt.Errorf("deposit %s has %d amounts for %d tokens", d.ID, len(d.Amounts), len(tokens))
	}
	for i := range tokens {
		amount := ""
		if i < len(d.Amounts) {
			amount = d.Amounts[i]
		}
		raw, err := utils.ParseUnits(amount, tokens[i].Decimals)
		if err != nil {
			return types.Deposit{}, fmt.Errorf("invalid deposit amount for %s: %w", tokens[i].Symbol, err)
		}
		tokens[i].Raw = raw
	}

	deposit := types.Deposit{
		ID:          d.ID,
		Timestamp:   int64(d.Timestamp),
		BlockNumber: uint64(d.BlockNumber),
		Tokens:      tokens,
	}
	if d.ValueUSD != "" {
		value, err := strconv.ParseFloat(d.ValueUSD, 64)
		if err != nil {
			return types.Deposit{}, fmt.Errorf("invalid deposit value %q: %w", d.ValueUSD, err)
		}
		deposit.ValueUSD = &value
	}
	return deposit, nil
}

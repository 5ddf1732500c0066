package vault

import (
	"context"
	"sort"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/elys-network/lp-tracker/internal/datafetcher"
	"github.com/elys-network/lp-tracker/internal/types"
)

// BeefyDepositSource is the deposit history read used by BeefyGateway.
type BeefyDepositSource interface {
	Deposits(ctx context.Context, user, vault string) ([]datafetcher.BeefyDeposit, error)
}

// ShareBalanceReader reads vault share balances on chain.
type ShareBalanceReader interface {
	BalanceOf(ctx context.Context, token, owner string) (sdkmath.Int, error)
}

// BeefyGateway reads Beefy vault positions: share balance on chain, deposits from the subgraph.
type BeefyGateway struct {
	deposits BeefyDepositSource
	shares   ShareBalanceReader
	logger   zerolog.Logger
}

func NewBeefyGateway(deposits BeefyDepositSource, shares ShareBalanceReader, log zerolog.Logger) *BeefyGateway {
	return &BeefyGateway{
		deposits: deposits,
		shares:   shares,
		logger:   log.With().Str("gateway", "beefy").Logger(),
	}
}

func (g *BeefyGateway) FetchFacts(ctx context.Context, user string, vault types.VaultConfig) (*types.PositionFacts, error) {
	var (
		balance          sdkmath.Int
		deposits         []datafetcher.BeefyDeposit
		shareErr, depErr error
	)
	var eg errgroup.Group
	eg.Go(func() error {
		balance, shareErr = g.shares.BalanceOf(ctx, vault.PoolID, user)
		return nil
	})
	eg.Go(func() error {
		deposits, depErr = g.deposits.Deposits(ctx, user, vault.PoolID)
		return nil
	})
	eg.Wait()

	if err := joinReads(shareErr, depErr); err != nil {
		return nil, err
	}

	facts := &types.PositionFacts{}
	if shareErr != nil {
		g.logger.Warn().Err(shareErr).Str("vault", vault.Name).Msg("Share balance read failed")
	} else {
		facts.CurrentShare = &types.PositionShare{
			Balance: balance,
			Pool:    types.PoolSnapshot{ID: vault.PoolID, Address: vault.PoolID},
		}
	}

	if depErr != nil {
		g.logger.Warn().Err(depErr).Str("vault", vault.Name).Msg("Deposit history read failed")
		return facts, nil
	}
	for _, d := range deposits {
		facts.Deposits = append(facts.Deposits, types.Deposit{
			ID:          d.ID,
			Timestamp:   int64(d.Timestamp),
			BlockNumber: uint64(d.BlockNumber),
		})
	}
	sort.SliceStable(facts.Deposits, func(i, j int) bool {
		return facts.Deposits[i].Timestamp < facts.Deposits[j].Timestamp
	})

	return facts, nil
}

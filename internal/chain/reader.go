/*
This file reads contract views from an EVM node with eth_call. All uint256 results are returned as
sdkmath.Int so that raw quantities never pass through floating point.
*/

package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/elys-network/lp-tracker/internal/types"
)

var (
	ErrInvalidAddress = errors.New("address is invalid")
	ErrCallFailed     = errors.New("contract call failed")
	ErrUnexpectedType = errors.New("unexpected contract return type")
)

// maxParallelCalls bounds the eth_calls a single gauge read issues at once.
const maxParallelCalls = 8

// ContractCaller is the subset of an Ethereum client the reader needs. *ethclient.Client satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

type Reader struct {
	caller ContractCaller
	logger zerolog.Logger
}

func NewReader(caller ContractCaller, log zerolog.Logger) *Reader {
	return &Reader{
		caller: caller,
		logger: log.With().Str("client", "chain_reader").Logger(),
	}
}

// Dial connects to a JSON-RPC endpoint and returns a reader with its close function.
func Dial(ctx context.Context, rpcURL string, log zerolog.Logger) (*Reader, func(), error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := ethclient.DialContext(dialCtx, rpcURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}
	return NewReader(client, log), client.Close, nil
}

func parseAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address), nil
}

// call packs, executes and unpacks a view call. A nil block reads the latest state.
func (r *Reader) call(ctx context.Context, contract abi.ABI, to common.Address, block *big.Int, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s: %w", method, err)
	}

	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, block)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", ErrCallFailed, to.Hex(), method, err)
	}

	values, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to unpack %s.%s: %w", ErrCallFailed, to.Hex(), method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s.%s returned nothing", ErrCallFailed, to.Hex(), method)
	}
	return values, nil
}

func (r *Reader) callUint(ctx context.Context, contract abi.ABI, to common.Address, block *big.Int, method string, args ...any) (sdkmath.Int, error) {
	values, err := r.call(ctx, contract, to, block, method, args...)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %s returned %T", ErrUnexpectedType, method, values[0])
	}
	return sdkmath.NewIntFromBigInt(v), nil
}

func (r *Reader) callAddress(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...any) (common.Address, error) {
	values, err := r.call(ctx, contract, to, nil, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	v, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s returned %T", ErrUnexpectedType, method, values[0])
	}
	return v, nil
}

func (r *Reader) callString(ctx context.Context, contract abi.ABI, to common.Address, method string) (string, error) {
	values, err := r.call(ctx, contract, to, nil, method)
	if err != nil {
		return "", err
	}
	v, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T", ErrUnexpectedType, method, values[0])
	}
	return v, nil
}

// BlockNumber returns the latest block height.
func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := r.caller.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: block number: %w", ErrCallFailed, err)
	}
	return n, nil
}

// TokenMetadata reads symbol, name and decimals of an ERC20 token. Raw is zero.
func (r *Reader) TokenMetadata(ctx context.Context, token string) (types.TokenAmount, error) {
	addr, err := parseAddress(token)
	if err != nil {
		return types.TokenAmount{}, err
	}

	var (
		symbol, name string
		decimals     uint8
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		symbol, err = r.callString(gctx, ERC20ABI, addr, "symbol")
		return err
	})
	g.Go(func() error {
		var err error
		name, err = r.callString(gctx, ERC20ABI, addr, "name")
		return err
	})
	g.Go(func() error {
		values, err := r.call(gctx, ERC20ABI, addr, nil, "decimals")
		if err != nil {
			return err
		}
		d, ok := values[0].(uint8)
		if !ok {
			return fmt.Errorf("%w: decimals returned %T", ErrUnexpectedType, values[0])
		}
		decimals = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return types.TokenAmount{}, err
	}

	return types.TokenAmount{
		Address:  addr.Hex(),
		Symbol:   symbol,
		Name:     name,
		Decimals: int(decimals),
		Raw:      sdkmath.ZeroInt(),
	}, nil
}

// BalanceOf reads an ERC20 (or vault share) balance.
func (r *Reader) BalanceOf(ctx context.Context, token, owner string) (sdkmath.Int, error) {
	tokenAddr, err := parseAddress(token)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return r.callUint(ctx, ERC20ABI, tokenAddr, nil, "balanceOf", ownerAddr)
}

// GaugeRewards reads the user's staked balance and every reward token the gauge distributes.
// Prices are left for the caller to fill.
func (r *Reader) GaugeRewards(ctx context.Context, gauge, user string) (types.GaugePosition, error) {
	gaugeAddr, err := parseAddress(gauge)
	if err != nil {
		return types.GaugePosition{}, err
	}
	userAddr, err := parseAddress(user)
	if err != nil {
		return types.GaugePosition{}, err
	}

	var staked, count sdkmath.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		staked, err = r.callUint(gctx, GaugeABI, gaugeAddr, nil, "balanceOf", userAddr)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = r.callUint(gctx, GaugeABI, gaugeAddr, nil, "reward_count")
		return err
	})
	if err := g.Wait(); err != nil {
		return types.GaugePosition{}, err
	}
	if !count.IsInt64() || count.Int64() > 64 {
		return types.GaugePosition{}, fmt.Errorf("%w: implausible reward_count %s", ErrUnexpectedType, count)
	}

	rewards := make([]types.GaugeReward, count.Int64())
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(maxParallelCalls)
	for i := range rewards {
		i := i
		g.Go(func() error {
			reward, err := r.gaugeReward(gctx, gaugeAddr, userAddr, int64(i))
			if err != nil {
				return err
			}
			rewards[i] = reward
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.GaugePosition{}, err
	}

	r.logger.Debug().
		Str("gauge", gaugeAddr.Hex()).
		Str("staked", staked.String()).
		Int("rewardTokens", len(rewards)).
		Msg("Read gauge rewards")

	return types.GaugePosition{StakedBalance: staked, Rewards: rewards}, nil
}

func (r *Reader) gaugeReward(ctx context.Context, gauge, user common.Address, index int64) (types.GaugeReward, error) {
	token, err := r.callAddress(ctx, GaugeABI, gauge, "reward_tokens", big.NewInt(index))
	if err != nil {
		return types.GaugeReward{}, err
	}

	var (
		meta               types.TokenAmount
		claimable, claimed sdkmath.Int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meta, err = r.TokenMetadata(gctx, token.Hex())
		return err
	})
	g.Go(func() error {
		var err error
		claimable, err = r.callUint(gctx, GaugeABI, gauge, nil, "claimable_reward", user, token)
		return err
	})
	g.Go(func() error {
		var err error
		claimed, err = r.callUint(gctx, GaugeABI, gauge, nil, "claimed_reward", user, token)
		return err
	})
	if err := g.Wait(); err != nil {
		return types.GaugeReward{}, err
	}

	return types.GaugeReward{
		TokenAddress: token.Hex(),
		Symbol:       meta.Symbol,
		Name:         meta.Name,
		Decimals:     meta.Decimals,
		Claimable:    claimable,
		Claimed:      claimed,
	}, nil
}

// Rate reads a rate provider's exchange rate (18-decimal fixed point).
func (r *Reader) Rate(ctx context.Context, provider string) (sdkmath.Int, error) {
	addr, err := parseAddress(provider)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return r.callUint(ctx, RateProviderABI, addr, nil, "getRate")
}

// VaultAsset reads the metadata of a Beefy vault's underlying token.
func (r *Reader) VaultAsset(ctx context.Context, vault string) (types.TokenAmount, error) {
	addr, err := parseAddress(vault)
	if err != nil {
		return types.TokenAmount{}, err
	}
	want, err := r.callAddress(ctx, BeefyVaultABI, addr, "want")
	if err != nil {
		return types.TokenAmount{}, err
	}
	return r.TokenMetadata(ctx, want.Hex())
}

// PricePerFullShare reads a Beefy vault's share price (18-decimal fixed point). A nil block reads the
// latest state; a historical block needs an archive node.
func (r *Reader) PricePerFullShare(ctx context.Context, vault string, block *uint64) (sdkmath.Int, error) {
	addr, err := parseAddress(vault)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	var blockNumber *big.Int
	if block != nil {
		blockNumber = new(big.Int).SetUint64(*block)
	}
	return r.callUint(ctx, BeefyVaultABI, addr, blockNumber, "getPricePerFullShare")
}

// SwapFeePercentage reads a Balancer pool's swap fee (18-decimal fixed point).
func (r *Reader) SwapFeePercentage(ctx context.Context, pool string) (sdkmath.Int, error) {
	addr, err := parseAddress(pool)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return r.callUint(ctx, BalancerPoolABI, addr, nil, "getSwapFeePercentage")
}

/*
This file queries the Beets (Balancer on Sonic) subgraphs for pool shares and the first deposit of a user.

v2 and v3 use different schemas: v2 exposes poolShares/joinExits keyed by userAddress/poolId, v3 exposes
poolShares/addRemoves keyed by user/pool. Amounts and balances are returned as decimal strings in token units.
*/

package datafetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var ErrInvalidIdentifier = errors.New("identifier must be a hex string")

var hexIdentifier = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)

// SubgraphClient posts GraphQL queries to one subgraph endpoint.
type SubgraphClient struct {
	url    string
	req    requester
	logger zerolog.Logger
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func NewSubgraphClient(url string, timeout time.Duration, log zerolog.Logger) *SubgraphClient {
	clientLogger := log.With().Str("client", "subgraph").Logger()
	return &SubgraphClient{
		url:    url,
		req:    newRequester(timeout, clientLogger),
		logger: clientLogger,
	}
}

// Query runs a GraphQL query and decodes its data field into out. A response carrying errors or no
// data is an error.
func (c *SubgraphClient) Query(ctx context.Context, query string, variables map[string]any, out any) error {
	var resp graphQLResponse
	if err := c.req.postJSON(ctx, c.url, graphQLRequest{Query: query, Variables: variables}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		messages := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			messages = append(messages, e.Message)
		}
		return fmt.Errorf("%w: %s", ErrGraphQL, strings.Join(messages, "; "))
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		return fmt.Errorf("%w: no data returned", ErrGraphQL)
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to decode GraphQL data: %w", err)
	}
	return nil
}

// BalancerToken is a pool token as served by both Balancer subgraphs.
type BalancerToken struct {
	Address  string     `json:"address"`
	Symbol   string     `json:"symbol"`
	Name     string     `json:"name"`
	Balance  string     `json:"balance"`
	Decimals FlexUint64 `json:"decimals"`
}

// BalancerPool is the pool part of a share record. TotalLiquidity is only served by v2.
type BalancerPool struct {
	ID             string          `json:"id"`
	Address        string          `json:"address"`
	TotalLiquidity string          `json:"totalLiquidity"`
	TotalShares    string          `json:"totalShares"`
	Tokens         []BalancerToken `json:"tokens"`
}

type BalancerPoolShare struct {
	ID      string       `json:"id"`
	Balance string       `json:"balance"`
	Pool    BalancerPool `json:"pool"`
}

// BalancerDeposit is a v2 join or a v3 add. Amounts are parallel to Pool.Tokens.
type BalancerDeposit struct {
	ID          string       `json:"id"`
	Timestamp   FlexUint64   `json:"timestamp"`
	BlockNumber FlexUint64   `json:"blockNumber"`
	Amounts     []string     `json:"amounts"`
	ValueUSD    string       `json:"valueUSD"`
	Pool        BalancerPool `json:"pool"`
}

const balancerV2SharesQuery = `{
  poolShares(where: {userAddress: "%s", poolId_contains: "%s"}) {
    id
    balance
    pool: poolId {
      id
      address
      totalLiquidity
      totalShares
      tokens { address symbol name balance decimals }
    }
  }
}`

const balancerV2DepositsQuery = `{
  deposits: joinExits(where: {user: "%s", pool_contains: "%s", type: "Join"}, orderBy: timestamp, orderDirection: asc, first: 1) {
    id
    timestamp
    blockNumber: block
    amounts
    valueUSD
    pool { id tokens { address symbol name decimals } }
  }
}`

const balancerV3SharesQuery = `{
  poolShares(where: {user: "%s", pool: "%s"}) {
    id
    balance
    pool {
      id
      address
      totalShares
      tokens { address symbol name balance decimals }
    }
  }
}`

const balancerV3DepositsQuery = `{
  deposits: addRemoves(where: {user: "%s", pool: "%s", type: "Add"}, orderBy: blockTimestamp, orderDirection: asc, first: 1) {
    id
    timestamp: blockTimestamp
    blockNumber
    amounts
    pool { id tokens { address symbol name decimals } }
  }
}`

// BalancerClient reads positions from the Beets v2 and v3 subgraphs.
type BalancerClient struct {
	v2 *SubgraphClient
	v3 *SubgraphClient
}

func NewBalancerClient(v2, v3 *SubgraphClient) *BalancerClient {
	return &BalancerClient{v2: v2, v3: v3}
}

func (b *BalancerClient) client(version int) (*SubgraphClient, error) {
	switch version {
	case 2:
		return b.v2, nil
	case 3:
		return b.v3, nil
	default:
		return nil, fmt.Errorf("unsupported balancer version %d", version)
	}
}

// PoolShares returns the user's share records for a pool.
func (b *BalancerClient) PoolShares(ctx context.Context, version int, user, poolID string) ([]BalancerPoolShare, error) {
	user, poolID, err := normalizeIdentifiers(user, poolID)
	if err != nil {
		return nil, err
	}
	client, err := b.client(version)
	if err != nil {
		return nil, err
	}

	query := balancerV2SharesQuery
	if version == 3 {
		query = balancerV3SharesQuery
	}

	var out struct {
		PoolShares []BalancerPoolShare `json:"poolShares"`
	}
	if err := client.Query(ctx, fmt.Sprintf(query, user, poolID), nil, &out); err != nil {
		return nil, fmt.Errorf("pool shares query (v%d) failed: %w", version, err)
	}
	return out.PoolShares, nil
}

// FirstDeposits returns the user's earliest deposit into a pool, as a list of at most one element.
func (b *BalancerClient) FirstDeposits(ctx context.Context, version int, user, poolID string) ([]BalancerDeposit, error) {
	user, poolID, err := normalizeIdentifiers(user, poolID)
	if err != nil {
		return nil, err
	}
	client, err := b.client(version)
	if err != nil {
		return nil, err
	}

	query := balancerV2DepositsQuery
	if version == 3 {
		query = balancerV3DepositsQuery
	}

	var out struct {
		Deposits []BalancerDeposit `json:"deposits"`
	}
	if err := client.Query(ctx, fmt.Sprintf(query, user, poolID), nil, &out); err != nil {
		return nil, fmt.Errorf("deposit history query (v%d) failed: %w", version, err)
	}
	return out.Deposits, nil
}

func normalizeIdentifiers(ids ...string) (string, string, error) {
	for _, id := range ids {
		if !hexIdentifier.MatchString(id) {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
	}
	return strings.ToLower(ids[0]), strings.ToLower(ids[1]), nil
}

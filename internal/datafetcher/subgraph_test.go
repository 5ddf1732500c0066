package datafetcher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUser = "0xAbC0000000000000000000000000000000000001"
	testPool = "0x83952912178aa33c3853ee5d942c96254b235dcc"
)

func newTestSubgraph(t *testing.T, handler func(query string) string) *SubgraphClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req graphQLRequest
		require.NoError(t, json.Unmarshal(body, &req))
		w.Write([]byte(handler(req.Query)))
	}))
	t.Cleanup(server.Close)

	client := NewSubgraphClient(server.URL, 5*time.Second, zerolog.Nop())
	client.req.backoff = 0
	return client
}

func TestBalancerV2PoolShares(t *testing.T) {
	v2 := newTestSubgraph(t, func(query string) string {
		assert.Contains(t, query, `userAddress: "0xabc0000000000000000000000000000000000001"`)
		assert.Contains(t, query, `poolId_contains: "`+testPool+`"`)
		return `{"data":{"poolShares":[{"id":"s1","balance":"1.5","pool":{"id":"p","address":"0x8395","totalLiquidity":"2000","totalShares":"10","tokens":[{"address":"0x1","symbol":"scBTC","name":"scBTC","balance":"0.01","decimals":8}]}}]}}`
	})
	client := NewBalancerClient(v2, nil)

	shares, err := client.PoolShares(context.Background(), 2, testUser, testPool)
	require.NoError(t, err)
	require.Len(t, shares, 1)
	assert.Equal(t, "1.5", shares[0].Balance)
	assert.Equal(t, "2000", shares[0].Pool.TotalLiquidity)
	assert.Equal(t, FlexUint64(8), shares[0].Pool.Tokens[0].Decimals)
}

func TestBalancerV3FirstDeposit(t *testing.T) {
	v3 := newTestSubgraph(t, func(query string) string {
		assert.True(t, strings.Contains(query, "addRemoves"))
		return `{"data":{"deposits":[{"id":"a1","timestamp":"1747872000","blockNumber":"25000000","amounts":["1.0","0"],"pool":{"id":"p","tokens":[{"address":"0x1","symbol":"waSonicSolvBTC","name":"w","decimals":18},{"address":"0x2","symbol":"waSonicSolvBTCbbn","name":"w2","decimals":18}]}}]}}`
	})
	client := NewBalancerClient(nil, v3)

	deposits, err := client.FirstDeposits(context.Background(), 3, testUser, testPool)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, FlexUint64(1747872000), deposits[0].Timestamp)
	assert.Equal(t, FlexUint64(25000000), deposits[0].BlockNumber)
	assert.Empty(t, deposits[0].ValueUSD)
}

func TestSubgraphErrorsField(t *testing.T) {
	v2 := newTestSubgraph(t, func(string) string {
		return `{"errors":[{"message":"indexing error"}]}`
	})
	client := NewBalancerClient(v2, nil)

	_, err := client.PoolShares(context.Background(), 2, testUser, testPool)
	assert.ErrorIs(t, err, ErrGraphQL)
	assert.Contains(t, err.Error(), "indexing error")
}

func TestSubgraphMissingData(t *testing.T) {
	v2 := newTestSubgraph(t, func(string) string { return `{"data":null}` })
	client := NewBalancerClient(v2, nil)

	_, err := client.FirstDeposits(context.Background(), 2, testUser, testPool)
	assert.ErrorIs(t, err, ErrGraphQL)
}

func TestBalancerRejectsInvalidIdentifiers(t *testing.T) {
	client := NewBalancerClient(nil, nil)

	_, err := client.PoolShares(context.Background(), 2, `0x1"}) { id } #`, testPool)
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestBalancerUnsupportedVersion(t *testing.T) {
	client := NewBalancerClient(nil, nil)

	_, err := client.PoolShares(context.Background(), 4, testUser, testPool)
	assert.Error(t, err)
}

func TestFlexUint64(t *testing.T) {
	var v struct {
		A FlexUint64 `json:"a"`
		B FlexUint64 `json:"b"`
		C FlexUint64 `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"34","c":null}`), &v))
	assert.Equal(t, FlexUint64(12), v.A)
	assert.Equal(t, FlexUint64(34), v.B)
	assert.Equal(t, FlexUint64(0), v.C)
}

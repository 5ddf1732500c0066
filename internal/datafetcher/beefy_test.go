package datafetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/lp-tracker/internal/utils"
)

const testVault = "0x7152bf607BD043084f265c649a09A8F90BBdBF1B"

func newTestBeefyAPI(t *testing.T, vaultCalls *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/vaults":
			vaultCalls.Add(1)
			w.Write([]byte(`[{"id":"swapx-ichi-wbtc-scbtc","earnContractAddress":"` + testVault + `","oracleId":"swapx-ichi-wbtc-scbtc","tokenDecimals":18,"chain":"sonic"}]`))
		case "/lps":
			w.Write([]byte(`{"swapx-ichi-wbtc-scbtc":2.5,"other":null}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBeefyUnderlyingValueUSD(t *testing.T) {
	var vaultCalls atomic.Int32
	server := newTestBeefyAPI(t, &vaultCalls)
	client := NewBeefyClient(nil, server.URL, 5*time.Second, zerolog.Nop())

	raw, _ := sdkmath.NewIntFromString("4000000000000000000")
	value, err := client.UnderlyingValueUSD(context.Background(), "0x7152BF607bd043084f265c649a09a8f90bbdbf1b", raw)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, value, 1e-12)

	_, err = client.UnderlyingValueUSD(context.Background(), testVault, raw)
	require.NoError(t, err)
	assert.Equal(t, int32(1), vaultCalls.Load(), "vault list is fetched once")
}

func TestBeefyUnderlyingValueRejectsInvalidAmounts(t *testing.T) {
	var vaultCalls atomic.Int32
	server := newTestBeefyAPI(t, &vaultCalls)
	client := NewBeefyClient(nil, server.URL, 5*time.Second, zerolog.Nop())

	_, err := client.UnderlyingValueUSD(context.Background(), testVault, sdkmath.NewInt(-1))
	assert.ErrorIs(t, err, utils.ErrAmountNegative)

	_, err = client.UnderlyingValueUSD(context.Background(), testVault, sdkmath.Int{})
	assert.ErrorIs(t, err, utils.ErrAmountNil)

	value, err := client.UnderlyingValueUSD(context.Background(), testVault, sdkmath.ZeroInt())
	require.NoError(t, err)
	assert.Zero(t, value)
}

func TestBeefyVaultNotListed(t *testing.T) {
	var vaultCalls atomic.Int32
	server := newTestBeefyAPI(t, &vaultCalls)
	client := NewBeefyClient(nil, server.URL, 5*time.Second, zerolog.Nop())

	_, err := client.UnderlyingValueUSD(context.Background(), "0x0000000000000000000000000000000000000001", sdkmath.OneInt())
	assert.ErrorIs(t, err, ErrVaultNotListed)
}

func TestBeefyDeposits(t *testing.T) {
	subgraph := newTestSubgraph(t, func(query string) string {
		assert.Contains(t, query, "vaultDeposits")
		assert.Contains(t, query, `vault: "0x7152bf607bd043084f265c649a09a8f90bbdbf1b"`)
		return `{"data":{"deposits":[{"id":"d1","timestamp":"1747000000","blockNumber":"24000000"},{"id":"d2","timestamp":"1748000000","blockNumber":"25000000"}]}}`
	})
	client := NewBeefyClient(subgraph, "http://unused", 5*time.Second, zerolog.Nop())

	deposits, err := client.Deposits(context.Background(), testUser, testVault)
	require.NoError(t, err)
	require.Len(t, deposits, 2)
	assert.Equal(t, "d1", deposits[0].ID)
}

func TestBeefyDepositsWithoutSubgraph(t *testing.T) {
	client := NewBeefyClient(nil, "http://unused", 5*time.Second, zerolog.Nop())

	_, err := client.Deposits(context.Background(), testUser, testVault)
	assert.Error(t, err)
}

package coins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSymbols(t *testing.T) {
	out, err := NormalizeSymbols([]string{" btc", "BTCUSDT", "eth", "", "USDT"}, "usdt")
	require.NoError(t, err)
	assert.Equal(t, []string{"BTC", "ETH", "USDT"}, out)

	_, err = NormalizeSymbols(nil, "USDT")
	assert.Error(t, err)
	_, err = NormalizeSymbols([]string{" "}, "USDT")
	assert.Error(t, err)
}

func TestStaticAndFiltered(t *testing.T) {
	u := NewFiltered(NewStatic([]string{"BTC", "USDC", "SOL"}, "USDT"), []string{"usdc"})
	assets, err := u.TopAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "BTCUSDT", assets[0].Pair("USDT"))
	assert.Equal(t, 1, assets[0].MarketCapRank)
	assert.Equal(t, "sol", assets[1].Symbol)
	assert.Equal(t, 3, assets[1].MarketCapRank)
}

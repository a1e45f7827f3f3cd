package history

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/husnusametd/spectra/internal/walkforward"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_InsertLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	points := []walkforward.Point{
		{Time: base.Add(8 * time.Hour), Return: -0.01},
		{Time: base, Return: 0.02, Features: map[string]float64{"RSI_4H": 28.5}},
		{Time: base.Add(4 * time.Hour), Return: 0.005},
	}
	n, err := store.Insert(ctx, "btcusdt", "4H", points)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	loaded, err := store.Load(ctx, "BTCUSDT", "4h")
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, base, loaded[0].Time)
	assert.Equal(t, map[string]float64{"RSI_4H": 28.5}, loaded[0].Features)
	assert.Nil(t, loaded[1].Features)
	assert.Equal(t, -0.01, loaded[2].Return)

	// Same timestamp overwrites.
	_, err = store.Insert(ctx, "BTCUSDT", "4h", []walkforward.Point{{Time: base, Return: 0.5}})
	require.NoError(t, err)
	loaded, err = store.Load(ctx, "BTCUSDT", "4h")
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
	assert.Equal(t, 0.5, loaded[0].Return)

	m, err := store.Manifest(ctx, "BTCUSDT", "4h")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", m.Symbol)
	assert.EqualValues(t, 3, m.Rows)
	assert.Equal(t, base.UnixMilli(), m.MinTime)
}

func TestStore_LoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load(context.Background(), "ETHUSDT", "4h")
	assert.True(t, errors.Is(err, ErrNoHistory))

	_, err = store.Insert(context.Background(), "", "4h", []walkforward.Point{{Time: time.Now()}})
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	raw := `timestamp,signal_return,RSI_4H,Vol_Z_1H
2024-01-01T00:00:00Z,0.01,31.5,
2024-01-01 04:00:00,-0.02,29,1.8
1704096000,0.003,,
1704110400000,0.004,40,0.1
`
	points, err := ReadCSV(strings.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, points, 4)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Time)
	assert.Equal(t, map[string]float64{"RSI_4H": 31.5}, points[0].Features)
	assert.Equal(t, time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC), points[1].Time)
	assert.Equal(t, map[string]float64{"RSI_4H": 29, "Vol_Z_1H": 1.8}, points[1].Features)
	assert.Equal(t, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC), points[2].Time)
	assert.Nil(t, points[2].Features)
	assert.Equal(t, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), points[3].Time)
}

func TestReadCSV_Errors(t *testing.T) {
	cases := map[string]string{
		"missing column": "timestamp,ret\n2024-01-01,0.1\n",
		"bad return":     "timestamp,signal_return\n2024-01-01,abc\n",
		"bad timestamp":  "timestamp,signal_return\nyesterday,0.1\n",
		"bad feature":    "timestamp,signal_return,RSI\n2024-01-01,0.1,high\n",
		"empty":          "",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ReadCSV(strings.NewReader(raw))
			assert.Error(t, err)
		})
	}
}

func TestStore_ImportCSV(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	n, err := store.ImportCSV(context.Background(), "SOLUSDT", "1d", strings.NewReader("timestamp,signal_return\n2024-01-01,0.1\n2024-01-02,0.2\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	loaded, err := store.Load(context.Background(), "SOLUSDT", "1d")
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

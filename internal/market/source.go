package market

import "context"

// Source serves candles and order-book depth for a symbol.
type Source interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
	Depth(ctx context.Context, symbol string, limit int) (Depth, error)
}

// Universe lists the assets a scan should cover, ordered by market cap.
type Universe interface {
	TopAssets(ctx context.Context) ([]Asset, error)
}

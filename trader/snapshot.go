package trader

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/spotbot/broker"
	"github.com/rustyeddy/spotbot/market"
)

// TakeSnapshot reads the spot price and then the free balances of both
// assets of inst.
func TakeSnapshot(ctx context.Context, ex broker.Exchange, inst market.Instrument, now time.Time) (market.Snapshot, error) {
	price, err := ex.GetPrice(ctx, inst.Symbol)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("get price: %w", err)
	}
	quote, err := ex.GetFreeBalance(ctx, inst.QuoteAsset)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("get %s balance: %w", inst.QuoteAsset, err)
	}
	base, err := ex.GetFreeBalance(ctx, inst.BaseAsset)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("get %s balance: %w", inst.BaseAsset, err)
	}
	return market.Snapshot{
		PriceSnapshot: market.PriceSnapshot{
			Symbol: inst.Symbol,
			Price:  price,
			Time:   now,
		},
		BalanceSnapshot: market.BalanceSnapshot{
			QuoteFree: quote,
			BaseFree:  base,
		},
	}, nil
}

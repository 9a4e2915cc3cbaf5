package stream

import "context"

// PriceUpdate is the reduced ticker event handed to the chart: the product and
// its last trade price. The receipt timestamp is assigned by the consumer.
type PriceUpdate struct {
	Product string  `json:"product"`
	Price   float64 `json:"price"`
}

// PriceHandler consumes price updates in arrival order.
type PriceHandler interface {
	OnPriceUpdate(ctx context.Context, u PriceUpdate)
}

// PriceHandlerFunc adapts a function to PriceHandler.
type PriceHandlerFunc func(ctx context.Context, u PriceUpdate)

func (f PriceHandlerFunc) OnPriceUpdate(ctx context.Context, u PriceUpdate) { f(ctx, u) }

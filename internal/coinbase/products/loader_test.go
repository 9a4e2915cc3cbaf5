package products_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"livechart/internal/coinbase/products"
	"livechart/pkg/coinbase"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeLister struct {
	products []coinbase.Product
	err      error
}

func (f fakeLister) GetProducts(context.Context) ([]coinbase.Product, error) {
	return f.products, f.err
}

// go test -v --run TestResolve
func TestResolve(t *testing.T) {
	l := &products.Loader{
		Client: fakeLister{products: []coinbase.Product{
			{ID: "BTC-USD", Status: "online"},
			{ID: "ETH-USD", Status: "online"},
			{ID: "HALT-USD", Status: "online", TradingDisabled: true},
			{ID: "OLD-USD", Status: "delisted"},
		}},
		Timeout: time.Second,
		Logger:  zap.NewNop(),
	}

	got := l.Resolve(context.Background(), []string{"ETH-USD", "OLD-USD", "NOPE-USD", "BTC-USD", "ETH-USD", "HALT-USD"})
	assert.Equal(t, []string{"ETH-USD", "BTC-USD"}, got)
}

// go test -v --run TestResolveFallsBack
func TestResolveFallsBack(t *testing.T) {
	l := &products.Loader{
		Client:  fakeLister{err: errors.New("network down")},
		Timeout: time.Second,
		Logger:  zap.NewNop(),
	}

	configured := []string{"BTC-USD", "ETH-USD"}
	assert.Equal(t, configured, l.Resolve(context.Background(), configured))
}

package products

import (
	"context"
	"time"

	"livechart/pkg/coinbase"

	"go.uber.org/zap"
)

// Lister returns the exchange's product catalog.
type Lister interface {
	GetProducts(ctx context.Context) ([]coinbase.Product, error)
}

type Loader struct {
	Client  Lister
	Timeout time.Duration
	Logger  *zap.Logger
}

// Resolve filters the configured products down to those the exchange lists as
// online, keeping the configured order. When the catalog cannot be fetched the
// configured list is returned unchanged so the feed can still start.
func (l *Loader) Resolve(ctx context.Context, configured []string) []string {
	ctx, cancel := context.WithTimeout(ctx, l.Timeout)
	defer cancel()

	listed, err := l.Client.GetProducts(ctx)
	if err != nil {
		l.Logger.Warn("failed to load product catalog, using configured products",
			zap.Strings("products", configured), zap.Error(err))
		return configured
	}

	online := make(map[string]bool, len(listed))
	for _, p := range listed {
		online[p.ID] = p.Online()
	}

	seen := make(map[string]bool, len(configured))
	var out []string
	for _, id := range configured {
		if seen[id] {
			continue
		}
		seen[id] = true

		isOnline, known := online[id]
		switch {
		case !known:
			l.Logger.Warn("skipping unknown product", zap.String("product", id))
		case !isOnline:
			l.Logger.Warn("skipping product that is not online", zap.String("product", id))
		default:
			out = append(out, id)
		}
	}

	l.Logger.Info("resolved products", zap.Strings("products", out), zap.Int("listed", len(listed)))
	return out
}

// Package updater applies price updates to the rolling series and re-renders
// the chart.
package updater

import (
	"context"
	"fmt"
	"sync"
	"time"

	"livechart/internal/chart/figure"
	"livechart/internal/chart/indicator"
	"livechart/internal/chart/series"
	"livechart/internal/coinbase/stream"
	"livechart/pkg/storage"

	"go.uber.org/zap"
)

// Renderer receives the full figure after every accepted sample.
type Renderer interface {
	Render(ctx context.Context, fig figure.Figure) error
}

type Options struct {
	Figure figure.Options
	// Store persists accepted samples; nil disables persistence.
	Store storage.SampleStore
	// Now stamps samples at receipt; defaults to time.Now.
	Now func() time.Time
}

// Updater is the event handler between the feed and the chart.
type Updater struct {
	manager  *series.Manager
	renderer Renderer
	store    storage.SampleStore
	figOpts  figure.Options
	now      func() time.Time
	logger   *zap.Logger

	mu      sync.Mutex
	signals map[string]indicator.Signal // last crossover signal per product
}

var _ stream.PriceHandler = (*Updater)(nil)

func New(manager *series.Manager, renderer Renderer, logger *zap.Logger, opts Options) *Updater {
	u := &Updater{
		manager:  manager,
		renderer: renderer,
		store:    opts.Store,
		figOpts:  opts.Figure,
		now:      opts.Now,
		logger:   logger,
		signals:  make(map[string]indicator.Signal),
	}
	if u.store == nil {
		u.store = storage.NewNoop()
	}
	if u.now == nil {
		u.now = time.Now
	}
	return u
}

// OnPriceUpdate stamps the update with the receipt time, records it and
// renders the new snapshot. Rejected samples are logged and dropped without
// rendering.
func (u *Updater) OnPriceUpdate(ctx context.Context, upd stream.PriceUpdate) {
	ts := u.now()

	if err := u.manager.RecordSample(upd.Product, upd.Price, ts); err != nil {
		u.logger.Warn("dropping price sample",
			zap.String("product", upd.Product),
			zap.Float64("price", upd.Price),
			zap.Error(err))
		return
	}

	sample := storage.Sample{Product: upd.Product, Price: upd.Price, ObservedAt: ts}
	if err := u.store.SaveSample(ctx, sample); err != nil {
		u.logger.Warn("failed to persist price sample", zap.String("product", upd.Product), zap.Error(err))
	}

	u.render(ctx)
}

// Figure builds the figure for the current snapshot.
func (u *Updater) Figure() figure.Figure {
	return figure.Build(u.manager.Snapshot(), u.figOpts)
}

// Restore loads the most recent persisted samples of each product into the
// manager, oldest first, and renders once if anything was loaded.
func (u *Updater) Restore(ctx context.Context, products []string) (int, error) {
	loaded := 0
	for _, product := range products {
		samples, err := u.store.RecentSamples(ctx, product, u.manager.Capacity())
		if err != nil {
			return loaded, fmt.Errorf("load recent samples for %s: %w", product, err)
		}
		for _, s := range samples {
			if err := u.manager.RecordSample(s.Product, s.Price, s.ObservedAt); err != nil {
				u.logger.Warn("skipping stored sample", zap.String("product", s.Product), zap.Error(err))
				continue
			}
			loaded++
		}
	}

	if loaded > 0 {
		u.logger.Info("restored price history", zap.Int("samples", loaded), zap.Int("series", u.manager.Len()))
		u.render(ctx)
	}
	return loaded, nil
}

// Signals returns the latest crossover signal per product.
func (u *Updater) Signals() map[string]indicator.Signal {
	u.mu.Lock()
	defer u.mu.Unlock()

	out := make(map[string]indicator.Signal, len(u.signals))
	for k, v := range u.signals {
		out[k] = v
	}
	return out
}

func (u *Updater) render(ctx context.Context) {
	fig := u.Figure()
	u.trackSignals(fig.Signals)
	if err := u.renderer.Render(ctx, fig); err != nil {
		u.logger.Warn("render failed", zap.Error(err))
	}
}

// trackSignals logs every change of a product's crossover signal.
func (u *Updater) trackSignals(signals []figure.SymbolSignal) {
	u.mu.Lock()
	defer u.mu.Unlock()

	for _, s := range signals {
		prev := u.signals[s.Symbol]
		if prev == s.Signal {
			continue
		}
		u.signals[s.Symbol] = s.Signal
		u.logger.Info("moving average crossover",
			zap.String("product", s.Symbol),
			zap.String("from", string(prev)),
			zap.String("to", string(s.Signal)))
	}
}

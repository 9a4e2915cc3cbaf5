package collector

import (
	"context"
	"errors"
	"fmt"

	"livechart/config"
	"livechart/internal/chart/figure"
	"livechart/internal/chart/hub"
	"livechart/internal/chart/indicator"
	"livechart/internal/chart/series"
	"livechart/internal/chart/server"
	"livechart/internal/chart/updater"
	"livechart/internal/coinbase/products"
	"livechart/internal/coinbase/stream"
	"livechart/internal/jobs"
	"livechart/pkg/coinbase"
	"livechart/pkg/storage"
	"livechart/pkg/storage/postgres"
	"livechart/pkg/storage/sqlite"

	"go.uber.org/zap"
)

// Run wires the Coinbase ticker feed into the live chart and serves it until
// ctx is cancelled. Samples are optionally persisted and replayed on start.
func Run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	store, err := OpenStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	policy, err := figure.ParseRangePolicy(cfg.Chart.RangePolicy)
	if err != nil {
		return err
	}

	var overlay *indicator.Overlay
	if o := cfg.Chart.Overlay; o.Enabled {
		overlay = &indicator.Overlay{ShortWindow: o.ShortWindow, LongWindow: o.LongWindow}
		if err := overlay.Validate(); err != nil {
			return fmt.Errorf("chart overlay: %w", err)
		}
	}

	manager := series.New(series.Options{MaxPointsPerSeries: cfg.Chart.MaxPointsPerSeries})
	chartHub := hub.New(logger)
	defer chartHub.Close()

	upd := updater.New(manager, chartHub, logger, updater.Options{
		Figure: figure.Options{
			Title:       cfg.Chart.Title,
			XAxisTitle:  cfg.Chart.XAxisTitle,
			YAxisTitle:  cfg.Chart.YAxisTitle,
			LineWidth:   cfg.Chart.LineWidth,
			RangePolicy: policy,
			Overlay:     overlay,
		},
		Store: store,
	})

	// Resolve the configured products against the exchange catalog
	restClient := coinbase.NewRESTClient(cfg.Coinbase.REST.BaseURL, cfg.Coinbase.REST.Timeout)
	loader := &products.Loader{Client: restClient, Timeout: cfg.Coinbase.REST.Timeout, Logger: logger}
	productIDs := loader.Resolve(ctx, cfg.Coinbase.Products)
	if len(productIDs) == 0 {
		return errors.New("no streamable products")
	}

	if _, err := upd.Restore(ctx, productIDs); err != nil {
		logger.Warn("failed to restore price history", zap.Error(err))
	}

	wsClient := coinbase.NewWSClient(coinbase.WSOptions{
		URL:              cfg.Coinbase.WS.URL,
		Products:         productIDs,
		Channels:         cfg.Coinbase.WS.Channels,
		HandshakeTimeout: cfg.Coinbase.WS.Timeout,
		PingInterval:     cfg.Coinbase.WS.PingInterval,
		HeartbeatTimeout: cfg.Coinbase.WS.HeartbeatTimeout,
		MaxRetries:       cfg.Coinbase.WS.MaxRetries,
		RetryDelay:       cfg.Coinbase.WS.RetryDelay,
	}, logger)
	wsClient.SetMessageHandler(stream.MakeMessageHandler(ctx, logger, upd))

	scheduler := jobs.NewScheduler(ctx, logger)
	if err := scheduler.AddStats(cfg.Storage.StatsCron, manager, chartHub.Clients); err != nil {
		return err
	}
	if cfg.Storage.Driver != "none" && cfg.Storage.Retention > 0 {
		if err := scheduler.AddRetention(cfg.Storage.PurgeCron, store, cfg.Storage.Retention); err != nil {
			return err
		}
	}
	resolve := func(ctx context.Context) []string { return loader.Resolve(ctx, cfg.Coinbase.Products) }
	if err := scheduler.AddProductRefresh(cfg.Coinbase.RefreshCron, resolve, wsClient, productIDs); err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(cfg.Server.Addr, cfg.Server.ShutdownTimeout, manager, chartHub, upd, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- srv.ListenAndServe(runCtx)
	}()
	go func() {
		// a failed first dial is retried by Listen
		_ = wsClient.Connect(runCtx)
		errCh <- wsClient.Listen(runCtx)
	}()

	// the first exit stops the other side
	err = <-errCh
	cancel()
	if second := <-errCh; err == nil || errors.Is(err, context.Canceled) {
		err = second
	}
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		return nil
	}
	return err
}

// OpenStore opens the sample store selected by storage.driver.
func OpenStore(cfg *config.Config) (storage.SampleStore, error) {
	switch cfg.Storage.Driver {
	case "", "none":
		return storage.NewNoop(), nil
	case "postgres":
		client, err := postgres.InitializeAndMigrate(cfg.Postgres, cfg.Log.Environment, true)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to DB: %w", err)
		}
		return client, nil
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"livechart/pkg/coinbase"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	errMissingProduct = errors.New("missing product_id")
	errInvalidPrice   = errors.New("invalid price")
)

// MakeMessageHandler returns a function that handles incoming websocket frames
// by decoding ticker updates and passing them to handler. Malformed frames are
// dropped with a warning.
func MakeMessageHandler(ctx context.Context, logger *zap.Logger, handler PriceHandler) func(msg []byte) {
	return func(msg []byte) {
		// Step 1: Extract the message type for early filtering
		var env coinbase.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			logger.Warn("failed to decode feed message", zap.Error(err), zap.ByteString("raw", truncate(msg)))
			return
		}

		switch env.Type {
		case coinbase.TypeTicker:
		case coinbase.TypeHeartbeat:
			logger.Debug("heartbeat", zap.String("product", env.ProductID))
			return
		case coinbase.TypeSubscriptions:
			logSubscriptions(logger, msg)
			return
		case coinbase.TypeError:
			var e coinbase.ErrorMessage
			_ = json.Unmarshal(msg, &e)
			logger.Warn("feed error", zap.String("message", e.Message), zap.String("reason", e.Reason))
			return
		default:
			return // Ignore other channels
		}

		// Step 2: Fully parse the ticker payload
		update, err := ParseTicker(msg)
		if err != nil {
			logger.Warn("dropping malformed ticker", zap.Error(err), zap.ByteString("raw", truncate(msg)))
			return
		}

		// Step 3: Hand the update to the chart
		handler.OnPriceUpdate(ctx, update)
	}
}

// ParseTicker decodes a ticker frame into a PriceUpdate.
func ParseTicker(msg []byte) (PriceUpdate, error) {
	var t coinbase.TickerMessage
	if err := json.Unmarshal(msg, &t); err != nil {
		return PriceUpdate{}, fmt.Errorf("decode ticker: %w", err)
	}
	if strings.TrimSpace(t.ProductID) == "" {
		return PriceUpdate{}, errMissingProduct
	}

	price, err := decimal.NewFromString(t.Price)
	if err != nil {
		return PriceUpdate{}, fmt.Errorf("%w %q: %v", errInvalidPrice, t.Price, err)
	}
	if !price.IsPositive() {
		return PriceUpdate{}, fmt.Errorf("%w %q: not positive", errInvalidPrice, t.Price)
	}

	f, _ := price.Float64()
	return PriceUpdate{Product: t.ProductID, Price: f}, nil
}

func logSubscriptions(logger *zap.Logger, msg []byte) {
	var s coinbase.SubscriptionsMessage
	if err := json.Unmarshal(msg, &s); err != nil {
		logger.Warn("failed to decode subscriptions", zap.Error(err))
		return
	}
	for _, ch := range s.Channels {
		logger.Info("subscribed", zap.String("channel", ch.Name), zap.Strings("products", ch.ProductIDs))
	}
}

func truncate(msg []byte) []byte {
	const limit = 256
	if len(msg) > limit {
		return msg[:limit]
	}
	return msg
}

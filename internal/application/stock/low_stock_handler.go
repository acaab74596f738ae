package stock

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openpos/settlement/internal/domain/shared"
	"github.com/openpos/settlement/internal/domain/stock"
)

// LowStockAlert describes a balance that dropped below its threshold
type LowStockAlert struct {
	ProductID       string `json:"product_id"`
	LocationID      string `json:"location_id"`
	CurrentQuantity string `json:"current_quantity"`
	MinimumQuantity string `json:"minimum_quantity"`
	AlertType       string `json:"alert_type"` // "low_stock", "out_of_stock"
}

// LowStockNotifier sends low stock alerts. Implementations can support
// different channels (in-app, email, webhook).
type LowStockNotifier interface {
	SendAlert(ctx context.Context, alert LowStockAlert) error
}

// LowStockHandler reacts to StockBelowThreshold events and notifies
// back-office staff. Events are deduplicated through the idempotency
// store so at-least-once delivery does not spam the alert channel.
type LowStockHandler struct {
	logger      *zap.Logger
	notifier    LowStockNotifier
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
}

// NewLowStockHandler creates a handler for low stock events
func NewLowStockHandler(logger *zap.Logger) *LowStockHandler {
	return &LowStockHandler{
		logger:     logger,
		idemConfig: shared.DefaultIdempotencyConfig(),
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *LowStockHandler) WithNotifier(notifier LowStockNotifier) *LowStockHandler {
	h.notifier = notifier
	return h
}

// WithIdempotencyStore enables event deduplication
func (h *LowStockHandler) WithIdempotencyStore(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) *LowStockHandler {
	h.idempotency = store
	h.idemConfig = cfg
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *LowStockHandler) EventTypes() []string {
	return []string{stock.EventTypeStockBelowThreshold}
}

// Handle processes a StockBelowThresholdEvent
func (h *LowStockHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	thresholdEvent, ok := event.(*stock.StockBelowThresholdEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", stock.EventTypeStockBelowThreshold),
			zap.String("actual", event.EventType()))
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			stock.EventTypeStockBelowThreshold, event.EventType())
	}

	if h.idempotency != nil && h.idemConfig.Enabled {
		fresh, err := h.idempotency.MarkProcessed(ctx, event.EventID().String(), h.idemConfig.TTL)
		if err != nil {
			h.logger.Warn("idempotency check failed, processing anyway",
				zap.Error(err))
		} else if !fresh {
			h.logger.Debug("duplicate low stock event skipped",
				zap.String("event_id", event.EventID().String()))
			return nil
		}
	}

	alertType := "low_stock"
	if thresholdEvent.Quantity.IsZero() {
		alertType = "out_of_stock"
	}

	h.logger.Warn("stock below threshold",
		zap.String("product_id", thresholdEvent.ProductID.String()),
		zap.String("location_id", thresholdEvent.LocationID.String()),
		zap.String("current_quantity", thresholdEvent.Quantity.String()),
		zap.String("minimum_quantity", thresholdEvent.MinQuantity.String()),
		zap.String("alert_type", alertType))

	if h.notifier == nil {
		return nil
	}

	alert := LowStockAlert{
		ProductID:       thresholdEvent.ProductID.String(),
		LocationID:      thresholdEvent.LocationID.String(),
		CurrentQuantity: thresholdEvent.Quantity.String(),
		MinimumQuantity: thresholdEvent.MinQuantity.String(),
		AlertType:       alertType,
	}
	if err := h.notifier.SendAlert(ctx, alert); err != nil {
		// notification failure must not fail event handling
		h.logger.Error("failed to send low stock alert",
			zap.String("product_id", alert.ProductID),
			zap.Error(err))
	}
	return nil
}

var _ shared.EventHandler = (*LowStockHandler)(nil)

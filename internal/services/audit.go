package services

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// AuditLogger records consumed vendor events in the structured log.
type AuditLogger struct {
	logger *zap.Logger
}

// NewAuditLogger creates a new AuditLogger.
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

// Handle decodes one vendor event. Undecodable bodies are returned as errors
// so the broker can drop them.
func (a *AuditLogger) Handle(routingKey string, body []byte) error {
	var event VendorEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("failed to decode %s event: %w", routingKey, err)
	}
	if event.VendorID == 0 {
		return fmt.Errorf("%s event without vendor id", routingKey)
	}
	a.logger.Info("vendor audit",
		zap.String("event", routingKey),
		zap.Uint("vendor_id", event.VendorID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/chimerakang/tokengate-go/audit"
)

// ActivityHandler returns an audit handler that persists events to the
// activity log table. Write failures are logged and dropped.
func (s *Store) ActivityHandler(logger *slog.Logger) audit.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(e audit.Event) {
		entry := ActivityLog{
			CustomerID:  e.CustomerID,
			EventName:   e.EventName,
			Description: e.Description,
			RequestID:   e.RequestID,
			CreatedAt:   e.Timestamp,
		}
		if err := s.db.Create(&entry).Error; err != nil {
			logger.Error("persist activity", "event", e.EventName, "customer_id", e.CustomerID, "error", err)
		}
	}
}

// Activities returns a customer's activity entries, oldest first.
func (s *Store) Activities(ctx context.Context, customerID int64) ([]ActivityLog, error) {
	var out []ActivityLog
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("id asc").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("tokengate/store: list activity: %w", err)
	}
	return out, nil
}

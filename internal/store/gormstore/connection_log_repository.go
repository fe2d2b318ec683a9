package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/callbridge/callbridge/internal/domain"
)

type ConnectionLogRepository struct {
	db *gorm.DB
}

func (r *ConnectionLogRepository) Open(ctx context.Context, l *domain.ConnectionLog) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("gorm: open connection log %q: %w", l.ConnectionID, err)
	}
	return nil
}

func (r *ConnectionLogRepository) Close(ctx context.Context, connectionID string, at time.Time, reason string) error {
	err := r.db.WithContext(ctx).Model(&domain.ConnectionLog{}).
		Where("connection_id = ? AND disconnected_at IS NULL", connectionID).
		Updates(map[string]any{
			"disconnected_at":   at,
			"disconnect_reason": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("gorm: close connection log %q: %w", connectionID, err)
	}
	return nil
}

package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/callbridge/callbridge/internal/domain"
	"github.com/callbridge/callbridge/internal/store"
)

type SessionRepository struct {
	db *gorm.DB
}

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if te := translate(err); errors.Is(te, store.ErrDuplicateEntry) {
			return te
		}
		return fmt.Errorf("gorm: create session %q: %w", s.SessionID, err)
	}
	return nil
}

func (r *SessionRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find session %q: %w", sessionID, err)
	}
	return &s, nil
}

func (r *SessionRepository) ListActive(ctx context.Context) ([]domain.Session, error) {
	var sessions []domain.Session
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.SessionActive).
		Order("created_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list active sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) End(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Session{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":   domain.SessionEnded,
				"ended_at": at,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.Participant{}).
			Where("session_id = ? AND left_at IS NULL", id).
			Updates(map[string]any{
				"left_at": at,
				"status":  domain.ParticipantDisconnected,
			}).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: end session %d: %w", id, err)
	}
	return nil
}

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

type ParticipantRepository struct {
	db *gorm.DB
}

func (r *ParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("gorm: create participant (session %d, user %d): %w", p.SessionID, p.UserID, err)
	}
	return nil
}

func (r *ParticipantRepository) FindActive(ctx context.Context, sessionID, userID uint) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ? AND left_at IS NULL", sessionID, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find active participant (session %d, user %d): %w", sessionID, userID, err)
	}
	return &p, nil
}

func (r *ParticipantRepository) FindActiveByConnection(ctx context.Context, connectionID string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.WithContext(ctx).
		Where("connection_id = ? AND left_at IS NULL", connectionID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find participant by connection %q: %w", connectionID, err)
	}
	return &p, nil
}

func (r *ParticipantRepository) CountActive(ctx context.Context, sessionID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Participant{}).
		Where("session_id = ? AND left_at IS NULL", sessionID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count active participants for session %d: %w", sessionID, err)
	}
	return count, nil
}

func (r *ParticipantRepository) ListActive(ctx context.Context, sessionID uint) ([]store.ParticipantView, error) {
	var views []store.ParticipantView
	err := r.db.WithContext(ctx).Model(&domain.Participant{}).
		Select("participants.user_id, users.username, participants.connection_id, participants.joined_at, participants.status, participants.is_muted, participants.is_video_enabled").
		Joins("JOIN users ON users.id = participants.user_id").
		Where("participants.session_id = ? AND participants.left_at IS NULL", sessionID).
		Order("participants.joined_at ASC").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list active participants for session %d: %w", sessionID, err)
	}
	return views, nil
}

func (r *ParticipantRepository) Rebind(ctx context.Context, id uint, connectionID string) error {
	err := r.db.WithContext(ctx).Model(&domain.Participant{}).
		Where("id = ? AND left_at IS NULL", id).
		Updates(map[string]any{
			"connection_id": connectionID,
			"status":        domain.ParticipantConnected,
		}).Error
	if err != nil {
		return fmt.Errorf("gorm: rebind participant %d: %w", id, err)
	}
	return nil
}

func (r *ParticipantRepository) Leave(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.Participant{}).
		Where("id = ? AND left_at IS NULL", id).
		Updates(map[string]any{
			"left_at": at,
			"status":  domain.ParticipantDisconnected,
		}).Error
	if err != nil {
		return fmt.Errorf("gorm: leave participant %d: %w", id, err)
	}
	return nil
}

func (r *ParticipantRepository) SetFlags(ctx context.Context, id uint, isMuted, isVideoEnabled bool) error {
	err := r.db.WithContext(ctx).Model(&domain.Participant{}).
		Where("id = ? AND left_at IS NULL", id).
		Updates(map[string]any{
			"is_muted":         isMuted,
			"is_video_enabled": isVideoEnabled,
		}).Error
	if err != nil {
		return fmt.Errorf("gorm: set flags for participant %d: %w", id, err)
	}
	return nil
}

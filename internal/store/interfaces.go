// Package store defines the durable persistence contracts for users, sessions,
// participants and connection logs. Implementations live in subpackages.
package store

import (
	"context"
	"time"

	"github.com/callbridge/callbridge/internal/domain"
)

// ParticipantView is the read model for an active membership, joined with the
// participant's username.
type ParticipantView struct {
	UserID         uint                     `json:"userId"`
	Username       string                   `json:"username"`
	ConnectionID   string                   `json:"connectionId"`
	JoinedAt       time.Time                `json:"joinedAt"`
	Status         domain.ParticipantStatus `json:"status"`
	IsMuted        bool                     `json:"isMuted"`
	IsVideoEnabled bool                     `json:"isVideoEnabled"`
}

// UserRepository reads identity records owned by the external auth system.
type UserRepository interface {
	// FindByID returns ErrNotFound when no such user exists.
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}

// SessionRepository owns session rows.
type SessionRepository interface {
	// Create persists a new session. The SessionID must already be set.
	Create(ctx context.Context, s *domain.Session) error

	// FindBySessionID looks a session up by its external id regardless of
	// status. Returns ErrNotFound when absent.
	FindBySessionID(ctx context.Context, sessionID string) (*domain.Session, error)

	// ListActive returns active sessions, newest-created first.
	ListActive(ctx context.Context) ([]domain.Session, error)

	// End marks the session ended and soft-leaves every still-active
	// participant in one transaction.
	End(ctx context.Context, id uint, at time.Time) error
}

// ParticipantRepository owns membership rows. Rows are soft-ended, never
// deleted.
type ParticipantRepository interface {
	// Create inserts a new active membership.
	Create(ctx context.Context, p *domain.Participant) error

	// FindActive returns the open membership for (session, user), or
	// ErrNotFound.
	FindActive(ctx context.Context, sessionID, userID uint) (*domain.Participant, error)

	// FindActiveByConnection returns the open membership bound to a
	// connection id, or ErrNotFound.
	FindActiveByConnection(ctx context.Context, connectionID string) (*domain.Participant, error)

	// CountActive counts open memberships for a session.
	CountActive(ctx context.Context, sessionID uint) (int64, error)

	// ListActive returns the open memberships of a session with usernames.
	ListActive(ctx context.Context, sessionID uint) ([]ParticipantView, error)

	// Rebind points an open membership at a new connection and marks it
	// connected again.
	Rebind(ctx context.Context, id uint, connectionID string) error

	// Leave sets the leave timestamp and disconnected status. Leave never
	// unsets a timestamp already present.
	Leave(ctx context.Context, id uint, at time.Time) error

	// SetFlags updates the mute/video flags of an open membership.
	SetFlags(ctx context.Context, id uint, isMuted, isVideoEnabled bool) error
}

// ConnectionLogRepository is the append-only audit sink.
type ConnectionLogRepository interface {
	// Open records a new connection.
	Open(ctx context.Context, l *domain.ConnectionLog) error

	// Close stamps the still-open log row for the connection with a
	// disconnect time and reason. Closing an already-closed or unknown row
	// is a no-op.
	Close(ctx context.Context, connectionID string, at time.Time, reason string) error
}

// Store bundles the repositories a service needs.
type Store interface {
	Users() UserRepository
	Sessions() SessionRepository
	Participants() ParticipantRepository
	ConnectionLogs() ConnectionLogRepository
}

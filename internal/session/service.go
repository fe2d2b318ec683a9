// Package session orchestrates session and participant state against the
// durable store. It owns the capacity invariant: the count-then-insert path of
// Join is serialized per session so concurrent joins never over-admit.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/domain"
	"github.com/callbridge/callbridge/internal/store"
)

// Summary is the list-level read model of a session.
type Summary struct {
	SessionID           string               `json:"sessionId"`
	Name                string               `json:"name"`
	MaxParticipants     int                  `json:"maxParticipants"`
	CurrentParticipants int                  `json:"currentParticipants"`
	Status              domain.SessionStatus `json:"status"`
	Type                domain.SessionType   `json:"type"`
	CreatedAt           time.Time            `json:"createdAt"`
	CreatorUsername     string               `json:"creatorUsername"`
}

// Detail adds the active participant list.
type Detail struct {
	Summary
	Participants []store.ParticipantView `json:"participants"`
}

type Service struct {
	store store.Store

	// joinMu serializes the capacity check and membership insert per
	// session id. Entries are never evicted; sessions are few and the
	// zero-size mutexes are cheaper than eviction bookkeeping.
	mu     sync.Mutex
	joinMu map[string]*sync.Mutex
}

func NewService(st store.Store) *Service {
	if st == nil {
		panic("session: nil store")
	}
	return &Service{store: st, joinMu: make(map[string]*sync.Mutex)}
}

func (s *Service) lockFor(sessionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.joinMu[sessionID]
	if !ok {
		mu = &sync.Mutex{}
		s.joinMu[sessionID] = mu
	}
	return mu
}

// Create makes a new active session owned by userID.
func (s *Service) Create(ctx context.Context, userID uint, name string, maxParticipants int, typ domain.SessionType) (*Summary, error) {
	if err := domain.ValidateNew(name, maxParticipants); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	sess := &domain.Session{
		SessionID:       uuid.NewString(),
		Name:            name,
		CreatorID:       userID,
		MaxParticipants: maxParticipants,
		Status:          domain.SessionActive,
		Type:            typ,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.store.Sessions().Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: create: %v", ErrUnavailable, err)
	}

	creatorName := s.usernameOf(ctx, userID)
	log.Info().Str("module", "session").
		Str("session_id", sess.SessionID).Uint("creator", userID).
		Int("max", maxParticipants).Msg("session created")

	return &Summary{
		SessionID:           sess.SessionID,
		Name:                sess.Name,
		MaxParticipants:     sess.MaxParticipants,
		CurrentParticipants: 0,
		Status:              sess.Status,
		Type:                sess.Type,
		CreatedAt:           sess.CreatedAt,
		CreatorUsername:     creatorName,
	}, nil
}

// Join registers userID in the session, rebinding an existing active
// membership rather than duplicating it.
func (s *Service) Join(ctx context.Context, userID uint, sessionID, connectionID string) (*Detail, error) {
	sess, err := s.store.Sessions().FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: join: %v", ErrUnavailable, err)
	}
	if sess.Status != domain.SessionActive {
		return nil, ErrNotFound
	}

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := s.store.Participants().FindActive(ctx, sess.ID, userID)
	switch {
	case err == nil:
		// Re-join: same membership, fresh connection.
		if err := s.store.Participants().Rebind(ctx, existing.ID, connectionID); err != nil {
			return nil, fmt.Errorf("%w: rebind: %v", ErrUnavailable, err)
		}
	case errors.Is(err, store.ErrNotFound):
		count, err := s.store.Participants().CountActive(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: count: %v", ErrUnavailable, err)
		}
		if count >= int64(sess.MaxParticipants) {
			return nil, ErrSessionFull
		}
		p := &domain.Participant{
			SessionID:      sess.ID,
			UserID:         userID,
			ConnectionID:   connectionID,
			JoinedAt:       time.Now().UTC(),
			Status:         domain.ParticipantConnected,
			IsVideoEnabled: true,
		}
		if err := s.store.Participants().Create(ctx, p); err != nil {
			return nil, fmt.Errorf("%w: create participant: %v", ErrUnavailable, err)
		}
	default:
		return nil, fmt.Errorf("%w: find participant: %v", ErrUnavailable, err)
	}

	log.Info().Str("module", "session").
		Str("session_id", sessionID).Uint("user", userID).
		Str("connection_id", connectionID).Msg("user joined session")

	return s.detail(ctx, sess)
}

// Get returns session metadata and active participants, for any status.
func (s *Service) Get(ctx context.Context, sessionID string) (*Detail, error) {
	sess, err := s.store.Sessions().FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get: %v", ErrUnavailable, err)
	}
	return s.detail(ctx, sess)
}

// ListActive returns active sessions, newest first, with live counts.
func (s *Service) ListActive(ctx context.Context) ([]Summary, error) {
	sessions, err := s.store.Sessions().ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list: %v", ErrUnavailable, err)
	}
	out := make([]Summary, 0, len(sessions))
	for i := range sessions {
		sess := &sessions[i]
		count, err := s.store.Participants().CountActive(ctx, sess.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: count: %v", ErrUnavailable, err)
		}
		out = append(out, Summary{
			SessionID:           sess.SessionID,
			Name:                sess.Name,
			MaxParticipants:     sess.MaxParticipants,
			CurrentParticipants: int(count),
			Status:              sess.Status,
			Type:                sess.Type,
			CreatedAt:           sess.CreatedAt,
			CreatorUsername:     s.usernameOf(ctx, sess.CreatorID),
		})
	}
	return out, nil
}

// Leave soft-ends the caller's active membership. Returns false when there was
// nothing to do, which is benign.
func (s *Service) Leave(ctx context.Context, userID uint, sessionID string) (bool, error) {
	sess, err := s.store.Sessions().FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: leave: %v", ErrUnavailable, err)
	}
	p, err := s.store.Participants().FindActive(ctx, sess.ID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: leave: %v", ErrUnavailable, err)
	}
	if err := s.store.Participants().Leave(ctx, p.ID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("%w: leave: %v", ErrUnavailable, err)
	}
	log.Info().Str("module", "session").
		Str("session_id", sessionID).Uint("user", userID).Msg("user left session")
	return true, nil
}

// LeaveByConnection soft-ends the membership bound to connectionID, if any.
// Used by the disconnect path: a membership that was already rebound to a
// newer connection is not touched by the stale connection's teardown.
func (s *Service) LeaveByConnection(ctx context.Context, connectionID string) (bool, error) {
	p, err := s.store.Participants().FindActiveByConnection(ctx, connectionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: leave: %v", ErrUnavailable, err)
	}
	if err := s.store.Participants().Leave(ctx, p.ID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("%w: leave: %v", ErrUnavailable, err)
	}
	log.Info().Str("module", "session").
		Str("connection_id", connectionID).Uint("user", p.UserID).Msg("connection membership ended")
	return true, nil
}

// End terminates the session and soft-leaves everyone still in it. Only the
// creator may end a session; any other caller gets false and no mutation.
func (s *Service) End(ctx context.Context, userID uint, sessionID string) (bool, error) {
	sess, err := s.store.Sessions().FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: end: %v", ErrUnavailable, err)
	}
	if sess.CreatorID != userID {
		return false, nil
	}
	if err := s.store.Sessions().End(ctx, sess.ID, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("%w: end: %v", ErrUnavailable, err)
	}
	log.Info().Str("module", "session").
		Str("session_id", sessionID).Uint("user", userID).Msg("session ended")
	return true, nil
}

// UpdateParticipantStatus sets mute/video flags on the membership bound to the
// connection. Returns false when no active membership holds that connection.
func (s *Service) UpdateParticipantStatus(ctx context.Context, connectionID string, isMuted, isVideoEnabled bool) (bool, error) {
	p, err := s.store.Participants().FindActiveByConnection(ctx, connectionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: status: %v", ErrUnavailable, err)
	}
	if err := s.store.Participants().SetFlags(ctx, p.ID, isMuted, isVideoEnabled); err != nil {
		return false, fmt.Errorf("%w: status: %v", ErrUnavailable, err)
	}
	return true, nil
}

func (s *Service) detail(ctx context.Context, sess *domain.Session) (*Detail, error) {
	views, err := s.store.Participants().ListActive(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: participants: %v", ErrUnavailable, err)
	}
	return &Detail{
		Summary: Summary{
			SessionID:           sess.SessionID,
			Name:                sess.Name,
			MaxParticipants:     sess.MaxParticipants,
			CurrentParticipants: len(views),
			Status:              sess.Status,
			Type:                sess.Type,
			CreatedAt:           sess.CreatedAt,
			CreatorUsername:     s.usernameOf(ctx, sess.CreatorID),
		},
		Participants: views,
	}, nil
}

func (s *Service) usernameOf(ctx context.Context, userID uint) string {
	u, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return "unknown"
	}
	return u.Username
}

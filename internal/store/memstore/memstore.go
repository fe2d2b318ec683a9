// Package memstore is an in-memory implementation of the store contracts.
// It backs tests and the dev mode; durability is explicitly not its job.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/callbridge/callbridge/internal/domain"
	"github.com/callbridge/callbridge/internal/store"
)

type Store struct {
	mu           sync.Mutex
	users        map[uint]domain.User
	sessions     map[uint]domain.Session
	participants map[uint]domain.Participant
	logs         []domain.ConnectionLog

	nextSessionID     uint
	nextParticipantID uint
}

func New() *Store {
	return &Store{
		users:             map[uint]domain.User{},
		sessions:          map[uint]domain.Session{},
		participants:      map[uint]domain.Participant{},
		nextSessionID:     1,
		nextParticipantID: 1,
	}
}

// AddUser seeds an identity record, standing in for the external auth system.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) Users() store.UserRepository                   { return (*userRepo)(s) }
func (s *Store) Sessions() store.SessionRepository             { return (*sessionRepo)(s) }
func (s *Store) Participants() store.ParticipantRepository     { return (*participantRepo)(s) }
func (s *Store) ConnectionLogs() store.ConnectionLogRepository { return (*logRepo)(s) }

type userRepo Store

func (r *userRepo) FindByID(_ context.Context, id uint) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

type sessionRepo Store

func (r *sessionRepo) Create(_ context.Context, sess *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.SessionID == sess.SessionID {
			return store.ErrDuplicateEntry
		}
	}
	sess.ID = r.nextSessionID
	r.nextSessionID++
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	r.sessions[sess.ID] = *sess
	return nil
}

func (r *sessionRepo) FindBySessionID(_ context.Context, sessionID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sess := range r.sessions {
		if sess.SessionID == sessionID {
			out := sess
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *sessionRepo) ListActive(_ context.Context) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, sess := range r.sessions {
		if sess.Status == domain.SessionActive {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *sessionRepo) End(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return store.ErrNotFound
	}
	sess.Status = domain.SessionEnded
	sess.EndedAt = &at
	r.sessions[id] = sess
	for pid, p := range r.participants {
		if p.SessionID == id && p.LeftAt == nil {
			left := at
			p.LeftAt = &left
			p.Status = domain.ParticipantDisconnected
			r.participants[pid] = p
		}
	}
	return nil
}

type participantRepo Store

func (r *participantRepo) Create(_ context.Context, p *domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = r.nextParticipantID
	r.nextParticipantID++
	r.participants[p.ID] = *p
	return nil
}

func (r *participantRepo) FindActive(_ context.Context, sessionID, userID uint) (*domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.SessionID == sessionID && p.UserID == userID && p.LeftAt == nil {
			out := p
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *participantRepo) FindActiveByConnection(_ context.Context, connectionID string) (*domain.Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants {
		if p.ConnectionID == connectionID && p.LeftAt == nil {
			out := p
			return &out, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r *participantRepo) CountActive(_ context.Context, sessionID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, p := range r.participants {
		if p.SessionID == sessionID && p.LeftAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *participantRepo) ListActive(_ context.Context, sessionID uint) ([]store.ParticipantView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []store.ParticipantView
	for _, p := range r.participants {
		if p.SessionID != sessionID || p.LeftAt != nil {
			continue
		}
		view := store.ParticipantView{
			UserID:         p.UserID,
			ConnectionID:   p.ConnectionID,
			JoinedAt:       p.JoinedAt,
			Status:         p.Status,
			IsMuted:        p.IsMuted,
			IsVideoEnabled: p.IsVideoEnabled,
		}
		if u, ok := r.users[p.UserID]; ok {
			view.Username = u.Username
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (r *participantRepo) Rebind(_ context.Context, id uint, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok || p.LeftAt != nil {
		return nil
	}
	p.ConnectionID = connectionID
	p.Status = domain.ParticipantConnected
	r.participants[id] = p
	return nil
}

func (r *participantRepo) Leave(_ context.Context, id uint, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok || p.LeftAt != nil {
		return nil
	}
	p.LeftAt = &at
	p.Status = domain.ParticipantDisconnected
	r.participants[id] = p
	return nil
}

func (r *participantRepo) SetFlags(_ context.Context, id uint, isMuted, isVideoEnabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	if !ok || p.LeftAt != nil {
		return nil
	}
	p.IsMuted = isMuted
	p.IsVideoEnabled = isVideoEnabled
	r.participants[id] = p
	return nil
}

type logRepo Store

func (r *logRepo) Open(_ context.Context, l *domain.ConnectionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l.ID = uint(len(r.logs) + 1)
	r.logs = append(r.logs, *l)
	return nil
}

func (r *logRepo) Close(_ context.Context, connectionID string, at time.Time, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.logs {
		if r.logs[i].ConnectionID == connectionID && r.logs[i].DisconnectedAt == nil {
			r.logs[i].DisconnectedAt = &at
			r.logs[i].DisconnectReason = reason
		}
	}
	return nil
}

// Logs returns a copy of the audit rows, for tests.
func (s *Store) Logs() []domain.ConnectionLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ConnectionLog, len(s.logs))
	copy(out, s.logs)
	return out
}

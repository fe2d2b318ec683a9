// Package audit writes connection-log rows as a fire-and-forget side effect.
// The paths that must succeed (join, leave, disconnect cleanup) never wait on
// it and never see its failures.
package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/domain"
	"github.com/callbridge/callbridge/internal/store"
)

const writeTimeout = 5 * time.Second

type Recorder struct {
	logs store.ConnectionLogRepository
}

func NewRecorder(logs store.ConnectionLogRepository) *Recorder {
	return &Recorder{logs: logs}
}

// Connected records a new connection in the background.
func (r *Recorder) Connected(userID uint, connectionID, remoteAddr, userAgent string) {
	if r == nil || r.logs == nil {
		return
	}
	entry := &domain.ConnectionLog{
		UserID:       userID,
		ConnectionID: connectionID,
		IPAddress:    remoteAddr,
		UserAgent:    userAgent,
		ConnectedAt:  time.Now().UTC(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.logs.Open(ctx, entry); err != nil {
			log.Warn().Str("module", "audit").Str("connection_id", connectionID).
				Err(err).Msg("connection log write failed")
		}
	}()
}

// Disconnected closes the open log row for the connection in the background.
// Closing an already-closed row is a store-level no-op.
func (r *Recorder) Disconnected(connectionID, reason string) {
	if r == nil || r.logs == nil {
		return
	}
	at := time.Now().UTC()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := r.logs.Close(ctx, connectionID, at, reason); err != nil {
			log.Warn().Str("module", "audit").Str("connection_id", connectionID).
				Err(err).Msg("connection log close failed")
		}
	}()
}

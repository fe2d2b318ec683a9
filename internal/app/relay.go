// Package app coordinates the ephemeral side of a call: the connection
// registry, the per-session broadcast groups, and the relay that routes
// signaling traffic between live connections.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/audit"
	"github.com/callbridge/callbridge/internal/core"
	"github.com/callbridge/callbridge/internal/session"
)

// Identity is the authenticated caller behind a connection, established by the
// transport adapter before any relay call.
type Identity struct {
	UserID   uint
	Username string
}

// Relay owns the lifecycle of each live connection. It keeps no state of its
// own: durable membership lives in the session service, ephemeral bindings in
// the registry, and delivery in the hub.
type Relay struct {
	Sessions *session.Service
	Registry *Registry
	Hub      *core.Hub
	Audit    *audit.Recorder
}

func NewRelay(sessions *session.Service, registry *Registry, hub *core.Hub, rec *audit.Recorder) *Relay {
	return &Relay{Sessions: sessions, Registry: registry, Hub: hub, Audit: rec}
}

// HandleConnect makes the connection addressable and opens its audit entry.
// No session membership exists yet.
func (r *Relay) HandleConnect(id Identity, connID core.ConnectionID, conn core.SignalConn, remoteAddr, userAgent string) {
	r.Hub.Register(connID, conn)
	r.Audit.Connected(id.UserID, string(connID), remoteAddr, userAgent)
	log.Info().Str("module", "app.relay").Uint("user", id.UserID).
		Str("connection_id", string(connID)).Msg("connection established")
}

// JoinSession validates membership through the session service, binds the
// connection, and announces the newcomer to the rest of the group. A
// connection may serve one session at a time; joining another leaves the
// current one first.
func (r *Relay) JoinSession(ctx context.Context, id Identity, connID core.ConnectionID, sessionID string) {
	if b, ok := r.Registry.Lookup(connID); ok && b.SessionID != sessionID {
		r.LeaveSession(ctx, id, connID, b.SessionID)
	}

	detail, err := r.Sessions.Join(ctx, id.UserID, sessionID, string(connID))
	if err != nil {
		r.sendError(connID, joinErrorMessage(err))
		log.Warn().Str("module", "app.relay").Uint("user", id.UserID).
			Str("session_id", sessionID).Err(err).Msg("join rejected")
		return
	}

	r.Hub.Join(sessionID, connID)
	r.Registry.Bind(connID, id.UserID, sessionID)

	r.Hub.SendTo(connID, encode(sessionStateEvent{Type: EvtSessionState, Session: detail}))
	r.Hub.BroadcastExcept(sessionID, connID, encode(participantEvent{
		Type:         EvtParticipantJoined,
		UserID:       id.UserID,
		ConnectionID: string(connID),
		Timestamp:    time.Now().UTC(),
	}))
}

// LeaveSession tears the membership down. The store update is best-effort:
// cleanup of the group and registry proceeds even when there was nothing to
// leave.
func (r *Relay) LeaveSession(ctx context.Context, id Identity, connID core.ConnectionID, sessionID string) {
	if _, err := r.Sessions.Leave(ctx, id.UserID, sessionID); err != nil {
		log.Warn().Str("module", "app.relay").Uint("user", id.UserID).
			Str("session_id", sessionID).Err(err).Msg("store leave failed, cleaning up anyway")
	}

	r.Hub.Leave(sessionID, connID)
	r.Registry.Unbind(connID)

	r.Hub.Broadcast(sessionID, encode(participantEvent{
		Type:         EvtParticipantLeft,
		UserID:       id.UserID,
		ConnectionID: string(connID),
		Timestamp:    time.Now().UTC(),
	}))
}

// SendOffer relays an SDP offer to exactly one peer connection. The payload is
// opaque; a vanished target is an expected race and is dropped silently.
func (r *Relay) SendOffer(id Identity, connID, target core.ConnectionID, offer json.RawMessage) {
	r.Hub.SendTo(target, encode(signalEvent{
		Type:             EvtReceiveOffer,
		FromConnectionID: string(connID),
		FromUserID:       id.UserID,
		Offer:            offer,
		Timestamp:        time.Now().UTC(),
	}))
}

// SendAnswer relays an SDP answer to exactly one peer connection.
func (r *Relay) SendAnswer(id Identity, connID, target core.ConnectionID, answer json.RawMessage) {
	r.Hub.SendTo(target, encode(signalEvent{
		Type:             EvtReceiveAnswer,
		FromConnectionID: string(connID),
		FromUserID:       id.UserID,
		Answer:           answer,
		Timestamp:        time.Now().UTC(),
	}))
}

// SendIceCandidate relays an ICE candidate to exactly one peer connection.
func (r *Relay) SendIceCandidate(connID, target core.ConnectionID, candidate json.RawMessage) {
	r.Hub.SendTo(target, encode(signalEvent{
		Type:             EvtReceiveCandidate,
		FromConnectionID: string(connID),
		Candidate:        candidate,
		Timestamp:        time.Now().UTC(),
	}))
}

// UpdateStatus persists the mute/video flags and tells everyone else.
func (r *Relay) UpdateStatus(ctx context.Context, id Identity, connID core.ConnectionID, sessionID string, isMuted, isVideoEnabled bool) {
	if _, err := r.Sessions.UpdateParticipantStatus(ctx, string(connID), isMuted, isVideoEnabled); err != nil {
		r.sendError(connID, "failed to update status")
		return
	}
	r.Hub.BroadcastExcept(sessionID, connID, encode(participantStatusEvent{
		Type:           EvtParticipantStatus,
		UserID:         id.UserID,
		ConnectionID:   string(connID),
		IsMuted:        isMuted,
		IsVideoEnabled: isVideoEnabled,
		Timestamp:      time.Now().UTC(),
	}))
}

// SendMessage broadcasts a chat line to the whole group, sender included.
func (r *Relay) SendMessage(id Identity, sessionID, text string) {
	r.Hub.Broadcast(sessionID, encode(chatEvent{
		Type:      EvtReceiveMessage,
		UserID:    id.UserID,
		Username:  id.Username,
		Message:   text,
		Timestamp: time.Now().UTC(),
	}))
}

// HandleDisconnect runs the cleanup path for a closed connection, graceful or
// abrupt. Taking the binding is atomic, so a second disconnect signal for the
// same connection finds nothing and broadcasts nothing.
func (r *Relay) HandleDisconnect(ctx context.Context, connID core.ConnectionID, reason string) {
	if b, ok := r.Registry.Take(connID); ok {
		r.Hub.Leave(b.SessionID, connID)
		r.Hub.Broadcast(b.SessionID, encode(participantEvent{
			Type:         EvtParticipantLeft,
			UserID:       b.UserID,
			ConnectionID: string(connID),
			Timestamp:    time.Now().UTC(),
		}))
		if _, err := r.Sessions.LeaveByConnection(ctx, string(connID)); err != nil {
			log.Warn().Str("module", "app.relay").Uint("user", b.UserID).
				Str("session_id", b.SessionID).Err(err).Msg("store leave on disconnect failed")
		}
	}
	r.Hub.Unregister(connID)

	if reason == "" {
		reason = "normal disconnect"
	}
	r.Audit.Disconnected(string(connID), reason)
	log.Info().Str("module", "app.relay").Str("connection_id", string(connID)).
		Str("reason", reason).Msg("connection closed")
}

func (r *Relay) sendError(connID core.ConnectionID, msg string) {
	r.Hub.SendTo(connID, encode(errorEvent{Type: EvtError, Message: msg}))
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "session not found"
	case errors.Is(err, session.ErrSessionFull):
		return "session is full"
	case errors.Is(err, session.ErrUnavailable):
		return "service unavailable"
	default:
		return "failed to join session"
	}
}

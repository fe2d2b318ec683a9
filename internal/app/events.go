package app

import (
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/core"
	"github.com/callbridge/callbridge/internal/session"
)

// Wire event names. Clients switch on the `type` field.
const (
	EvtParticipantJoined = "participant_joined"
	EvtParticipantLeft   = "participant_left"
	EvtParticipantStatus = "participant_status"
	EvtReceiveOffer      = "receive_offer"
	EvtReceiveAnswer     = "receive_answer"
	EvtReceiveCandidate  = "receive_ice_candidate"
	EvtReceiveMessage    = "receive_message"
	EvtSessionState      = "session_state"
	EvtError             = "error"
)

type participantEvent struct {
	Type         string    `json:"type"`
	UserID       uint      `json:"userId"`
	ConnectionID string    `json:"connectionId"`
	Timestamp    time.Time `json:"timestamp"`
}

type participantStatusEvent struct {
	Type           string    `json:"type"`
	UserID         uint      `json:"userId"`
	ConnectionID   string    `json:"connectionId"`
	IsMuted        bool      `json:"isMuted"`
	IsVideoEnabled bool      `json:"isVideoEnabled"`
	Timestamp      time.Time `json:"timestamp"`
}

// signalEvent carries an opaque SDP or ICE payload between two connections.
// FromUserID is zero-valued (and omitted) for candidate relays.
type signalEvent struct {
	Type             string          `json:"type"`
	FromConnectionID string          `json:"fromConnectionId"`
	FromUserID       uint            `json:"fromUserId,omitempty"`
	Offer            json.RawMessage `json:"offer,omitempty"`
	Answer           json.RawMessage `json:"answer,omitempty"`
	Candidate        json.RawMessage `json:"candidate,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

type chatEvent struct {
	Type      string    `json:"type"`
	UserID    uint      `json:"userId"`
	Username  string    `json:"username"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type sessionStateEvent struct {
	Type    string          `json:"type"`
	Session *session.Detail `json:"session"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func encode(v any) core.Frame {
	b, err := json.Marshal(v)
	if err != nil {
		// Every event type above marshals; this indicates a programming bug.
		log.Error().Str("module", "app.relay").Err(err).Msg("event marshal failed")
		return nil
	}
	return b
}

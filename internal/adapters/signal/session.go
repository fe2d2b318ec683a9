package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/app"
	"github.com/callbridge/callbridge/internal/core"
)

func (ctl *Controller) handleJoin(ctx context.Context, id app.Identity, connID core.ConnectionID, c *wsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Uint("user", id.UserID).
		Str("session_id", p.SessionID).Msg("join")
	ctl.Relay.JoinSession(ctx, id, connID, p.SessionID)
}

// handleLeave leaves the session without dropping the connection.
func (ctl *Controller) handleLeave(ctx context.Context, id app.Identity, connID core.ConnectionID, c *wsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		ctl.sendError(c, "bad_payload")
		return
	}

	log.Info().Str("module", "signal").Uint("user", id.UserID).
		Str("session_id", p.SessionID).Msg("leave")
	ctl.Relay.LeaveSession(ctx, id, connID, p.SessionID)
	ctl.sendJSON(c, map[string]any{"type": "left"})
}

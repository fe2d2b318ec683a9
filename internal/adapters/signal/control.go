package signal

import (
	"context"
	"encoding/json"

	"github.com/callbridge/callbridge/internal/app"
	"github.com/callbridge/callbridge/internal/core"
)

func (ctl *Controller) handleStatus(ctx context.Context, id app.Identity, connID core.ConnectionID, c *wsConn, data []byte) {
	var p struct {
		Type           string `json:"type"`
		SessionID      string `json:"sessionId"`
		IsMuted        bool   `json:"isMuted"`
		IsVideoEnabled bool   `json:"isVideoEnabled"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	ctl.Relay.UpdateStatus(ctx, id, connID, p.SessionID, p.IsMuted, p.IsVideoEnabled)
}

func (ctl *Controller) handleChat(id app.Identity, c *wsConn, data []byte) {
	var p struct {
		Type      string `json:"type"`
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(data, &p); err != nil || p.SessionID == "" || p.Message == "" {
		ctl.sendError(c, "bad_payload")
		return
	}
	if !ctl.ChatLimiter.Allow(id.UserID) {
		ctl.sendError(c, "rate_limited")
		return
	}
	ctl.Relay.SendMessage(id, p.SessionID, p.Message)
}

func (ctl *Controller) handlePing(c *wsConn) {
	ctl.sendJSON(c, map[string]any{"type": "pong"})
}

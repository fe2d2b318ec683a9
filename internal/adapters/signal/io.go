package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/app"
	"github.com/callbridge/callbridge/internal/core"
)

const writeWait = 5 * time.Second

// pongWait leaves slack past the ping period before the peer counts as dead.
func (ctl *Controller) pongWait() time.Duration {
	return ctl.PingPeriod * 10 / 9
}

func (ctl *Controller) writePump(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(ctl.PingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

// readPump is the single consumer of inbound frames; its defer is the one and
// only disconnect path for the connection.
func (ctl *Controller) readPump(ctx context.Context, cancel context.CancelFunc, id app.Identity, connID core.ConnectionID, c *wsConn) {
	reason := ""
	defer func() {
		cancel()
		c.Close()
		// The request context is gone by now; cleanup gets its own.
		ctl.Relay.HandleDisconnect(context.Background(), connID, reason)
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.pongWait()))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					reason = err.Error()
				}
				return
			}
			ctl.handleMessage(ctx, id, connID, c, data)
		}
	}
}

func (ctl *Controller) handleMessage(ctx context.Context, id app.Identity, connID core.ConnectionID, c *wsConn, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch env.Type {
	case "join":
		ctl.handleJoin(ctx, id, connID, c, data)
	case "leave":
		ctl.handleLeave(ctx, id, connID, c, data)
	case "offer":
		ctl.handleOffer(id, connID, c, data)
	case "answer":
		ctl.handleAnswer(id, connID, c, data)
	case "candidate":
		ctl.handleCandidate(connID, c, data)
	case "status":
		ctl.handleStatus(ctx, id, connID, c, data)
	case "chat":
		ctl.handleChat(id, c, data)
	case "ping":
		ctl.handlePing(c)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *Controller) sendError(c *wsConn, msg string) {
	ctl.sendJSON(c, map[string]any{"type": "error", "message": msg})
}

// Package signal is the websocket adapter in front of the relay: it upgrades
// authenticated HTTP requests, pumps frames in both directions, and translates
// wire messages into relay calls.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/callbridge/callbridge/internal/app"
	"github.com/callbridge/callbridge/internal/auth"
	"github.com/callbridge/callbridge/internal/core"
)

type Controller struct {
	Relay       *app.Relay
	ReadLimit   int64
	SendBuffer  int
	PingPeriod  time.Duration
	ChatLimiter *ChatRateLimiter
}

func NewController(relay *app.Relay, readLimit int64, sendBuffer int, pingPeriod time.Duration) *Controller {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	if pingPeriod <= 0 {
		pingPeriod = 54 * time.Second
	}
	return &Controller{
		Relay:       relay,
		ReadLimit:   readLimit,
		SendBuffer:  sendBuffer,
		PingPeriod:  pingPeriod,
		ChatLimiter: NewChatRateLimiter(20, 10*time.Second),
	}
}

// wsConn adapts a gorilla websocket to core.SignalConn. Writes go through a
// buffered channel; a full buffer is backpressure, not a block.
type wsConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and runs the connection until it drops.
// The auth middleware has already established the caller's identity.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	claims, ok := auth.FromContext(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	id := app.Identity{UserID: claims.UserID, Username: claims.Username}
	connID := core.ConnectionID(uuid.NewString())

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Str("module", "signal").Err(err).Msg("ws upgrade")
		return
	}
	if ctl.ReadLimit > 0 {
		ws.SetReadLimit(ctl.ReadLimit)
	}

	conn := &wsConn{
		conn: ws,
		send: make(chan core.Frame, ctl.SendBuffer),
	}

	log.Info().Str("module", "signal").Uint("user", id.UserID).
		Str("connection_id", string(connID)).Msg("new WS connection")

	ctl.Relay.HandleConnect(id, connID, conn, c.ClientIP(), c.Request.UserAgent())

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, connID, conn)
}

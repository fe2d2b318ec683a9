package core

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub holds every live connection and the per-session broadcast groups. It is
// the transport/broadcast collaborator the relay is specified against: group
// join/leave, unicast, broadcast, and broadcast-excluding-sender.
//
// All methods are safe for arbitrary concurrent callers. Sends are
// non-blocking; a slow or vanished receiver never stalls a broadcast.
type Hub struct {
	mu     sync.RWMutex
	conns  map[ConnectionID]SignalConn
	groups map[string]map[ConnectionID]struct{}
}

func NewHub() *Hub {
	return &Hub{
		conns:  make(map[ConnectionID]SignalConn),
		groups: make(map[string]map[ConnectionID]struct{}),
	}
}

// Register makes the connection addressable for unicast delivery.
func (h *Hub) Register(id ConnectionID, conn SignalConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = conn
}

// Unregister removes the connection and any group enrollment. Idempotent.
func (h *Hub) Unregister(id ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
	for sessionID, group := range h.groups {
		delete(group, id)
		if len(group) == 0 {
			delete(h.groups, sessionID)
		}
	}
}

// Join enrolls the connection in the session's broadcast group.
func (h *Hub) Join(sessionID string, id ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[sessionID]
	if !ok {
		group = make(map[ConnectionID]struct{})
		h.groups[sessionID] = group
	}
	group[id] = struct{}{}
}

// Leave removes the connection from the session's group. Idempotent.
func (h *Hub) Leave(sessionID string, id ConnectionID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[sessionID]
	if !ok {
		return
	}
	delete(group, id)
	if len(group) == 0 {
		delete(h.groups, sessionID)
	}
}

// SendTo unicasts to one connection. A missing target is an expected race
// with disconnect, so it only reports false.
func (h *Hub) SendTo(id ConnectionID, f Frame) bool {
	h.mu.RLock()
	conn, ok := h.conns[id]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if err := conn.TrySend(f); err != nil {
		log.Debug().Str("module", "core.hub").Str("connection_id", string(id)).Err(err).Msg("unicast dropped")
		return false
	}
	return true
}

// Broadcast delivers to every member of the session's group, the sender
// included. Returns the number of successful sends.
func (h *Hub) Broadcast(sessionID string, f Frame) int {
	return h.broadcast(sessionID, "", f)
}

// BroadcastExcept delivers to every group member except the given connection.
func (h *Hub) BroadcastExcept(sessionID string, except ConnectionID, f Frame) int {
	return h.broadcast(sessionID, except, f)
}

func (h *Hub) broadcast(sessionID string, except ConnectionID, f Frame) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	dropped := 0
	for id := range h.groups[sessionID] {
		if id == except {
			continue
		}
		conn, ok := h.conns[id]
		if !ok {
			continue
		}
		if err := conn.TrySend(f); err != nil {
			dropped++
			continue
		}
		sent++
	}
	if dropped > 0 {
		log.Debug().Str("module", "core.hub").Str("session_id", sessionID).
			Int("sent", sent).Int("dropped", dropped).Msg("broadcast result")
	}
	return sent
}

// Members returns the connections currently enrolled in the session's group.
func (h *Hub) Members(sessionID string) []ConnectionID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]ConnectionID, 0, len(h.groups[sessionID]))
	for id := range h.groups[sessionID] {
		out = append(out, id)
	}
	return out
}

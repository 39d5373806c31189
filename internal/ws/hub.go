package ws

import "sync"

// sink is the write side of one live connection. *clientConn satisfies it;
// tests substitute a recording fake.
type sink interface {
	writeJSON(v any) error
}

// Hub is the directory of live connections, keyed by connection id. Room
// membership lives in the rooms registry; the hub only resolves connection
// ids to sockets for unicast and fan-out.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]sink
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]sink)}
}

func (h *Hub) Add(connID string, c sink) {
	h.mu.Lock()
	h.conns[connID] = c
	h.mu.Unlock()
}

func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	delete(h.conns, connID)
	h.mu.Unlock()
}

// Unicast writes to a single connection. An unknown or dead target is
// dropped silently: the requesting peer's own negotiation timeout surfaces
// the failure on its side.
func (h *Hub) Unicast(connID string, v any) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	_ = c.writeJSON(v)
}

// BroadcastTo fans a frame out to a pre-taken snapshot of connection ids.
// The I/O happens outside any registry lock.
func (h *Hub) BroadcastTo(connIDs []string, v any) {
	h.mu.RLock()
	conns := make([]sink, 0, len(connIDs))
	for _, id := range connIDs {
		if c, ok := h.conns[id]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range conns {
		_ = c.writeJSON(v)
	}
}

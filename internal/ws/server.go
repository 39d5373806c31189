package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"roomrelay/internal/chat"
	"roomrelay/internal/rooms"
)

const (
	writeWait       = 10 * time.Second
	readLimit       = 64 << 10
	dispatchTimeout = 2 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

// ConnContext is the per-connection state the handlers see. It is read and
// written only from the connection's reader goroutine.
type ConnContext struct {
	ConnID    string
	SessionID string
	RoomID    string // empty until a join is accepted
	UserName  string
	Server    *WsServer
}

type WsServer struct {
	hub       *Hub
	router    *Router
	registry  *rooms.Registry
	store     *chat.Store
	heartbeat time.Duration

	// fanoutMu serializes room mutation together with the resulting fan-out,
	// so every member observes room events in the order they were committed.
	// Coarse on purpose: room and member cardinalities stay small.
	fanoutMu sync.Mutex
}

func NewWsServer(h *Hub, registry *rooms.Registry, store *chat.Store, heartbeat time.Duration) *WsServer {
	srv := &WsServer{
		hub:       h,
		router:    NewRouter(),
		registry:  registry,
		store:     store,
		heartbeat: heartbeat,
	}
	srv.registerHandlers() // ← all WS events configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(readLimit)

	// ─────────────────── Connection established ────────────────────────
	connID := uuid.NewString()
	wsConn := &clientConn{rawConn: rawConn}
	s.hub.Add(connID, wsConn)
	zap.L().Debug("ws.connect", zap.String("conn", connID))

	done := make(chan struct{})
	go s.reader(connID, wsConn, done)
	go s.pinger(wsConn, done)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

// reader owns all inbound traffic for one connection. Per-connection event
// order is preserved because everything, including the final disconnect
// cleanup, runs on this single goroutine: no event can be processed after
// the connection is known to be gone.
func (s *WsServer) reader(connID string, conn *clientConn, done chan struct{}) {
	cc := &ConnContext{ConnID: connID, Server: s}

	defer func() {
		close(done)
		s.hub.Remove(connID)
		s.disconnect(cc)
		_ = conn.rawConn.Close()
		zap.L().Debug("ws.disconnect", zap.String("conn", connID))
	}()

	pongWait := 2 * s.heartbeat
	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err := s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- protocol error -> {"event":"error","body":{...}} --------
		if err != nil {
			_ = conn.writeJSON(Push{Event: "error", Body: ErrorBody{Error: err.Error()}})
		}
	}
}

func (s *WsServer) pinger(conn *clientConn, done <-chan struct{}) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				_ = conn.rawConn.Close()
				return
			}
		}
	}
}

package ws

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"roomrelay/internal/chat"
	"roomrelay/internal/rooms"
)

// registerHandlers binds the relay event table. Room-scoped handlers hold
// fanoutMu across the state mutation and its fan-out, so every member
// observes room events in the order they were committed; the registry and
// store locks themselves are never held during socket I/O.
func (s *WsServer) registerHandlers() {
	// 🔹 check-room ----------------------------------------------------------
	Register(
		s.router,
		"check-room",
		func(ctx context.Context, cc *ConnContext, req CheckRoomRequest) error {
			if req.RoomID == "" {
				return errors.New("missing_room_id")
			}
			cc.Server.hub.Unicast(cc.ConnID, Push{Event: "room-status", Body: RoomStatusBody{
				Exists:  s.registry.Exists(req.RoomID),
				CanJoin: s.registry.CanJoin(req.RoomID),
			}})
			return nil
		},
	)

	Register(s.router, "join", s.handleJoin)
	Register(s.router, "leave", s.handleLeave)

	// 🔹 signaling relay -----------------------------------------------------
	Register(
		s.router,
		"relay-offer",
		func(ctx context.Context, cc *ConnContext, req SignalRequest) error {
			s.relaySignal(cc, "incoming-signal", req)
			return nil
		},
	)
	Register(
		s.router,
		"relay-answer",
		func(ctx context.Context, cc *ConnContext, req SignalRequest) error {
			s.relaySignal(cc, "signal-accepted", req)
			return nil
		},
	)

	Register(s.router, "chat-send", s.handleChatSend)
	Register(s.router, "chat-edit", s.handleChatEdit)
	Register(s.router, "chat-delete", s.handleChatDelete)
}

func (s *WsServer) handleJoin(ctx context.Context, cc *ConnContext, req JoinRequest) error {
	if req.RoomID == "" || req.UserName == "" {
		return errors.New("invalid_join")
	}
	if cc.RoomID != "" {
		// Already joined elsewhere; one room per connection.
		zap.L().Debug("ws.join_while_joined",
			zap.String("conn", cc.ConnID), zap.String("room", cc.RoomID))
		return nil
	}

	// A tab that never produced a session id still gets rejoin dedup per
	// connection lifetime.
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = cc.ConnID
	}

	s.fanoutMu.Lock()
	defer s.fanoutMu.Unlock()

	res := s.registry.Join(req.RoomID, cc.ConnID, sessionID, req.UserName)
	if !res.Accepted {
		s.hub.Unicast(cc.ConnID, Push{Event: "room-full", Body: RoomFullBody{RoomID: req.RoomID}})
		return nil
	}

	cc.RoomID = req.RoomID
	cc.SessionID = sessionID
	cc.UserName = req.UserName

	ids := connIDs(res.Members)
	s.hub.BroadcastTo(ids, Push{Event: "presence-update", Body: PresenceBody{
		RoomID:  req.RoomID,
		Members: memberInfos(res.Members),
	}})

	if !res.Rejoin {
		others := lo.Without(ids, cc.ConnID)
		s.hub.BroadcastTo(others, Push{Event: "member-joined", Body: MemberJoinedBody{
			ConnectionID: cc.ConnID,
			UserName:     req.UserName,
		}})
	}

	if history := s.store.History(req.RoomID); len(history) > 0 {
		s.hub.Unicast(cc.ConnID, Push{Event: "history-replay", Body: HistoryBody{
			RoomID:   req.RoomID,
			Messages: history,
		}})
	}
	return nil
}

func (s *WsServer) handleLeave(ctx context.Context, cc *ConnContext, req LeaveRequest) error {
	if cc.RoomID == "" || cc.RoomID != req.RoomID {
		return nil
	}
	s.fanoutMu.Lock()
	defer s.fanoutMu.Unlock()
	s.finishLeave(cc, cc.RoomID, s.registry.Leave(cc.RoomID, cc.ConnID))
	return nil
}

// disconnect runs on the reader goroutine after the transport dies. The
// connection id is already out of the hub, so nothing can be written to it.
func (s *WsServer) disconnect(cc *ConnContext) {
	s.fanoutMu.Lock()
	defer s.fanoutMu.Unlock()
	roomID, res, ok := s.registry.LeaveByConnection(cc.ConnID)
	if !ok {
		return
	}
	s.finishLeave(cc, roomID, res)
}

func (s *WsServer) finishLeave(cc *ConnContext, roomID string, res rooms.LeaveResult) {
	if !res.Removed {
		return
	}
	cc.RoomID = ""
	cc.SessionID = ""
	cc.UserName = ""

	if res.RoomClosed {
		// Last member out: the room is gone, its history goes with it.
		s.store.Purge(roomID)
		return
	}

	ids := connIDs(res.Members)
	s.hub.BroadcastTo(ids, Push{Event: "presence-update", Body: PresenceBody{
		RoomID:  roomID,
		Members: memberInfos(res.Members),
	}})
	s.hub.BroadcastTo(ids, Push{Event: "member-left", Body: MemberLeftBody{
		ConnectionID: res.Member.ConnectionID,
	}})
}

// relaySignal forwards an opaque payload to one peer. Unknown targets are
// dropped silently; the sender's negotiation times out on its own.
func (s *WsServer) relaySignal(cc *ConnContext, event string, req SignalRequest) {
	if req.TargetConnectionID == "" {
		return
	}
	s.hub.Unicast(req.TargetConnectionID, Push{Event: event, Body: IncomingSignalBody{
		FromConnectionID: cc.ConnID,
		Payload:          req.Payload,
	}})
}

func (s *WsServer) handleChatSend(ctx context.Context, cc *ConnContext, req ChatSendRequest) error {
	s.fanoutMu.Lock()
	defer s.fanoutMu.Unlock()
	if !s.senderInRoom(cc, req.RoomID) || req.ID == "" {
		return nil
	}
	stored := s.store.Append(req.RoomID, chat.Message{
		ID:         req.ID,
		AuthorName: cc.UserName,
		Body:       req.Body,
		ReplyToID:  req.ReplyToID,
	})
	s.broadcastRoom(req.RoomID, Push{Event: "chat-message", Body: stored})
	return nil
}

func (s *WsServer) handleChatEdit(ctx context.Context, cc *ConnContext, req ChatEditRequest) error {
	s.fanoutMu.Lock()
	defer s.fanoutMu.Unlock()
	if !s.senderInRoom(cc, req.RoomID) {
		return nil
	}
	msg, err := s.store.Edit(req.RoomID, req.MessageID, req.NewBody)
	if err != nil {
		// Already deleted, or the room emptied concurrently and the history
		// was purged. Benign race, no error back to the sender.
		return nil
	}
	s.broadcastRoom(req.RoomID, Push{Event: "chat-edited", Body: msg})
	return nil
}

func (s *WsServer) handleChatDelete(ctx context.Context, cc *ConnContext, req ChatDeleteRequest) error {
	s.fanoutMu.Lock()
	defer s.fanoutMu.Unlock()
	if !s.senderInRoom(cc, req.RoomID) {
		return nil
	}
	if !s.store.Delete(req.RoomID, req.MessageID) {
		return nil // double delete, same benign race as edit
	}
	s.broadcastRoom(req.RoomID, Push{Event: "chat-deleted", Body: ChatDeletedBody{MessageID: req.MessageID}})
	return nil
}

// senderInRoom confirms the event's room matches the connection's and that
// the connection is still the session's live binding in the registry. A
// rejoin rebinds the session to a newer connection id; the superseded
// connection keeps its cached room until its reader dies and must not act
// on it.
func (s *WsServer) senderInRoom(cc *ConnContext, roomID string) bool {
	if roomID == "" || cc.RoomID != roomID {
		return false
	}
	connID, ok := s.registry.Resolve(roomID, cc.SessionID)
	return ok && connID == cc.ConnID
}

func (s *WsServer) broadcastRoom(roomID string, frame Push) {
	s.hub.BroadcastTo(connIDs(s.registry.Members(roomID)), frame)
}

func memberInfos(members []rooms.Member) []MemberInfo {
	return lo.Map(members, func(m rooms.Member, _ int) MemberInfo {
		return MemberInfo{ConnectionID: m.ConnectionID, UserName: m.DisplayName}
	})
}

func connIDs(members []rooms.Member) []string {
	return lo.Map(members, func(m rooms.Member, _ int) string { return m.ConnectionID })
}

package ws

import (
	"encoding/json"

	"roomrelay/internal/chat"
)

// Envelope wraps every inbound WS frame.
type Envelope struct {
	Event string          `json:"event"`
	Body  json.RawMessage `json:"body,omitempty"`
}

// Push is a server-initiated frame.
type Push struct {
	Event string `json:"event"`
	Body  any    `json:"body,omitempty"`
}

// ──────────────────────────── Client → server ────────────────────────────

// CheckRoomRequest is the body for "check-room".
type CheckRoomRequest struct {
	RoomID string `json:"roomId"`
}

// JoinRequest is the body for "join". SessionID is client-generated and
// survives reconnects; a reconnecting tab re-sends the same value to resume
// its membership instead of appearing twice.
type JoinRequest struct {
	RoomID    string `json:"roomId"`
	UserName  string `json:"userName"`
	SessionID string `json:"sessionId,omitempty"`
}

type LeaveRequest struct {
	RoomID string `json:"roomId"`
}

// SignalRequest carries an opaque negotiation payload to one peer. The
// relay never inspects Payload.
type SignalRequest struct {
	TargetConnectionID string          `json:"toConnectionId"`
	Payload            json.RawMessage `json:"payload"`
}

type ChatSendRequest struct {
	RoomID    string `json:"roomId"`
	ID        string `json:"id"`
	Body      string `json:"body"`
	ReplyToID string `json:"replyToId,omitempty"`
}

type ChatEditRequest struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
	NewBody   string `json:"newBody"`
}

type ChatDeleteRequest struct {
	RoomID    string `json:"roomId"`
	MessageID string `json:"messageId"`
}

// ──────────────────────────── Server → client ────────────────────────────

// RoomStatusBody answers "check-room".
type RoomStatusBody struct {
	Exists  bool `json:"exists"`
	CanJoin bool `json:"canJoin"`
}

type RoomFullBody struct {
	RoomID string `json:"roomId"`
}

// MemberInfo is the wire form of a room member.
type MemberInfo struct {
	ConnectionID string `json:"connectionId"`
	UserName     string `json:"userName"`
}

type PresenceBody struct {
	RoomID  string       `json:"roomId"`
	Members []MemberInfo `json:"members"`
}

type MemberJoinedBody struct {
	ConnectionID string `json:"connectionId"`
	UserName     string `json:"userName"`
}

type MemberLeftBody struct {
	ConnectionID string `json:"connectionId"`
}

type HistoryBody struct {
	RoomID   string         `json:"roomId"`
	Messages []chat.Message `json:"messages"`
}

// IncomingSignalBody is pushed for both "incoming-signal" and
// "signal-accepted"; the receiver routes by FromConnectionID.
type IncomingSignalBody struct {
	FromConnectionID string          `json:"fromConnectionId"`
	Payload          json.RawMessage `json:"payload"`
}

type ChatDeletedBody struct {
	MessageID string `json:"messageId"`
}

// ErrorBody is returned for protocol-level failures.
type ErrorBody struct {
	Error string `json:"error"`
}

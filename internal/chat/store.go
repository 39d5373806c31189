package chat

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned by Edit when the room has no history or the
// message id is absent. Callers treat it as a benign race.
var ErrNotFound = errors.New("message_not_found")

// Message is one chat entry. ReplyToID is a weak reference: it may point at
// a message that was deleted later, and the store never resolves or
// validates it.
type Message struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
	Edited     bool      `json:"edited"`
	ReplyToID  string    `json:"replyToId,omitempty"`
}

// history keeps a room's messages in insertion order with an id index for
// edit/delete lookups.
type history struct {
	order []string
	byID  map[string]*Message
}

// Store holds the transient per-room chat history. Message ids are unique
// only within a room's lifetime; nothing survives a Purge or a restart.
type Store struct {
	mu    sync.RWMutex
	rooms map[string]*history
}

func NewStore() *Store {
	return &Store{rooms: make(map[string]*history)}
}

// Append stores the message under (roomID, msg.ID) and returns the stored
// form. CreatedAt is stamped on first receipt when the client left it zero;
// callers broadcast the return value so every recipient sees the same
// timestamp. Re-sending an existing id overwrites the entry in place,
// keeping its history position.
func (s *Store) Append(roomID string, msg Message) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.rooms[roomID]
	if !ok {
		h = &history{byID: make(map[string]*Message)}
		s.rooms[roomID] = h
	}

	msg.RoomID = roomID
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	if _, exists := h.byID[msg.ID]; !exists {
		h.order = append(h.order, msg.ID)
	}
	stored := msg
	h.byID[msg.ID] = &stored
	return stored
}

// Edit replaces the body of an existing message, marking it edited.
// CreatedAt and history position are untouched.
func (s *Store) Edit(roomID, messageID, newBody string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.rooms[roomID]
	if !ok {
		return Message{}, ErrNotFound
	}
	msg, ok := h.byID[messageID]
	if !ok {
		return Message{}, ErrNotFound
	}
	msg.Body = newBody
	msg.Edited = true
	return *msg, nil
}

// Delete removes a message and reports whether anything was removed.
// Deleting twice is not an error: the second call returns false.
func (s *Store) Delete(roomID, messageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.rooms[roomID]
	if !ok {
		return false
	}
	if _, ok := h.byID[messageID]; !ok {
		return false
	}
	delete(h.byID, messageID)
	for i, id := range h.order {
		if id == messageID {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return true
}

// History returns the room's messages in insertion order. A room with no
// messages yields an empty slice, never an error.
func (s *Store) History(roomID string) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]Message, 0, len(h.order))
	for _, id := range h.order {
		out = append(out, *h.byID[id])
	}
	return out
}

// Purge drops all history for a room. Called by the relay when the last
// member leaves and the room is deleted.
func (s *Store) Purge(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomID)
}

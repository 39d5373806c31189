package rooms

import (
	"sync"

	"go.uber.org/zap"
)

// Member is one participant of a room. ConnectionID changes across
// reconnects, SessionID does not.
type Member struct {
	ConnectionID string `json:"connectionId"`
	SessionID    string `json:"sessionId"`
	DisplayName  string `json:"displayName"`
}

// JoinResult reports the outcome of a join attempt. Members is an
// insertion-ordered snapshot taken under the registry lock, so callers can
// broadcast it without re-locking.
type JoinResult struct {
	Accepted bool
	Rejoin   bool
	Members  []Member
}

// LeaveResult reports the outcome of a leave. RoomClosed tells the caller
// the room was deleted and its chat history must be purged.
type LeaveResult struct {
	Removed    bool
	Member     Member
	RoomClosed bool
	Members    []Member
}

// Registry holds every live room and its members. A room with zero members
// never exists: it is deleted inside the same critical section that removes
// the last member.
type Registry struct {
	mu         sync.RWMutex
	maxMembers int
	rooms      map[string][]*Member // insertion order preserved
}

func NewRegistry(maxMembers int) *Registry {
	return &Registry{
		maxMembers: maxMembers,
		rooms:      make(map[string][]*Member),
	}
}

func (r *Registry) Exists(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID]) > 0
}

// Occupancy of an unknown room is 0.
func (r *Registry) Occupancy(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

func (r *Registry) CanJoin(roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID]) < r.maxMembers
}

// Members returns an insertion-ordered snapshot of the room's member list.
func (r *Registry) Members(roomID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return snapshot(r.rooms[roomID])
}

// Resolve maps a session id to its current connection id within a room.
func (r *Registry) Resolve(roomID, sessionID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.rooms[roomID] {
		if m.SessionID == sessionID {
			return m.ConnectionID, true
		}
	}
	return "", false
}

// Join adds a member to a room, creating the room on first join. A session
// id already present in the room is a rejoin: the existing member is rebound
// to the new connection id in place and the attempt always succeeds, even at
// capacity, since occupancy does not grow. A brand-new session is rejected
// once the room holds maxMembers.
func (r *Registry) Join(roomID, connID, sessionID, displayName string) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := r.rooms[roomID]
	for _, m := range members {
		if m.SessionID == sessionID {
			m.ConnectionID = connID
			m.DisplayName = displayName
			zap.L().Info("rooms.rejoin",
				zap.String("room", roomID), zap.String("session", sessionID))
			return JoinResult{Accepted: true, Rejoin: true, Members: snapshot(members)}
		}
	}

	if len(members) >= r.maxMembers {
		return JoinResult{Accepted: false}
	}

	members = append(members, &Member{
		ConnectionID: connID,
		SessionID:    sessionID,
		DisplayName:  displayName,
	})
	r.rooms[roomID] = members
	zap.L().Info("rooms.join",
		zap.String("room", roomID), zap.String("name", displayName),
		zap.Int("occupancy", len(members)))
	return JoinResult{Accepted: true, Members: snapshot(members)}
}

// Leave removes the member with the given connection id. No-op if absent.
func (r *Registry) Leave(roomID, connID string) LeaveResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(roomID, connID)
}

// LeaveByConnection handles abrupt disconnects where the caller does not
// know the room. It scans every room for the connection id; small room and
// member counts keep the scan cheap.
func (r *Registry) LeaveByConnection(connID string) (string, LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for roomID, members := range r.rooms {
		for _, m := range members {
			if m.ConnectionID == connID {
				return roomID, r.removeLocked(roomID, connID), true
			}
		}
	}
	return "", LeaveResult{}, false
}

func (r *Registry) removeLocked(roomID, connID string) LeaveResult {
	members := r.rooms[roomID]
	for i, m := range members {
		if m.ConnectionID != connID {
			continue
		}
		removed := *m
		members = append(members[:i], members[i+1:]...)
		if len(members) == 0 {
			delete(r.rooms, roomID)
			zap.L().Info("rooms.closed", zap.String("room", roomID))
			return LeaveResult{Removed: true, Member: removed, RoomClosed: true}
		}
		r.rooms[roomID] = members
		return LeaveResult{Removed: true, Member: removed, Members: snapshot(members)}
	}
	return LeaveResult{}
}

func snapshot(members []*Member) []Member {
	out := make([]Member, 0, len(members))
	for _, m := range members {
		out = append(out, *m)
	}
	return out
}

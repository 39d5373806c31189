package rooms

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Join_CreatesRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomID := uuid.NewString()

	// Given no room exists
	req.False(registry.Exists(roomID))
	req.Zero(registry.Occupancy(roomID))

	// When a member joins
	res := registry.Join(roomID, "conn-1", "sess-1", "Alice")

	// Then the room exists with that single member
	req.True(res.Accepted)
	req.False(res.Rejoin)
	req.Len(res.Members, 1)
	req.Equal("Alice", res.Members[0].DisplayName)
	req.True(registry.Exists(roomID))
	req.Equal(1, registry.Occupancy(roomID))
}

func TestRegistry_Join_PreservesInsertionOrder(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomID := uuid.NewString()

	registry.Join(roomID, "conn-1", "sess-1", "Alice")
	res := registry.Join(roomID, "conn-2", "sess-2", "Bob")

	members := res.Members
	req.Len(members, 2)
	req.Equal("Alice", members[0].DisplayName)
	req.Equal("Bob", members[1].DisplayName)
	req.Equal(members, registry.Members(roomID))
}

func TestRegistry_Join_RejectsAtCapacity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(2)
	roomID := uuid.NewString()

	// Given a full room
	registry.Join(roomID, "conn-1", "sess-1", "Alice")
	registry.Join(roomID, "conn-2", "sess-2", "Bob")

	// When a brand-new session tries to join
	res := registry.Join(roomID, "conn-3", "sess-3", "Carol")

	// Then it is rejected and occupancy is unchanged
	req.False(res.Accepted)
	req.Equal(2, registry.Occupancy(roomID))
	req.False(registry.CanJoin(roomID))
}

func TestRegistry_Rejoin_RebindsConnectionInPlace(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomID := uuid.NewString()

	// Given Alice joined and then reconnected with a new connection id
	registry.Join(roomID, "conn-old", "sess-1", "Alice")
	registry.Join(roomID, "conn-2", "sess-2", "Bob")
	res := registry.Join(roomID, "conn-new", "sess-1", "Alice")

	// Then the rejoin rebinds instead of duplicating
	req.True(res.Accepted)
	req.True(res.Rejoin)
	req.Equal(2, registry.Occupancy(roomID))

	// And list position and session mapping are stable
	req.Equal("Alice", res.Members[0].DisplayName)
	req.Equal("conn-new", res.Members[0].ConnectionID)
	connID, ok := registry.Resolve(roomID, "sess-1")
	req.True(ok)
	req.Equal("conn-new", connID)
}

func TestRegistry_Rejoin_AlwaysAllowedAtCapacity(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(2)
	roomID := uuid.NewString()

	// Given a full room
	registry.Join(roomID, "conn-1", "sess-1", "Alice")
	registry.Join(roomID, "conn-2", "sess-2", "Bob")

	// When a known session rejoins with a fresh connection
	res := registry.Join(roomID, "conn-3", "sess-2", "Bob")

	// Then the rejoin succeeds because occupancy does not grow
	req.True(res.Accepted)
	req.True(res.Rejoin)
	req.Equal(2, registry.Occupancy(roomID))
}

func TestRegistry_SessionNeverDuplicated(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomID := uuid.NewString()

	// When the same session joins repeatedly across reconnects
	for i := 0; i < 5; i++ {
		registry.Join(roomID, fmt.Sprintf("conn-%d", i), "sess-1", "Alice")
	}

	// Then at most one member is attributable to it
	req.Equal(1, registry.Occupancy(roomID))
}

func TestRegistry_Leave_RemovesMember(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomID := uuid.NewString()

	registry.Join(roomID, "conn-1", "sess-1", "Alice")
	registry.Join(roomID, "conn-2", "sess-2", "Bob")

	res := registry.Leave(roomID, "conn-1")

	req.True(res.Removed)
	req.Equal("Alice", res.Member.DisplayName)
	req.False(res.RoomClosed)
	req.Len(res.Members, 1)
	req.Equal("Bob", res.Members[0].DisplayName)
}

func TestRegistry_Leave_LastMemberClosesRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomID := uuid.NewString()

	registry.Join(roomID, "conn-1", "sess-1", "Alice")

	res := registry.Leave(roomID, "conn-1")

	// Then the room is gone from the registry within the same operation
	req.True(res.Removed)
	req.True(res.RoomClosed)
	req.False(registry.Exists(roomID))
	req.Zero(registry.Occupancy(roomID))
}

func TestRegistry_Leave_UnknownConnectionIsNoop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomID := uuid.NewString()

	registry.Join(roomID, "conn-1", "sess-1", "Alice")

	res := registry.Leave(roomID, "conn-unknown")

	req.False(res.Removed)
	req.Equal(1, registry.Occupancy(roomID))
}

func TestRegistry_LeaveByConnection_FindsRoom(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomA := uuid.NewString()
	roomB := uuid.NewString()

	registry.Join(roomA, "conn-1", "sess-1", "Alice")
	registry.Join(roomB, "conn-2", "sess-2", "Bob")

	// When a connection dies without telling us its room
	roomID, res, ok := registry.LeaveByConnection("conn-2")

	// Then the right room is found and emptied
	req.True(ok)
	req.Equal(roomB, roomID)
	req.True(res.RoomClosed)
	req.True(registry.Exists(roomA))
	req.False(registry.Exists(roomB))

	// And an unknown connection reports nothing
	_, _, ok = registry.LeaveByConnection("conn-2")
	req.False(ok)
}

func TestRegistry_ConcurrentJoinsAndDisconnects(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)

	// When connections churn through four rooms from eight goroutines
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			roomID := fmt.Sprintf("room-%d", n%4)
			connID := fmt.Sprintf("conn-%d", n)
			sessionID := fmt.Sprintf("sess-%d", n)
			for j := 0; j < 200; j++ {
				registry.Join(roomID, connID, sessionID, "user")
				registry.Occupancy(roomID)
				registry.LeaveByConnection(connID)
			}
		}(i)
	}
	wg.Wait()

	// Then every connection's final departure emptied its room
	for n := 0; n < 4; n++ {
		roomID := fmt.Sprintf("room-%d", n)
		req.False(registry.Exists(roomID))
		req.Zero(registry.Occupancy(roomID))
	}
}

func TestRegistry_ConcurrentRejoinNeverDuplicatesSession(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(6)
	roomID := uuid.NewString()

	// Anchor member keeps the room alive through the churn
	registry.Join(roomID, "conn-anchor", "sess-anchor", "Anchor")

	// When one session rejoins from racing connections while others
	// disconnect it
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			connID := fmt.Sprintf("conn-%d", n)
			for j := 0; j < 200; j++ {
				registry.Join(roomID, connID, "sess-flaky", "Flaky")
				registry.LeaveByConnection(connID)
			}
		}(i)
	}
	wg.Wait()

	// Then the member count attributable to that session never exceeded one
	occupancy := registry.Occupancy(roomID)
	req.GreaterOrEqual(occupancy, 1)
	req.LessOrEqual(occupancy, 2)

	members := registry.Members(roomID)
	flaky := 0
	for _, m := range members {
		if m.SessionID == "sess-flaky" {
			flaky++
		}
	}
	req.LessOrEqual(flaky, 1)
}

func TestRegistry_RoomsAreIndependent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(1)
	roomA := uuid.NewString()
	roomB := uuid.NewString()

	// Given room A is at capacity
	registry.Join(roomA, "conn-1", "sess-1", "Alice")

	// Then room B still accepts members
	res := registry.Join(roomB, "conn-2", "sess-2", "Bob")
	req.True(res.Accepted)
}

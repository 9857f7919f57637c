package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/models"
)

func newTestHub() *Hub {
	return NewHub(NewRegistry())
}

func TestHubEmitToReachesEveryTab(t *testing.T) {
	h := newTestHub()
	tab1 := newFakeConn("t1", "bob")
	tab2 := newFakeConn("t2", "bob")
	other := newFakeConn("o", "carol")
	h.Register(tab1)
	h.Register(tab2)
	h.Register(other)

	h.EmitTo("bob", Event{Op: OpMessage, Data: map[string]string{"id": "m1"}})

	assert.Equal(t, []string{OpMessage}, tab1.ops(t))
	assert.Equal(t, []string{OpMessage}, tab2.ops(t))
	assert.Empty(t, other.ops(t))
}

func TestHubEmitToOfflineIsSilent(t *testing.T) {
	h := newTestHub()
	assert.NotPanics(t, func() {
		h.EmitTo("nobody", Event{Op: OpMessage})
		h.EmitToMany([]string{"a", "b"}, Event{Op: OpMessage})
	})
}

func TestHubEmitToManyDedupes(t *testing.T) {
	h := newTestHub()
	alice := newFakeConn("a", "alice")
	h.Register(alice)

	h.EmitToMany([]string{"alice", "alice", "bob"}, Event{Op: OpRefreshUserList})
	assert.Len(t, alice.ops(t), 1)
}

func TestHubBroadcastExcept(t *testing.T) {
	h := newTestHub()
	alice := newFakeConn("a", "alice")
	bob := newFakeConn("b", "bob")
	h.Register(alice)
	h.Register(bob)

	h.BroadcastExcept("alice", Event{Op: OpRefreshUserList})
	h.Broadcast(Event{Op: OpOnlineUsers, Data: h.OnlineUserIDs()})

	assert.Equal(t, []string{OpOnlineUsers}, alice.ops(t))
	assert.Equal(t, []string{OpRefreshUserList, OpOnlineUsers}, bob.ops(t))
}

func TestHubSeqIsMonotonic(t *testing.T) {
	h := newTestHub()
	c := newFakeConn("a", "alice")
	h.Register(c)

	for i := 0; i < 3; i++ {
		h.EmitTo("alice", Event{Op: OpMessage})
	}
	events := c.events(t)
	require.Len(t, events, 3)
	assert.Less(t, events[0].Seq, events[1].Seq)
	assert.Less(t, events[1].Seq, events[2].Seq)
}

func TestHubDropsSlowConnection(t *testing.T) {
	h := newTestHub()
	slow := newFakeConn("s", "alice")
	slow.full = true
	h.Register(slow)

	h.EmitTo("alice", Event{Op: OpMessage})
	assert.Eventually(t, slow.closed.Load, time.Second, 5*time.Millisecond)
}

func TestHubDispatchHeartbeatAndCallbacks(t *testing.T) {
	h := newTestHub()
	c := newFakeConn("a", "alice")
	h.Register(c)

	typed := make(chan TypingData, 1)
	focused := make(chan string, 1)
	h.OnTyping(func(userID string, data TypingData) {
		assert.Equal(t, "alice", userID)
		typed <- data
	})
	h.OnFocus(func(conn Conn, peerID string) { focused <- peerID })

	h.dispatch(c, Event{Op: OpHeartbeat})
	assert.Equal(t, []string{OpHeartbeatAck}, c.ops(t))

	h.dispatch(c, Event{Op: OpTyping, Data: map[string]any{"receiverId": "bob", "isTyping": true}})
	select {
	case data := <-typed:
		assert.Equal(t, TypingData{ReceiverID: "bob", IsTyping: true}, data)
	case <-time.After(time.Second):
		t.Fatal("typing callback not invoked")
	}

	h.dispatch(c, Event{Op: OpFocus, Data: map[string]any{"peerId": "bob"}})
	select {
	case peer := <-focused:
		assert.Equal(t, "bob", peer)
	case <-time.After(time.Second):
		t.Fatal("focus callback not invoked")
	}

	// receiverId olmadan typing yok sayılır.
	h.dispatch(c, Event{Op: OpTyping, Data: map[string]any{"isTyping": true}})
	select {
	case <-typed:
		t.Fatal("typing without receiver must be ignored")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDispatchStatusUpdate(t *testing.T) {
	h := newTestHub()
	c := newFakeConn("a", "alice")
	h.Register(c)

	updates := make(chan models.SetStatusRequest, 1)
	h.OnStatusUpdate(func(userID string, data models.SetStatusRequest) {
		assert.Equal(t, "alice", userID)
		updates <- data
	})

	h.dispatch(c, Event{Op: OpStatusUpdate, Data: map[string]any{"status": "busy", "customStatus": "focus time"}})
	select {
	case data := <-updates:
		assert.Equal(t, models.UserStatusBusy, data.Status)
		require.NotNil(t, data.CustomStatus)
		assert.Equal(t, "focus time", *data.CustomStatus)
	case <-time.After(time.Second):
		t.Fatal("status callback not invoked")
	}

	// status alanı olmadan op yok sayılır.
	h.dispatch(c, Event{Op: OpStatusUpdate, Data: map[string]any{"customStatus": "x"}})
	select {
	case <-updates:
		t.Fatal("status update without status must be ignored")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubDisconnectUserClosesAllTabs(t *testing.T) {
	h := newTestHub()
	tab1 := newFakeConn("t1", "bob")
	tab2 := newFakeConn("t2", "bob")
	h.Register(tab1)
	h.Register(tab2)

	h.DisconnectUser("bob")
	assert.True(t, tab1.closed.Load())
	assert.True(t, tab2.closed.Load())
}

func TestNotificationPayload(t *testing.T) {
	n := Notification(NotifyMessagesRead, map[string]any{"readerId": "bob", "type": "ignored"})
	assert.Equal(t, NotifyMessagesRead, n["type"])
	assert.Equal(t, "bob", n["readerId"])
}

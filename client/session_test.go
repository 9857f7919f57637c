package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/ws"
)

type fakeFetcher struct {
	mu            sync.Mutex
	sidebarCalls  int
	conversations int
	seen          []string
	page          *models.MessagePage
	// during, Conversation yanıt dönmeden önce çalışır.
	during func()
}

func (f *fakeFetcher) Sidebar(context.Context) (*models.Sidebar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sidebarCalls++
	return &models.Sidebar{UnseenMessages: map[string]int{}}, nil
}

func (f *fakeFetcher) Conversation(context.Context, string) (*models.MessagePage, error) {
	if f.during != nil {
		f.during()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conversations++
	if f.page == nil {
		return &models.MessagePage{}, nil
	}
	return f.page, nil
}

func (f *fakeFetcher) MarkSeen(_ context.Context, peerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, peerID)
	return nil
}

func (f *fakeFetcher) counts() (sidebar, conversations int, seen []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sidebarCalls, f.conversations, append([]string(nil), f.seen...)
}

// newWSServer, her bağlantıya serve fonksiyonunu uygular.
func newWSServer(t *testing.T, serve func(n int64, conn *websocket.Conn)) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var connections atomic.Int64
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(connections.Add(1), conn)
	}))
	t.Cleanup(srv.Close)
	return srv, &connections
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestSessionReconnectsAndResyncs(t *testing.T) {
	// İlk iki bağlantı hemen kapanır; üçüncüsü açık kalır.
	srv, connections := newWSServer(t, func(n int64, conn *websocket.Conn) {
		if n < 3 {
			return
		}
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	fetcher := &fakeFetcher{}
	state := NewState("bob")
	state.Select("alice", nil)
	session := NewSession(Config{URL: wsURL(srv), Token: "tok", MinBackoff: 5 * time.Millisecond, MaxBackoff: 20 * time.Millisecond}, fetcher, state)

	var connects atomic.Int64
	session.OnConnect(func() { connects.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	require.Eventually(t, func() bool { return connections.Load() >= 3 && connects.Load() >= 3 }, 3*time.Second, 5*time.Millisecond)

	sidebar, conversations, _ := fetcher.counts()
	assert.GreaterOrEqual(t, sidebar, 3, "every connect refetches the sidebar")
	assert.GreaterOrEqual(t, conversations, 3, "every connect refetches the active conversation")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestSessionAppliesEventsAndMarksSeen(t *testing.T) {
	incoming := models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Content: models.TextContent("hi"), Version: 1}
	received := make(chan ws.Event, 4)

	srv, _ := newWSServer(t, func(_ int64, conn *websocket.Conn) {
		for range 2 {
			if err := conn.WriteJSON(ws.Event{Op: ws.OpMessage, Data: incoming}); err != nil {
				return
			}
		}
		for {
			var ev ws.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			received <- ev
		}
	})

	fetcher := &fakeFetcher{}
	state := NewState("bob")
	state.Select("alice", nil)
	session := NewSession(Config{URL: wsURL(srv), Token: "tok"}, fetcher, state)

	var applied atomic.Int64
	session.OnEvent(func(Frame, Action) { applied.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go session.Run(ctx)

	require.Eventually(t, func() bool { return applied.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Len(t, state.Messages(), 1, "duplicate delivery is discarded")
	_, _, seen := fetcher.counts()
	assert.Equal(t, []string{"alice"}, seen)

	// İlk frame: yeniden bağlanınca aktif konuşma için focus.
	select {
	case ev := <-received:
		assert.Equal(t, ws.OpFocus, ev.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("no focus frame")
	}

	require.NoError(t, session.SendTyping("alice", true))
	select {
	case ev := <-received:
		assert.Equal(t, ws.OpTyping, ev.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("no typing frame")
	}
}

func TestSessionSelectKeepsMessageArrivingDuringFetch(t *testing.T) {
	older := models.Message{ID: "m1", SenderID: "alice", ReceiverID: "bob", Content: models.TextContent("old"), Version: 1,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	live := models.Message{ID: "m2", SenderID: "alice", ReceiverID: "bob", Content: models.TextContent("new"), Version: 1,
		CreatedAt: older.CreatedAt.Add(time.Second)}

	state := NewState("bob")
	fetcher := &fakeFetcher{page: &models.MessagePage{Messages: []models.Message{older}}}
	fetcher.during = func() {
		state.Apply(frame(t, ws.OpMessage, live))
	}
	session := NewSession(Config{URL: "ws://127.0.0.1:1/ws"}, fetcher, state)

	require.NoError(t, session.Select(context.Background(), "alice"))

	got := state.Messages()
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
	assert.Zero(t, state.Unread("alice"))
}

func TestSendWithoutConnection(t *testing.T) {
	session := NewSession(Config{URL: "ws://127.0.0.1:1/ws"}, &fakeFetcher{}, NewState("bob"))
	assert.ErrorIs(t, session.SendTyping("alice", true), ErrNotConnected)
}

func TestJitterBounds(t *testing.T) {
	for range 100 {
		d := jitter(time.Second)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

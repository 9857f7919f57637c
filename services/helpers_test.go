package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/database"
	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/repository"
	"github.com/akinalp/dmrelay/ws"
)

// sentEvent, fakePublisher'ın kaydettiği tek bir gönderim.
// To boşsa broadcast'tir.
type sentEvent struct {
	To    string
	Event ws.Event
}

// fakePublisher, ws.EventPublisher'ın kayıt tutan test implementasyonu.
type fakePublisher struct {
	mu      sync.Mutex
	online  map[string]bool
	viewing map[string]string
	sent    []sentEvent
	direct  []ws.Event
}

func newFakePublisher(online ...string) *fakePublisher {
	p := &fakePublisher{online: map[string]bool{}, viewing: map[string]string{}}
	for _, id := range online {
		p.online[id] = true
	}
	return p
}

func (p *fakePublisher) EmitTo(userID string, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.online[userID] {
		p.sent = append(p.sent, sentEvent{To: userID, Event: event})
	}
}

func (p *fakePublisher) EmitToMany(userIDs []string, event ws.Event) {
	seen := map[string]bool{}
	for _, id := range userIDs {
		if !seen[id] {
			seen[id] = true
			p.EmitTo(id, event)
		}
	}
}

func (p *fakePublisher) Broadcast(event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, sentEvent{Event: event})
}

func (p *fakePublisher) BroadcastExcept(_ string, event ws.Event) {
	p.Broadcast(event)
}

func (p *fakePublisher) SendDirect(_ ws.Conn, event ws.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.direct = append(p.direct, event)
}

func (p *fakePublisher) OnlineUserIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ids []string
	for id, on := range p.online {
		if on {
			ids = append(ids, id)
		}
	}
	return ids
}

func (p *fakePublisher) IsOnline(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online[userID]
}

func (p *fakePublisher) IsViewing(userID, peerID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.viewing[userID] == peerID
}

func (p *fakePublisher) setOnline(userID string, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.online[userID] = on
}

func (p *fakePublisher) setViewing(userID, peerID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.viewing[userID] = peerID
}

// eventsFor, kullanıcıya giden (broadcast hariç) event'leri döner.
func (p *fakePublisher) eventsFor(userID string) []ws.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ws.Event
	for _, s := range p.sent {
		if s.To == userID {
			out = append(out, s.Event)
		}
	}
	return out
}

func (p *fakePublisher) broadcasts() []ws.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ws.Event
	for _, s := range p.sent {
		if s.To == "" {
			out = append(out, s.Event)
		}
	}
	return out
}

func (p *fakePublisher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent) + len(p.direct)
}

func (p *fakePublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
	p.direct = nil
}

func ops(events []ws.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Op
	}
	return out
}

// notificationTypes, notification event'lerinin type alanlarını döner.
func notificationTypes(events []ws.Event) []string {
	var out []string
	for _, e := range events {
		if e.Op != ws.OpNotification {
			continue
		}
		if m, ok := e.Data.(map[string]any); ok {
			out = append(out, m["type"].(string))
		}
	}
	return out
}

// testRepos, gerçek SQLite (temp dir) üzerinde repository seti.
type testRepos struct {
	messages  repository.MessageRepository
	unread    repository.UnreadRepository
	users     repository.UserRepository
	relations repository.RelationRepository
	reports   repository.ReportRepository
}

func newTestRepos(t *testing.T, users ...string) *testRepos {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	r := &testRepos{
		messages:  repository.NewSQLiteMessageRepo(db.Conn),
		unread:    repository.NewSQLiteUnreadRepo(db.Conn),
		users:     repository.NewSQLiteUserRepo(db.Conn),
		relations: repository.NewSQLiteRelationRepo(db.Conn),
		reports:   repository.NewSQLiteReportRepo(db.Conn),
	}
	for _, id := range users {
		mail := id + "@example.com"
		require.NoError(t, r.users.Upsert(context.Background(), &models.User{ID: id, Username: id, Email: &mail}))
	}
	return r
}

// fakeNotifier, MissedMessageNotifier çağrılarını kaydeder.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []string // "sender→receiver"
}

func (n *fakeNotifier) Notify(sender, receiver *models.User, _ *models.Message, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, sender.ID+"→"+receiver.ID)
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

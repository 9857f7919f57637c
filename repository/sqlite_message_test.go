package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/database"
	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
)

type testStore struct {
	messages  MessageRepository
	unread    UnreadRepository
	users     UserRepository
	relations RelationRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := &testStore{
		messages:  NewSQLiteMessageRepo(db.Conn),
		unread:    NewSQLiteUnreadRepo(db.Conn),
		users:     NewSQLiteUserRepo(db.Conn),
		relations: NewSQLiteRelationRepo(db.Conn),
	}
	for _, id := range []string{"alice", "bob", "carol"} {
		require.NoError(t, s.users.Upsert(context.Background(), &models.User{ID: id, Username: id}))
	}
	return s
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTextMessage(from, to, text string, at time.Time) *models.Message {
	return &models.Message{
		ID:         uuid.NewString(),
		SenderID:   from,
		ReceiverID: to,
		Content:    models.TextContent(text),
		Priority:   models.PriorityNormal,
		CreatedAt:  at,
	}
}

func TestMessageCreateAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := newTextMessage("alice", "bob", "hi", baseTime)
	replyTo := "m-0"
	msg.ReplyToID = &replyTo
	require.NoError(t, s.messages.Create(ctx, msg))
	assert.Equal(t, int64(1), msg.Version)

	got, err := s.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.SenderID)
	assert.Equal(t, models.ContentText, got.Content.Type)
	assert.Equal(t, "hi", *got.Content.Text)
	assert.Equal(t, "m-0", *got.ReplyToID)
	assert.Nil(t, got.SeenAt)
	assert.Empty(t, got.Reactions)
	assert.True(t, got.CreatedAt.Equal(baseTime))

	_, err = s.messages.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestCreateWithUnreadIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := newTextMessage("alice", "bob", "1", baseTime)
	unread, err := s.messages.CreateWithUnread(ctx, first, true)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	unread, err = s.messages.CreateWithUnread(ctx, newTextMessage("alice", "bob", "2", baseTime.Add(time.Second)), true)
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	// Sayaç artmadan yazılan mesaj (alıcı konuşmaya bakıyor).
	unread, err = s.messages.CreateWithUnread(ctx, newTextMessage("alice", "bob", "3", baseTime.Add(2*time.Second)), false)
	require.NoError(t, err)
	assert.Equal(t, 0, unread)

	// Insert başarısızsa sayaç da yazılmaz.
	dup := *first
	_, err = s.messages.CreateWithUnread(ctx, &dup, true)
	require.Error(t, err)

	count, err := s.unread.Get(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestFindConversationExcludesDeletedAndPages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		from, to := "alice", "bob"
		if i%2 == 1 {
			from, to = "bob", "alice"
		}
		m := newTextMessage(from, to, "m", baseTime.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.messages.Create(ctx, m))
		ids = append(ids, m.ID)
	}
	// Başka bir konuşma karışmamalı.
	require.NoError(t, s.messages.Create(ctx, newTextMessage("alice", "carol", "x", baseTime)))

	deleted, err := s.messages.GetByID(ctx, ids[2])
	require.NoError(t, err)
	now := baseTime.Add(time.Minute)
	deleted.IsDeleted = true
	deleted.DeletedAt = &now
	require.NoError(t, s.messages.Update(ctx, deleted, deleted.Version))

	page, err := s.messages.FindConversation(ctx, "bob", "alice", "", 10)
	require.NoError(t, err)
	require.Len(t, page, 4)
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[0], page[3].ID)

	older, err := s.messages.FindConversation(ctx, "alice", "bob", ids[3], 10)
	require.NoError(t, err)
	require.Len(t, older, 2)
	assert.Equal(t, ids[1], older[0].ID)
	assert.Equal(t, ids[0], older[1].ID)

	limited, err := s.messages.FindConversation(ctx, "alice", "bob", "", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMarkSeenResetsCounterAndIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.messages.Create(ctx, newTextMessage("alice", "bob", "hi", baseTime.Add(time.Duration(i)))))
		_, err := s.unread.Increment(ctx, "bob", "alice")
		require.NoError(t, err)
	}
	// Ters yön etkilenmemeli.
	require.NoError(t, s.messages.Create(ctx, newTextMessage("bob", "alice", "yo", baseTime)))

	n, err := s.messages.CountUnseen(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ids, err := s.messages.MarkSeen(ctx, "alice", "bob", baseTime.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	count, err := s.unread.Get(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Zero(t, count)

	got, err := s.messages.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, got.Seen)
	require.NotNil(t, got.SeenAt)
	assert.Equal(t, int64(2), got.Version)

	again, err := s.messages.MarkSeen(ctx, "alice", "bob", baseTime.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again)

	got, err = s.messages.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, got.SeenAt.Equal(baseTime.Add(time.Hour)))

	reverse, err := s.messages.CountUnseen(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, reverse)
}

func TestMarkSeenByIDRecomputesCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := newTextMessage("alice", "bob", "1", baseTime)
	second := newTextMessage("alice", "bob", "2", baseTime.Add(time.Second))
	require.NoError(t, s.messages.Create(ctx, first))
	require.NoError(t, s.messages.Create(ctx, second))

	ok, err := s.messages.MarkSeenByID(ctx, first.ID, "bob", baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	count, err := s.unread.Get(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Alıcı olmayan biri işaretleyemez; tekrar işaretleme no-op.
	ok, err = s.messages.MarkSeenByID(ctx, second.ID, "alice", baseTime)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.messages.MarkSeenByID(ctx, first.ID, "bob", baseTime)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMarkDeliveredReturnsSenders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.messages.Create(ctx, newTextMessage("alice", "bob", "1", baseTime)))
	require.NoError(t, s.messages.Create(ctx, newTextMessage("carol", "bob", "2", baseTime)))
	require.NoError(t, s.messages.Create(ctx, newTextMessage("carol", "bob", "3", baseTime)))

	senders, err := s.messages.MarkDelivered(ctx, "bob", baseTime.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, senders)

	senders, err = s.messages.MarkDelivered(ctx, "bob", baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, senders)
}

func TestUpdateCompareAndSwap(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	msg := newTextMessage("alice", "bob", "draft", baseTime)
	require.NoError(t, s.messages.Create(ctx, msg))

	a, err := s.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	b, err := s.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)

	a.Content = models.TextContent("final")
	a.IsEdited = true
	require.NoError(t, s.messages.Update(ctx, a, a.Version))
	assert.Equal(t, int64(2), a.Version)

	b.SetReaction("bob", "👍", baseTime)
	err = s.messages.Update(ctx, b, b.Version)
	assert.ErrorIs(t, err, pkg.ErrConflict)

	got, err := s.messages.GetByID(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", *got.Content.Text)
	assert.Empty(t, got.Reactions)

	ghost := newTextMessage("alice", "bob", "x", baseTime)
	assert.ErrorIs(t, s.messages.Update(ctx, ghost, 1), pkg.ErrNotFound)
}

func TestSearchAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.messages.Create(ctx, newTextMessage("alice", "bob", "lunch at 12?", baseTime)))
	require.NoError(t, s.messages.Create(ctx, newTextMessage("bob", "alice", "100% lunch", baseTime.Add(time.Second))))
	require.NoError(t, s.messages.Create(ctx, newTextMessage("alice", "carol", "lunch tomorrow", baseTime.Add(2*time.Second))))
	file := &models.Message{
		ID: uuid.NewString(), SenderID: "bob", ReceiverID: "alice",
		Content:   models.Content{Type: models.ContentFile, File: &models.FileContent{URL: "/u/menu.pdf", Name: "menu.pdf", Size: 10}},
		Priority:  models.PriorityNormal,
		CreatedAt: baseTime.Add(3 * time.Second),
	}
	require.NoError(t, s.messages.Create(ctx, file))

	all, err := s.messages.Search(ctx, "alice", "lunch", "", 20)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	withBob, err := s.messages.Search(ctx, "alice", "lunch", "bob", 20)
	require.NoError(t, err)
	assert.Len(t, withBob, 2)

	percent, err := s.messages.Search(ctx, "alice", "0%", "", 20)
	require.NoError(t, err)
	require.Len(t, percent, 1)
	assert.Equal(t, "100% lunch", *percent[0].Content.Text)

	byName, err := s.messages.Search(ctx, "alice", "menu", "", 20)
	require.NoError(t, err)
	assert.Len(t, byName, 1)

	outsider, err := s.messages.Search(ctx, "carol", "100", "", 20)
	require.NoError(t, err)
	assert.Empty(t, outsider)

	stats, err := s.messages.Stats(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 2, stats.Received)
	assert.Equal(t, 2, stats.UnseenByMe)
	assert.Equal(t, 1, stats.UnseenByPeer)
	assert.Equal(t, map[string]int{"text": 2, "file": 1}, stats.ByType)
	require.NotNil(t, stats.FirstMessageAt)
	assert.True(t, stats.FirstMessageAt.Equal(baseTime))
	assert.True(t, stats.LastMessageAt.Equal(baseTime.Add(3*time.Second)))

	empty, err := s.messages.Stats(ctx, "bob", "carol")
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Nil(t, empty.FirstMessageAt)
}

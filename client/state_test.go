package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/ws"
)

func frame(t *testing.T, op string, data any) Frame {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return Frame{Op: op, Data: raw}
}

func msg(id, from, to string) models.Message {
	return models.Message{ID: id, SenderID: from, ReceiverID: to, Content: models.TextContent(id), Version: 1}
}

func TestApplyMessageActiveConversation(t *testing.T) {
	s := NewState("bob")
	s.Select("alice", &models.MessagePage{})

	action := s.Apply(frame(t, ws.OpMessage, msg("m1", "alice", "bob")))
	assert.Equal(t, Action{MarkSeenPeer: "alice"}, action)
	assert.Len(t, s.Messages(), 1)
	assert.Zero(t, s.Unread("alice"))

	// Aynı ID ikinci kez: atılır.
	action = s.Apply(frame(t, ws.OpMessage, msg("m1", "alice", "bob")))
	assert.Equal(t, Action{}, action)
	assert.Len(t, s.Messages(), 1)

	// Kendi mesajının yankısı okundu gerektirmez.
	action = s.Apply(frame(t, ws.OpMessage, msg("m2", "bob", "alice")))
	assert.Equal(t, Action{}, action)
	assert.Len(t, s.Messages(), 2)
}

func TestApplyMessageOtherConversation(t *testing.T) {
	s := NewState("bob")
	s.Select("carol", &models.MessagePage{})

	action := s.Apply(frame(t, ws.OpMessage, msg("m1", "alice", "bob")))
	assert.True(t, action.RefreshSidebar)
	assert.Empty(t, action.MarkSeenPeer)
	assert.Equal(t, 1, s.Unread("alice"))
	assert.Empty(t, s.Messages())

	s.Apply(frame(t, ws.OpMessage, msg("m2", "alice", "bob")))
	assert.Equal(t, 2, s.Unread("alice"))

	// Seçince sayaç sıfırlanır.
	s.Select("alice", &models.MessagePage{Messages: []models.Message{msg("m1", "alice", "bob"), msg("m2", "alice", "bob")}})
	assert.Zero(t, s.Unread("alice"))
	assert.Len(t, s.Messages(), 2)
}

func TestApplyMessageUpdate(t *testing.T) {
	s := NewState("bob")
	s.Select("alice", &models.MessagePage{Messages: []models.Message{msg("m1", "alice", "bob"), msg("m2", "alice", "bob")}})

	edited := msg("m1", "alice", "bob")
	edited.Content = models.TextContent("fixed")
	edited.IsEdited = true
	edited.Version = 3
	s.Apply(frame(t, ws.OpMessageUpdate, ws.MessageUpdateData{Action: ws.ActionEdited, Message: &edited}))
	assert.Equal(t, "fixed", *s.Messages()[0].Content.Text)

	// Daha eski version yenisini ezmez.
	stale := msg("m1", "alice", "bob")
	stale.Version = 2
	s.Apply(frame(t, ws.OpMessageUpdate, ws.MessageUpdateData{Action: ws.ActionReacted, Message: &stale}))
	assert.True(t, s.Messages()[0].IsEdited)

	deleted := msg("m2", "alice", "bob")
	deleted.IsDeleted = true
	s.Apply(frame(t, ws.OpMessageUpdate, ws.MessageUpdateData{Action: ws.ActionDeleted, Message: &deleted}))
	require.Len(t, s.Messages(), 1)
	assert.Equal(t, "m1", s.Messages()[0].ID)
}

func TestApplyPresenceAndTyping(t *testing.T) {
	s := NewState("bob")

	s.Apply(frame(t, ws.OpOnlineUsers, []string{"alice", "bob"}))
	assert.True(t, s.IsOnline("alice"))
	s.Apply(frame(t, ws.OpOnlineUsers, []string{"bob"}))
	assert.False(t, s.IsOnline("alice"))

	s.Apply(frame(t, ws.OpUserTyping, ws.UserTypingData{UserID: "alice", IsTyping: true}))
	assert.True(t, s.IsTyping("alice"))

	// Mesaj gelince typing göstergesi kapanır.
	s.Apply(frame(t, ws.OpMessage, msg("m1", "alice", "bob")))
	assert.False(t, s.IsTyping("alice"))
}

func TestApplyRefreshTriggers(t *testing.T) {
	s := NewState("bob")

	assert.True(t, s.Apply(Frame{Op: ws.OpRefreshUserList}).RefreshSidebar)
	assert.True(t, s.Apply(frame(t, ws.OpEntityChanged, ws.EntityChangedData{Kind: "unread", Action: "reset"})).RefreshSidebar)
	assert.Equal(t, Action{}, s.Apply(Frame{Op: "unknown"}))
	assert.Equal(t, Action{}, s.Apply(Frame{Op: ws.OpMessage, Data: json.RawMessage(`{"id":`)}))
}

func TestApplyReceipts(t *testing.T) {
	s := NewState("alice")
	s.Select("bob", &models.MessagePage{Messages: []models.Message{msg("m1", "alice", "bob"), msg("m2", "alice", "bob")}})

	s.Apply(frame(t, ws.OpEntityChanged, ws.EntityChangedData{Kind: "message", Action: ws.ActionDelivered, UserID: "bob", TargetUserID: "alice"}))
	for _, m := range s.Messages() {
		assert.True(t, m.Delivered)
		assert.False(t, m.Seen)
	}

	seenAt := time.Now().UTC().Truncate(time.Second)
	s.Apply(frame(t, ws.OpNotification, ws.Notification(ws.NotifyMessagesRead, map[string]any{
		"readerId":   "bob",
		"messageIds": []string{"m2"},
		"seenAt":     seenAt,
	})))
	got := s.Messages()
	assert.False(t, got[0].Seen)
	assert.True(t, got[1].Seen)
	require.NotNil(t, got[1].SeenAt)
	assert.True(t, seenAt.Equal(*got[1].SeenAt))
}

func TestReplaceSidebarKeepsActiveRead(t *testing.T) {
	s := NewState("bob")
	s.Select("alice", nil)

	s.ReplaceSidebar(&models.Sidebar{UnseenMessages: map[string]int{"alice": 2, "carol": 1}})
	assert.Zero(t, s.Unread("alice"))
	assert.Equal(t, 1, s.Unread("carol"))
}

func TestSelectKeepsMessagesAppliedDuringFetch(t *testing.T) {
	s := NewState("bob")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(id string, offset time.Duration) models.Message {
		m := msg(id, "alice", "bob")
		m.CreatedAt = base.Add(offset)
		return m
	}

	// Fetch başlamadan konuşma açılır; fetch sürerken m3 gelir.
	s.Open("alice")
	action := s.Apply(frame(t, ws.OpMessage, at("m3", 3*time.Second)))
	assert.Equal(t, Action{MarkSeenPeer: "alice"}, action)

	// Page m3'ten önce okunmuş: onu içermez.
	s.Select("alice", &models.MessagePage{Messages: []models.Message{at("m1", time.Second), at("m2", 2*time.Second)}})

	got := s.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Zero(t, s.Unread("alice"))
}

func TestSelectMergeKeepsNewerVersion(t *testing.T) {
	s := NewState("bob")
	s.Select("alice", &models.MessagePage{Messages: []models.Message{msg("m1", "alice", "bob")}})

	edited := msg("m1", "alice", "bob")
	edited.Version = 2
	edited.Content = models.TextContent("fixed")
	s.Apply(frame(t, ws.OpMessageUpdate, ws.MessageUpdateData{Action: ws.ActionEdited, Message: &edited}))

	// Eski version'lı page yerel düzenlemeyi ezmez.
	s.Select("alice", &models.MessagePage{Messages: []models.Message{msg("m1", "alice", "bob")}})
	got := s.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].Version)
}

func TestSelectOtherPeerReplacesList(t *testing.T) {
	s := NewState("bob")
	s.Select("alice", &models.MessagePage{Messages: []models.Message{msg("m1", "alice", "bob")}})

	s.Select("carol", &models.MessagePage{Messages: []models.Message{msg("c1", "carol", "bob")}})
	got := s.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ID)
}

func TestReplaceConversationDropsLocalOnlyMessages(t *testing.T) {
	s := NewState("bob")
	s.Select("alice", &models.MessagePage{Messages: []models.Message{msg("m1", "alice", "bob"), msg("m2", "alice", "bob")}})

	// m2 bağlantı yokken silinmiş.
	s.ReplaceConversation("alice", &models.MessagePage{Messages: []models.Message{msg("m1", "alice", "bob")}})
	got := s.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, "m1", got[0].ID)
}

func TestApplyUserStatus(t *testing.T) {
	s := NewState("bob")
	s.ReplaceSidebar(&models.Sidebar{Users: []models.SidebarUser{
		{User: models.User{ID: "alice", Status: models.UserStatusOnline}},
	}})

	status, custom := s.Status("alice")
	assert.Equal(t, models.UserStatusOnline, status)
	assert.Nil(t, custom)

	text := "lunch"
	action := s.Apply(frame(t, ws.OpEntityChanged, ws.EntityChangedData{
		Kind: "user", Action: ws.ActionStatus, UserID: "alice",
		Status: models.UserStatusAway, CustomStatus: &text,
	}))
	assert.Equal(t, Action{}, action, "status change does not need a sidebar refetch")

	status, custom = s.Status("alice")
	assert.Equal(t, models.UserStatusAway, status)
	require.NotNil(t, custom)
	assert.Equal(t, "lunch", *custom)

	status, _ = s.Status("nobody")
	assert.Empty(t, status)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/models"
)

func TestSidebar(t *testing.T) {
	repos := newTestRepos(t, "alice", "bob", "carol", "dave")
	hub := newFakePublisher("carol")
	svc := NewSidebarService(repos.users, repos.relations, repos.unread, hub)
	ctx := context.Background()

	_, err := repos.relations.Set(ctx, "alice", "dave", models.RelationPinned, true)
	require.NoError(t, err)
	_, err = repos.relations.Set(ctx, "alice", "bob", models.RelationHidden, true)
	require.NoError(t, err)
	_, err = repos.unread.Increment(ctx, "alice", "carol")
	require.NoError(t, err)

	sidebar, err := svc.Sidebar(ctx, "alice")
	require.NoError(t, err)

	var ids []string
	for _, u := range sidebar.Users {
		ids = append(ids, u.ID)
	}
	assert.Equal(t, []string{"dave", "carol"}, ids, "pinned first, hidden without unread omitted")
	assert.True(t, sidebar.Users[1].Online)
	assert.Equal(t, 1, sidebar.Users[1].Unseen)
	assert.Equal(t, map[string]int{"carol": 1}, sidebar.UnseenMessages)

	// Gizli kişiden okunmamış mesaj gelirse tekrar listelenir.
	_, err = repos.unread.Increment(ctx, "alice", "bob")
	require.NoError(t, err)
	sidebar, err = svc.Sidebar(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, sidebar.Users, 3)
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
	"github.com/akinalp/dmrelay/ws"
)

func TestSetStatusPersistsAndBroadcasts(t *testing.T) {
	repos := newTestRepos(t, "alice", "bob")
	hub := newFakePublisher("alice", "bob")
	svc := NewStatusService(repos.users, hub)
	ctx := context.Background()

	text := "  back at 3  "
	user, err := svc.SetStatus(ctx, "alice", &models.SetStatusRequest{Status: models.UserStatusAway, CustomStatus: &text})
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusAway, user.Status)
	require.NotNil(t, user.CustomStatus)
	assert.Equal(t, "back at 3", *user.CustomStatus)

	stored, err := repos.users.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusAway, stored.Status)

	events := hub.broadcasts()
	require.Len(t, events, 1)
	assert.Equal(t, ws.OpEntityChanged, events[0].Op)
	data := events[0].Data.(ws.EntityChangedData)
	assert.Equal(t, "user", data.Kind)
	assert.Equal(t, ws.ActionStatus, data.Action)
	assert.Equal(t, "alice", data.UserID)
	assert.Equal(t, models.UserStatusAway, data.Status)
	require.NotNil(t, data.CustomStatus)
	assert.Equal(t, "back at 3", *data.CustomStatus)
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	repos := newTestRepos(t, "alice")
	hub := newFakePublisher("alice")
	svc := NewStatusService(repos.users, hub)

	_, err := svc.SetStatus(context.Background(), "alice", &models.SetStatusRequest{Status: "invisible"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)
	assert.Zero(t, hub.total())

	_, err = svc.SetStatus(context.Background(), "ghost", &models.SetStatusRequest{Status: models.UserStatusBusy})
	assert.ErrorIs(t, err, pkg.ErrNotFound)
	assert.Zero(t, hub.total())
}

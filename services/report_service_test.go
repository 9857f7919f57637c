package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
)

func TestReportUserAndChat(t *testing.T) {
	repos := newTestRepos(t, "alice", "bob")
	svc := NewReportService(repos.reports, repos.users)
	ctx := context.Background()

	desc := "  sends links  "
	userReport, err := svc.Report(ctx, "alice", "bob", models.ReportScopeUser, &models.ReportRequest{Reason: " spam ", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "spam", userReport.Reason)
	require.NotNil(t, userReport.Description)
	assert.Equal(t, "sends links", *userReport.Description)

	chatReport, err := svc.Report(ctx, "alice", "bob", models.ReportScopeChat, &models.ReportRequest{Reason: "harassment"})
	require.NoError(t, err)
	assert.NotEqual(t, userReport.ID, chatReport.ID)

	list, err := svc.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t,
		[]models.ReportScope{models.ReportScopeUser, models.ReportScopeChat},
		[]models.ReportScope{list[0].Scope, list[1].Scope})
}

func TestReportAgainUpdatesExisting(t *testing.T) {
	repos := newTestRepos(t, "alice", "bob")
	svc := NewReportService(repos.reports, repos.users)
	ctx := context.Background()

	first, err := svc.Report(ctx, "alice", "bob", models.ReportScopeUser, &models.ReportRequest{Reason: "spam"})
	require.NoError(t, err)
	second, err := svc.Report(ctx, "alice", "bob", models.ReportScopeUser, &models.ReportRequest{Reason: "impersonation"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "impersonation", list[0].Reason)
}

func TestReportRejectsInvalid(t *testing.T) {
	repos := newTestRepos(t, "alice", "bob")
	svc := NewReportService(repos.reports, repos.users)
	ctx := context.Background()

	_, err := svc.Report(ctx, "alice", "alice", models.ReportScopeUser, &models.ReportRequest{Reason: "spam"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = svc.Report(ctx, "alice", "bob", models.ReportScopeUser, &models.ReportRequest{Reason: "   "})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = svc.Report(ctx, "alice", "bob", "voice", &models.ReportRequest{Reason: "spam"})
	assert.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = svc.Report(ctx, "alice", "ghost", models.ReportScopeChat, &models.ReportRequest{Reason: "spam"})
	assert.ErrorIs(t, err, pkg.ErrNotFound)

	list, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}

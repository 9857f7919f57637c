package repository

import (
	"context"
	"database/sql"

	"github.com/akinalp/dmrelay/database"
	"github.com/akinalp/dmrelay/models"
)

type sqliteReportRepo struct {
	db database.TxQuerier
}

// NewSQLiteReportRepo, constructor, interface döner.
func NewSQLiteReportRepo(db database.TxQuerier) ReportRepository {
	return &sqliteReportRepo{db: db}
}

func (r *sqliteReportRepo) Upsert(ctx context.Context, report *models.Report) error {
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO reports (id, reporter_id, target_user_id, scope, reason, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (reporter_id, target_user_id, scope) DO UPDATE SET
			reason = excluded.reason,
			description = excluded.description,
			created_at = excluded.created_at
		RETURNING id, created_at`,
		report.ID, report.ReporterID, report.TargetUserID, string(report.Scope),
		report.Reason, nullString(report.Description), toNanos(report.CreatedAt),
	).Scan(&report.ID, &createdAt)
	if err != nil {
		return storageErr("save report", err)
	}
	report.CreatedAt = fromNanos(createdAt)
	return nil
}

// ListRecent, en yeni şikayetler önce.
func (r *sqliteReportRepo) ListRecent(ctx context.Context, limit int) ([]models.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, reporter_id, target_user_id, scope, reason, description, created_at
		FROM reports ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("list reports", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		var (
			rep         models.Report
			description sql.NullString
			createdAt   int64
		)
		if err := rows.Scan(&rep.ID, &rep.ReporterID, &rep.TargetUserID, &rep.Scope,
			&rep.Reason, &description, &createdAt); err != nil {
			return nil, storageErr("scan report", err)
		}
		rep.Description = stringPtr(description)
		rep.CreatedAt = fromNanos(createdAt)
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list reports", err)
	}
	return reports, nil
}

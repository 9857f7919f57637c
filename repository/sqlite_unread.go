package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akinalp/dmrelay/database"
)

// sqliteUnreadRepo, UnreadRepository interface'inin SQLite implementasyonu.
type sqliteUnreadRepo struct {
	db database.TxQuerier
}

// NewSQLiteUnreadRepo, constructor, interface döner.
func NewSQLiteUnreadRepo(db database.TxQuerier) UnreadRepository {
	return &sqliteUnreadRepo{db: db}
}

// Increment, sayacı bir artırır ve yeni değeri döner.
// Satır yoksa UPSERT ile 1 olarak oluşturulur; iki eşzamanlı artış kaybolmaz.
func (r *sqliteUnreadRepo) Increment(ctx context.Context, viewerID, peerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, incrementUnreadSQL, viewerID, peerID).Scan(&count)
	if err != nil {
		return 0, storageErr("increment unread counter", err)
	}
	return count, nil
}

func (r *sqliteUnreadRepo) Reset(ctx context.Context, viewerID, peerID string) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE unread_counters SET count = 0 WHERE viewer_id = ? AND peer_id = ?",
		viewerID, peerID,
	); err != nil {
		return storageErr("reset unread counter", err)
	}
	return nil
}

func (r *sqliteUnreadRepo) Get(ctx context.Context, viewerID, peerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT count FROM unread_counters WHERE viewer_id = ? AND peer_id = ?",
		viewerID, peerID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storageErr("get unread counter", err)
	}
	return count, nil
}

// ListForViewer, viewer'ın sıfırdan büyük tüm sayaçlarını peerID → count olarak döner.
func (r *sqliteUnreadRepo) ListForViewer(ctx context.Context, viewerID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT peer_id, count FROM unread_counters WHERE viewer_id = ? AND count > 0",
		viewerID,
	)
	if err != nil {
		return nil, storageErr("list unread counters", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var peerID string
		var count int
		if err := rows.Scan(&peerID, &count); err != nil {
			return nil, storageErr("scan unread counter", err)
		}
		counts[peerID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list unread counters", err)
	}
	return counts, nil
}

// Recompute, sayacı messages tablosundaki okunmamış, silinmemiş mesajlardan yeniden üretir.
func (r *sqliteUnreadRepo) Recompute(ctx context.Context, viewerID, peerID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, recomputeUnreadSQL,
		viewerID, peerID, peerID, viewerID,
	).Scan(&count)
	if err != nil {
		return 0, storageErr("recompute unread counter", err)
	}
	return count, nil
}

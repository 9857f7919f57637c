package repository

import (
	"context"
	"time"

	"github.com/akinalp/dmrelay/database"
	"github.com/akinalp/dmrelay/models"
)

// sqliteRelationRepo, RelationRepository interface'inin SQLite implementasyonu.
//
// Her açık bayrak user_relations'ta bir satırdır; kapalı bayrak = satır yok.
type sqliteRelationRepo struct {
	db database.TxQuerier
}

// NewSQLiteRelationRepo, constructor, interface döner.
func NewSQLiteRelationRepo(db database.TxQuerier) RelationRepository {
	return &sqliteRelationRepo{db: db}
}

func (r *sqliteRelationRepo) Set(ctx context.Context, userID, peerID string, kind models.RelationKind, on bool) (bool, error) {
	var query string
	var args []any
	if on {
		// INSERT OR IGNORE: bayrak zaten açıksa 0 satır etkilenir.
		query = "INSERT OR IGNORE INTO user_relations (user_id, peer_id, kind, created_at) VALUES (?, ?, ?, ?)"
		args = []any{userID, peerID, string(kind), toNanos(time.Now())}
	} else {
		query = "DELETE FROM user_relations WHERE user_id = ? AND peer_id = ? AND kind = ?"
		args = []any{userID, peerID, string(kind)}
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, storageErr("set relation", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("set relation", err)
	}
	return affected > 0, nil
}

func (r *sqliteRelationRepo) FlagsFor(ctx context.Context, userID, peerID string) (models.RelationFlags, error) {
	var flags models.RelationFlags
	rows, err := r.db.QueryContext(ctx,
		"SELECT kind FROM user_relations WHERE user_id = ? AND peer_id = ?",
		userID, peerID,
	)
	if err != nil {
		return flags, storageErr("load relation flags", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		if err := rows.Scan(&kind); err != nil {
			return flags, storageErr("scan relation", err)
		}
		flags.Set(models.RelationKind(kind), true)
	}
	if err := rows.Err(); err != nil {
		return flags, storageErr("load relation flags", err)
	}
	return flags, nil
}

// ListForUser, kullanıcının uyguladığı tüm bayrakları peerID → flags olarak döner.
func (r *sqliteRelationRepo) ListForUser(ctx context.Context, userID string) (map[string]models.RelationFlags, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT peer_id, kind FROM user_relations WHERE user_id = ?",
		userID,
	)
	if err != nil {
		return nil, storageErr("list relations", err)
	}
	defer rows.Close()

	out := make(map[string]models.RelationFlags)
	for rows.Next() {
		var peerID, kind string
		if err := rows.Scan(&peerID, &kind); err != nil {
			return nil, storageErr("scan relation", err)
		}
		flags := out[peerID]
		flags.Set(models.RelationKind(kind), true)
		out[peerID] = flags
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list relations", err)
	}
	return out, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/akinalp/dmrelay/database"
	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
)

// sqliteUserRepo, UserRepository interface'inin SQLite implementasyonu.
//
// db alanı TxQuerier'dır: aynı repo hem *sql.DB hem *sql.Tx ile çalışır.
type sqliteUserRepo struct {
	db database.TxQuerier
}

// NewSQLiteUserRepo, constructor, interface döner.
func NewSQLiteUserRepo(db database.TxQuerier) UserRepository {
	return &sqliteUserRepo{db: db}
}

const userColumns = `id, username, display_name, avatar_url, email, is_banned, is_muted, is_admin, status, custom_status, created_at`

func scanUser(s rowScanner) (*models.User, error) {
	var (
		u                            models.User
		displayName, avatarURL, mail sql.NullString
		customStatus                 sql.NullString
		createdAt                    int64
	)
	if err := s.Scan(
		&u.ID, &u.Username, &displayName, &avatarURL, &mail,
		&u.IsBanned, &u.IsMuted, &u.IsAdmin, &u.Status, &customStatus, &createdAt,
	); err != nil {
		return nil, err
	}
	u.DisplayName = stringPtr(displayName)
	u.AvatarURL = stringPtr(avatarURL)
	u.Email = stringPtr(mail)
	u.CustomStatus = stringPtr(customStatus)
	u.CreatedAt = fromNanos(createdAt)
	return &u, nil
}

// Upsert, token claim'lerinden gelen profili yazar.
//
// Kayıt yoksa oluşturulur; varsa sadece profil alanları güncellenir.
// Moderasyon bayrakları, manuel durum ve created_at RETURNING ile geri
// okunur, böylece çağıran taraf ban durumunu ek sorgu yapmadan görür.
func (r *sqliteUserRepo) Upsert(ctx context.Context, user *models.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	var (
		createdAt    int64
		customStatus sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, display_name, avatar_url, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			avatar_url = excluded.avatar_url,
			email = COALESCE(excluded.email, users.email)
		RETURNING is_banned, is_muted, is_admin, status, custom_status, created_at`,
		user.ID, user.Username, nullString(user.DisplayName), nullString(user.AvatarURL),
		nullString(user.Email), toNanos(user.CreatedAt),
	).Scan(&user.IsBanned, &user.IsMuted, &user.IsAdmin, &user.Status, &customStatus, &createdAt)
	if err != nil {
		return storageErr("upsert user", err)
	}
	user.CustomStatus = stringPtr(customStatus)
	user.CreatedAt = fromNanos(createdAt)
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get user", err)
	}
	return user, nil
}

// ListExcept, excludeID dışındaki tüm kullanıcıları username sırasıyla döner.
func (r *sqliteUserRepo) ListExcept(ctx context.Context, excludeID string) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id != ? ORDER BY username COLLATE NOCASE, id",
		excludeID,
	)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storageErr("scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list users", err)
	}
	return users, nil
}

// SetModeration, platform ban/mute bayraklarını yazar.
func (r *sqliteUserRepo) SetModeration(ctx context.Context, id string, banned, muted bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_banned = ?, is_muted = ? WHERE id = ?",
		boolInt(banned), boolInt(muted), id,
	)
	if err != nil {
		return storageErr("update moderation flags", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update moderation flags", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: user not found", pkg.ErrNotFound)
	}
	return nil
}

// SetStatus, manuel durumu ve custom status metnini yazar.
func (r *sqliteUserRepo) SetStatus(ctx context.Context, id string, status models.UserStatus, customStatus *string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET status = ?, custom_status = ? WHERE id = ?",
		string(status), nullString(customStatus), id,
	)
	if err != nil {
		return storageErr("update status", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update status", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: user not found", pkg.ErrNotFound)
	}
	return nil
}

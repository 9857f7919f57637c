package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/akinalp/dmrelay/database"
	"github.com/akinalp/dmrelay/models"
	"github.com/akinalp/dmrelay/pkg"
)

// sqliteMessageRepo, MessageRepository interface'inin SQLite implementasyonu.
type sqliteMessageRepo struct {
	db *sql.DB
}

// NewSQLiteMessageRepo, constructor, interface döner.
func NewSQLiteMessageRepo(db *sql.DB) MessageRepository {
	return &sqliteMessageRepo{db: db}
}

const messageColumns = `id, sender_id, receiver_id, kind, content, priority,
	seen, seen_at, delivered, delivered_at, is_edited, edited_at,
	is_deleted, deleted_at, reply_to_id, is_forwarded, original_sender_id,
	reactions, version, created_at, updated_at`

// recomputeUnreadSQL, (viewer, peer) sayacını messages tablosundan yeniden yazar.
// Parametreler: viewer, peer, peer (sender), viewer (receiver).
const recomputeUnreadSQL = `
	INSERT INTO unread_counters (viewer_id, peer_id, count)
	VALUES (?, ?, (
		SELECT COUNT(*) FROM messages
		WHERE sender_id = ? AND receiver_id = ? AND seen = 0 AND is_deleted = 0
	))
	ON CONFLICT (viewer_id, peer_id) DO UPDATE SET count = excluded.count
	RETURNING count`

// incrementUnreadSQL, (viewer, peer) sayacını bir artırır, satır yoksa 1 ile açar.
const incrementUnreadSQL = `
	INSERT INTO unread_counters (viewer_id, peer_id, count) VALUES (?, ?, 1)
	ON CONFLICT (viewer_id, peer_id) DO UPDATE SET count = count + 1
	RETURNING count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(s rowScanner) (*models.Message, error) {
	var (
		m                                        models.Message
		kind, content, priority, reactions       string
		seenAt, deliveredAt, editedAt, deletedAt sql.NullInt64
		replyTo, originalSender                  sql.NullString
		createdAt, updatedAt                     int64
	)

	if err := s.Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &kind, &content, &priority,
		&m.Seen, &seenAt, &m.Delivered, &deliveredAt, &m.IsEdited, &editedAt,
		&m.IsDeleted, &deletedAt, &replyTo, &m.IsForwarded, &originalSender,
		&reactions, &m.Version, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(content), &m.Content); err != nil {
		return nil, fmt.Errorf("failed to decode content of message %s: %w", m.ID, err)
	}
	m.Content.Type = models.ContentKind(kind)

	if err := json.Unmarshal([]byte(reactions), &m.Reactions); err != nil {
		return nil, fmt.Errorf("failed to decode reactions of message %s: %w", m.ID, err)
	}
	if m.Reactions == nil {
		m.Reactions = []models.Reaction{}
	}

	m.Priority = models.MessagePriority(priority)
	m.SeenAt = timePtr(seenAt)
	m.DeliveredAt = timePtr(deliveredAt)
	m.EditedAt = timePtr(editedAt)
	m.DeletedAt = timePtr(deletedAt)
	m.ReplyToID = stringPtr(replyTo)
	m.OriginalSenderID = stringPtr(originalSender)
	m.CreatedAt = fromNanos(createdAt)
	m.UpdatedAt = fromNanos(updatedAt)
	return &m, nil
}

func encodeMessage(msg *models.Message) (content, reactions string, err error) {
	c, err := json.Marshal(msg.Content)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode content: %w", err)
	}
	rs := msg.Reactions
	if rs == nil {
		rs = []models.Reaction{}
	}
	r, err := json.Marshal(rs)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode reactions: %w", err)
	}
	return string(c), string(r), nil
}

func (r *sqliteMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	_, err := r.CreateWithUnread(ctx, msg, false)
	return err
}

// CreateWithUnread, mesajı yazar; countUnread true ise receiver'ın bu
// gönderen için sayacını aynı transaction'da artırır ve yeni değeri döner.
//
// Insert ile artış arasına bir MarkSeen giremez: MarkSeen ya ikisinden
// önce ya da ikisinden sonra çalışır, sayaç okunmamış sayısıyla uyumlu kalır.
func (r *sqliteMessageRepo) CreateWithUnread(ctx context.Context, msg *models.Message, countUnread bool) (int, error) {
	content, reactions, err := encodeMessage(msg)
	if err != nil {
		return 0, err
	}
	if msg.Version == 0 {
		msg.Version = 1
	}
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = msg.CreatedAt
	}

	var unread int
	err = database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (`+messageColumns+`, search_text)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.SenderID, msg.ReceiverID, string(msg.Content.Type), content, string(msg.Priority),
			boolInt(msg.Seen), nullNanos(msg.SeenAt), boolInt(msg.Delivered), nullNanos(msg.DeliveredAt),
			boolInt(msg.IsEdited), nullNanos(msg.EditedAt),
			boolInt(msg.IsDeleted), nullNanos(msg.DeletedAt), nullString(msg.ReplyToID),
			boolInt(msg.IsForwarded), nullString(msg.OriginalSenderID),
			reactions, msg.Version, toNanos(msg.CreatedAt), toNanos(msg.UpdatedAt),
			msg.Content.SearchText(),
		); err != nil {
			return err
		}
		if !countUnread {
			return nil
		}
		return tx.QueryRowContext(ctx, incrementUnreadSQL, msg.ReceiverID, msg.SenderID).Scan(&unread)
	})
	if err != nil {
		return 0, storageErr("create message", err)
	}
	return unread, nil
}

func (r *sqliteMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages WHERE id = ?", id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: message not found", pkg.ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get message", err)
	}
	return msg, nil
}

// FindConversation, iki yöndeki silinmemiş mesajları created_at DESC döner.
// beforeID verilirse o mesajdan daha eski olanlar gelir (cursor pagination).
// Aynı nanosaniyede yazılan mesajlar rowid ile ayrışır.
func (r *sqliteMessageRepo) FindConversation(ctx context.Context, userA, userB, beforeID string, limit int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		  AND is_deleted = 0`
	args := []any{userA, userB, userB, userA}

	if beforeID != "" {
		query += ` AND (created_at, rowid) < (SELECT created_at, rowid FROM messages WHERE id = ?)`
		args = append(args, beforeID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	return r.queryMessages(ctx, "find conversation", query, args...)
}

func (r *sqliteMessageRepo) queryMessages(ctx context.Context, op, query string, args ...any) ([]models.Message, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		messages = append(messages, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}
	return messages, nil
}

func (r *sqliteMessageRepo) CountUnseen(ctx context.Context, senderID, receiverID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages
		 WHERE sender_id = ? AND receiver_id = ? AND seen = 0 AND is_deleted = 0`,
		senderID, receiverID,
	).Scan(&n)
	if err != nil {
		return 0, storageErr("count unseen messages", err)
	}
	return n, nil
}

// MarkSeen, sender → receiver yönündeki okunmamış mesajları okundu yapar.
//
// Mesaj güncellemesi ve receiver'ın sayacının sıfırlanması aynı transaction'da
// yapılır: ikisi birlikte görünür ya da hiçbiri. Okunacak mesaj yoksa boş
// liste döner (idempotent).
func (r *sqliteMessageRepo) MarkSeen(ctx context.Context, senderID, receiverID string, at time.Time) ([]string, error) {
	var ids []string
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM messages
			 WHERE sender_id = ? AND receiver_id = ? AND seen = 0 AND is_deleted = 0
			 ORDER BY created_at, rowid`,
			senderID, receiverID,
		)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(ids) > 0 {
			if _, err := tx.ExecContext(ctx,
				`UPDATE messages
				 SET seen = 1, seen_at = ?, version = version + 1, updated_at = ?
				 WHERE sender_id = ? AND receiver_id = ? AND seen = 0 AND is_deleted = 0`,
				toNanos(at), toNanos(at), senderID, receiverID,
			); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE unread_counters SET count = 0 WHERE viewer_id = ? AND peer_id = ?",
			receiverID, senderID,
		)
		return err
	})
	if err != nil {
		return nil, storageErr("mark messages seen", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// MarkSeenByID, receiver'a ait tek bir mesajı okundu yapar ve sayacı yeniden hesaplar.
// Mesaj zaten okunmuşsa veya silinmişse false döner.
func (r *sqliteMessageRepo) MarkSeenByID(ctx context.Context, id, receiverID string, at time.Time) (bool, error) {
	var updated bool
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var senderID string
		err := tx.QueryRowContext(ctx,
			`UPDATE messages
			 SET seen = 1, seen_at = ?, version = version + 1, updated_at = ?
			 WHERE id = ? AND receiver_id = ? AND seen = 0 AND is_deleted = 0
			 RETURNING sender_id`,
			toNanos(at), toNanos(at), id, receiverID,
		).Scan(&senderID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		updated = true

		var count int
		return tx.QueryRowContext(ctx, recomputeUnreadSQL,
			receiverID, senderID, senderID, receiverID,
		).Scan(&count)
	})
	if err != nil {
		return false, storageErr("mark message seen", err)
	}
	return updated, nil
}

// MarkDelivered, receiver'a henüz teslim edilmemiş mesajları teslim edildi yapar.
// Etkilenen mesajların gönderenlerini (tekil) döner.
func (r *sqliteMessageRepo) MarkDelivered(ctx context.Context, receiverID string, at time.Time) ([]string, error) {
	var senders []string
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT DISTINCT sender_id FROM messages
			 WHERE receiver_id = ? AND delivered = 0 AND is_deleted = 0
			 ORDER BY sender_id`,
			receiverID,
		)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			senders = append(senders, id)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		if len(senders) == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE messages
			 SET delivered = 1, delivered_at = ?, version = version + 1, updated_at = ?
			 WHERE receiver_id = ? AND delivered = 0 AND is_deleted = 0`,
			toNanos(at), toNanos(at), receiverID,
		)
		return err
	})
	if err != nil {
		return nil, storageErr("mark messages delivered", err)
	}
	return senders, nil
}

// Update, mesajın değişebilir alanlarını compare-and-swap ile yazar.
//
// WHERE version = expectedVersion tutmazsa hiçbir satır etkilenmez:
// mesaj yoksa ErrNotFound, başka bir yazar önce davrandıysa ErrConflict.
// Başarılı yazımdan sonra msg.Version yeni değeri taşır.
func (r *sqliteMessageRepo) Update(ctx context.Context, msg *models.Message, expectedVersion int64) error {
	content, reactions, err := encodeMessage(msg)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE messages SET
			kind = ?, content = ?, search_text = ?,
			seen = ?, seen_at = ?, delivered = ?, delivered_at = ?,
			is_edited = ?, edited_at = ?, is_deleted = ?, deleted_at = ?,
			reactions = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`,
		string(msg.Content.Type), content, msg.Content.SearchText(),
		boolInt(msg.Seen), nullNanos(msg.SeenAt), boolInt(msg.Delivered), nullNanos(msg.DeliveredAt),
		boolInt(msg.IsEdited), nullNanos(msg.EditedAt), boolInt(msg.IsDeleted), nullNanos(msg.DeletedAt),
		reactions, toNanos(msg.UpdatedAt),
		msg.ID, expectedVersion,
	)
	if err != nil {
		return storageErr("update message", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return storageErr("update message", err)
	}
	if affected == 0 {
		var exists int
		err := r.db.QueryRowContext(ctx, "SELECT 1 FROM messages WHERE id = ?", msg.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: message not found", pkg.ErrNotFound)
		}
		if err != nil {
			return storageErr("update message", err)
		}
		return fmt.Errorf("%w: message was modified concurrently", pkg.ErrConflict)
	}

	msg.Version = expectedVersion + 1
	return nil
}

// Search, viewer'ın katılımcı olduğu silinmemiş mesajlarda düz metin arar.
// peerID verilirse tek konuşmayla sınırlanır. LIKE wildcard'ları escape edilir.
func (r *sqliteMessageRepo) Search(ctx context.Context, viewerID, query, peerID string, limit int) ([]models.Message, error) {
	pattern := "%" + escapeLike(query) + "%"

	q := `SELECT ` + messageColumns + ` FROM messages
		WHERE is_deleted = 0 AND search_text LIKE ? ESCAPE '\'`
	args := []any{pattern}

	if peerID != "" {
		q += ` AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))`
		args = append(args, viewerID, peerID, peerID, viewerID)
	} else {
		q += ` AND (sender_id = ? OR receiver_id = ?)`
		args = append(args, viewerID, viewerID)
	}
	q += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	return r.queryMessages(ctx, "search messages", q, args...)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Stats, userID ile peerID arasındaki silinmemiş mesajların özetini döner.
func (r *sqliteMessageRepo) Stats(ctx context.Context, userID, peerID string) (*models.MessageStats, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT sender_id, kind, seen, COUNT(*), MIN(created_at), MAX(created_at)
		FROM messages
		WHERE ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		  AND is_deleted = 0
		GROUP BY sender_id, kind, seen`,
		userID, peerID, peerID, userID,
	)
	if err != nil {
		return nil, storageErr("load message stats", err)
	}
	defer rows.Close()

	stats := &models.MessageStats{PeerID: peerID, ByType: map[string]int{}}
	var first, last int64
	for rows.Next() {
		var (
			senderID, kind string
			seen           bool
			count          int
			minAt, maxAt   int64
		)
		if err := rows.Scan(&senderID, &kind, &seen, &count, &minAt, &maxAt); err != nil {
			return nil, storageErr("load message stats", err)
		}

		stats.Total += count
		stats.ByType[kind] += count
		if senderID == userID {
			stats.Sent += count
			if !seen {
				stats.UnseenByPeer += count
			}
		} else {
			stats.Received += count
			if !seen {
				stats.UnseenByMe += count
			}
		}
		if first == 0 || minAt < first {
			first = minAt
		}
		if maxAt > last {
			last = maxAt
		}
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load message stats", err)
	}

	if stats.Total > 0 {
		f, l := fromNanos(first), fromNanos(last)
		stats.FirstMessageAt = &f
		stats.LastMessageAt = &l
	}
	return stats, nil
}

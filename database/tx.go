// Package database: Transaction yönetimi.
//
// WithTx, birden fazla DB operasyonunun atomik çalışmasını sağlar.
// Örnek: bir konuşmayı okundu işaretlemek hem messages tablosunu hem de
// unread_counters tablosunu günceller; ikisi birlikte commit edilir ya da
// hiçbiri yazılmaz.
//
//	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
//	    if _, err := tx.ExecContext(ctx, "UPDATE messages ...", ...); err != nil {
//	        return err // ROLLBACK
//	    }
//	    _, err := tx.ExecContext(ctx, "UPDATE unread_counters ...", ...)
//	    return err // nil ise COMMIT
//	})
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TxQuerier, hem *sql.DB hem *sql.Tx tarafından karşılanan interface.
// Repository'ler bunu alırsa aynı kod transaction içinde ve dışında çalışır.
type TxQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx, fn'i bir transaction içinde çalıştırır.
//
// fn nil dönerse COMMIT, error dönerse ROLLBACK. fn panic atarsa
// ROLLBACK yapılıp panic tekrar fırlatılır; açık kalan transaction
// SQLite'ta yazma kilidini tutmaya devam ederdi.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}

		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}

		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	err = fn(tx)
	return
}

package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/akinalp/dmrelay/pkg"
)

// storageErr, driver hatasını pkg.ErrStorageUnavailable ile sarar.
// Service katmanı errors.Is ile kontrol eder, handler 503 döner.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %v", pkg.ErrStorageUnavailable, op, err)
}

// Zamanlar INTEGER (UnixNano) olarak saklanır; sıralama ve karşılaştırma
// string parse etmeden yapılır.
func toNanos(t time.Time) int64 {
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func nullNanos(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromNanos(n.Int64)
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package model

import (
	"database/sql"
	"time"
)

// NullTimeFromPtr converts an optional time for a nullable column.
// Times are stored in UTC so text comparisons in SQLite order correctly.
func NullTimeFromPtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// PtrFromNullTime converts a nullable column back to an optional time.
func PtrFromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

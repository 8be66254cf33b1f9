package lifecycle

import (
	"database/sql"
	"time"
)

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func nullStringClear() sql.NullString {
	return sql.NullString{}
}

func nullTimeNow() sql.NullTime {
	return sql.NullTime{Time: time.Now(), Valid: true}
}

func nullTimeClear() sql.NullTime {
	return sql.NullTime{}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

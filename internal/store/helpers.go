package store

import (
	"database/sql"
	"strings"

	"github.com/persona-vault/persona/internal/perrors"
)

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint
// failure, across the string forms modernc.org/sqlite returns them as.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint")
}

// checkRowsAffected converts a zero-rows-affected UPDATE/DELETE result into a
// NotFound error for entity/id.
func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return &perrors.Storage{Underlying: err}
	}
	if n == 0 {
		return &perrors.NotFound{Entity: entity, ID: id}
	}
	return nil
}

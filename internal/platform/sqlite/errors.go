package sqlite

import (
	"database/sql"
	"errors"

	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"cronhelper/internal/shared"
)

// IsUniqueViolation сообщает, нарушено ли ограничение UNIQUE или PRIMARY KEY.
func IsUniqueViolation(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// IsBusy сообщает, упёрлась ли операция в блокировку базы.
func IsBusy(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	// младший байт - основной код, старшие - расширенный
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// Classify помечает ошибку драйвера видом из shared: sql.ErrNoRows ->
// NotFound, нарушение уникальности -> Conflict, остальное -> DependencyFailure.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return shared.MarkKind(err, shared.KindNotFound)
	case IsUniqueViolation(err):
		return shared.MarkKind(err, shared.KindConflict)
	case shared.IsCanceled(err), shared.IsTimeout(err):
		return err
	default:
		return shared.MarkKind(err, shared.KindDependencyFailure)
	}
}

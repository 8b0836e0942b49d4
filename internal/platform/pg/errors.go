package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"cronhelper/internal/shared"
)

// uniqueViolation - SQLSTATE нарушения уникальности.
const uniqueViolation = "23505"

// IsUniqueViolation сообщает, нарушено ли ограничение уникальности.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Classify помечает ошибку pgx видом из shared: pgx.ErrNoRows -> NotFound,
// нарушение уникальности -> Conflict, остальное -> DependencyFailure.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return shared.MarkKind(err, shared.KindNotFound)
	case IsUniqueViolation(err):
		return shared.MarkKind(err, shared.KindConflict)
	case shared.IsCanceled(err), shared.IsTimeout(err):
		return err
	default:
		return shared.MarkKind(err, shared.KindDependencyFailure)
	}
}

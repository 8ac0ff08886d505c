package repository

import (
	"errors"

	"rentloop/internal/infra"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgErrCodeUniqueViolation    = "23505"
	pgErrCodeForeignKeyViolated = "23503"
	pgErrCodeExclusionViolation = "23P01"
)

// kindForPgError maps low-level PostgreSQL errors onto repository error kinds.
func kindForPgError(err error) infra.RepositoryErrorKind {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return infra.KindDBFailure
	}
	switch pgErr.Code {
	case pgErrCodeUniqueViolation:
		return infra.KindDuplicateKey
	case pgErrCodeForeignKeyViolated:
		return infra.KindForeignKeyViolated
	case pgErrCodeExclusionViolation:
		return infra.KindConflict
	default:
		return infra.KindDBFailure
	}
}

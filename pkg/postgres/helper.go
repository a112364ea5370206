package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the ride repositories translate into domain errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

// IsForeignKeyViolation reports a reference to a missing row, e.g. an event for an unknown ride.
func IsForeignKeyViolation(err error) bool {
	return sqlState(err) == codeForeignKeyViolation
}

// IsUniqueViolation reports a duplicate primary key.
func IsUniqueViolation(err error) bool {
	return sqlState(err) == codeUniqueViolation
}

// IsCheckViolation reports a row rejected by a CHECK constraint (unknown status, class or role).
func IsCheckViolation(err error) bool {
	return sqlState(err) == codeCheckViolation
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.SQLState()
	}
	return ""
}

package repokit

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"
)

// NoRows reports whether err is the driver's empty-result sentinel.
// Repos treat it as (zero, false, nil), never as a failure
func NoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

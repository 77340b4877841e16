package store

// errors.go rewrites low-level database failures into messages an
// operator can act on. Per-row import errors end up verbatim in the
// result summary, so raw pg error text ("violates unique constraint
// clients_tenant_id_name_key") is not acceptable there.

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// friendlyError wraps err with an operator-readable message for the
// given operation. The original error is preserved for logs via %w.
func friendlyError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: a record with these values already exists (%w)", op, err)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: referenced record does not exist (%w)", op, err)
		case "23502": // not_null_violation
			return fmt.Errorf("%s: required value %q is missing (%w)", op, pgErr.ColumnName, err)
		case "22001": // string_data_right_truncation
			return fmt.Errorf("%s: a value is too long for its field (%w)", op, err)
		case "22P02": // invalid_text_representation
			return fmt.Errorf("%s: a value has an invalid format (%w)", op, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: operation timed out, please retry (%w)", op, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: operation was cancelled (%w)", op, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

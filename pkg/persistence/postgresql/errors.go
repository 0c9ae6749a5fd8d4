package postgresql

import (
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/dukex/newscast/pkg/persistence"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translateError maps driver-level constraint violations onto the
// shared persistence sentinels so services never see pq internals.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, persistence.ErrDuplicate)
		case pqForeignKeyViolation:
			return fmt.Errorf("%s: %s: %w", op, pqErr.Constraint, persistence.ErrNotFound)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

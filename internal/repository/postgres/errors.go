// internal/repository/postgres/errors.go
package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"brokerage-ledger/internal/util"
)

const (
	codeUniqueViolation      pq.ErrorCode = "23505"
	codeNumericOutOfRange    pq.ErrorCode = "22003"
	codeLockNotAvailable     pq.ErrorCode = "55P03"
	codeSerializationFailure pq.ErrorCode = "40001"
	codeDeadlockDetected     pq.ErrorCode = "40P01"
)

// translate maps driver errors onto the ledger taxonomy. onConflict is returned
// for unique violations; everything else is wrapped with msg.
func translate(err error, onConflict error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, util.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%s: %w", msg, util.ErrContention)
		case codeNumericOutOfRange:
			return fmt.Errorf("%s: %w", msg, util.ErrInvalidAmount)
		case codeUniqueViolation:
			if onConflict != nil {
				return fmt.Errorf("%s: %w", msg, onConflict)
			}
		}
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// expectOne turns an UPDATE that touched no row into util.ErrNotFound.
func expectOne(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected after "+format+": %w", append(args, err)...)
	}
	if n == 0 {
		return fmt.Errorf(format+": %w", append(args, util.ErrNotFound)...)
	}
	return nil
}

// internal/repository/postgres/errors_test.go
package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"brokerage-ledger/internal/util"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, util.ErrNotFound},
		{"numeric out of range", &pq.Error{Code: codeNumericOutOfRange}, util.ErrInvalidAmount},
		{"lock not available", &pq.Error{Code: codeLockNotAvailable}, util.ErrContention},
		{"serialization failure", &pq.Error{Code: codeSerializationFailure}, util.ErrContention},
		{"unique violation", &pq.Error{Code: codeUniqueViolation}, util.ErrAccountExists},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(tt.err, util.ErrAccountExists, "update balances for %s", "alice")
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorContains(t, err, "update balances for alice")
		})
	}

	assert.NoError(t, translate(nil, nil, "noop"))
	other := errors.New("connection reset")
	assert.ErrorIs(t, translate(other, nil, "get account"), other)
}

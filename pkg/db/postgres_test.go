// pkg/db/postgres_test.go
package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := Config{Host: "localhost", Port: 5432, User: "ledger", DBName: "ledger", SSLMode: "disable"}

	tests := []struct {
		password string
		want     string
	}{
		{"", "password=''"},
		{"plain", "password='plain'"},
		{`it's`, `password='it\'s'`},
		{`back\slash`, `password='back\\slash'`},
		{"with space", "password='with space'"},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			cfg.Password = tt.password
			assert.Equal(t, "host=localhost port=5432 user=ledger "+tt.want+" dbname=ledger sslmode=disable", cfg.DSN())
		})
	}
}

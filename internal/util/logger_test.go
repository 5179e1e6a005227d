// internal/util/logger_test.go
package util

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoggerConcurrentFirstUse(t *testing.T) {
	loggerMu.Lock()
	logger = nil
	loggerMu.Unlock()

	const callers = 16
	got := make([]*slog.Logger, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = GetLogger()
		}()
	}
	wg.Wait()

	require.NotNil(t, got[0])
	for _, l := range got[1:] {
		assert.Same(t, got[0], l)
	}
}

func TestInitLoggerReplacesDefault(t *testing.T) {
	before := GetLogger()
	InitLogger(LoggerConfig{Level: "warn", Production: true})
	after := GetLogger()

	assert.NotSame(t, before, after)
	assert.Same(t, after, slog.Default())
	assert.False(t, after.Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, after.Enabled(t.Context(), slog.LevelWarn))
}

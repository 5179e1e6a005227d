// internal/events/kafka_test.go
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"brokerage-ledger/internal/domain"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaPublisherPublish(t *testing.T) {
	w := new(mockWriter)
	p := &KafkaPublisher{writer: w}
	btc := domain.BTC
	event := Event{Type: TypeDepositRequested, UserID: "alice", TransactionID: 3, Currency: &btc, OccurredAt: time.Unix(100, 0).UTC()}

	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "alice" {
			return false
		}
		var decoded map[string]any
		if err := json.Unmarshal(msgs[0].Value, &decoded); err != nil {
			return false
		}
		return decoded["type"] == "deposit.requested" && decoded["currency"] == "BTC"
	})).Return(nil).Once()

	require.NoError(t, p.Publish(context.Background(), event))
	w.AssertExpectations(t)
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	w := new(mockWriter)
	p := &KafkaPublisher{writer: w}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	w.On("Close").Return(nil).Once()

	err := p.Publish(context.Background(), Event{Type: TypeWithdrawalApproved, UserID: "bob"})
	assert.ErrorContains(t, err, "withdrawal.approved")
	assert.ErrorContains(t, err, "broker down")
	assert.NoError(t, p.Close())
	w.AssertExpectations(t)
}

func TestKafkaPublisherIsAsync(t *testing.T) {
	var buf bytes.Buffer
	p := NewKafkaPublisher([]string{"localhost:9092"}, "ledger.events", slog.New(slog.NewJSONHandler(&buf, nil)))

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, w.Async)
	require.NotNil(t, w.Completion)

	t.Run("successful batches are silent", func(t *testing.T) {
		buf.Reset()
		w.Completion([]kafka.Message{{Key: []byte("alice")}}, nil)
		assert.Empty(t, buf.String())
	})

	t.Run("failed batches are logged per message", func(t *testing.T) {
		buf.Reset()
		w.Completion([]kafka.Message{
			{Topic: "ledger.events", Key: []byte("alice"), Headers: []kafka.Header{{Key: "type", Value: []byte("conversion.completed")}}},
			{Topic: "ledger.events", Key: []byte("bob")},
		}, errors.New("leader not available"))
		out := buf.String()
		assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("Failed to deliver ledger event")))
		assert.Contains(t, out, `"type":"conversion.completed"`)
		assert.Contains(t, out, `"key":"bob"`)
		assert.Contains(t, out, "leader not available")
	})
}

package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	failures int // number of leading calls that fail
	calls    int
	msgs     []kafkago.Message
	closed   bool
	closeErr error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.calls++
	if f.calls <= f.failures {
		return errors.New("leader not available")
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return f.closeErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testEvent() domain.ConversionEvent {
	return domain.ConversionEvent{
		ID:          "0123456789abcdef",
		RunID:       "run-1",
		Source:      "/data/2024/04/26/jma.bin",
		Date:        "2024-04-26",
		Status:      domain.FileConverted,
		ProcessedAt: time.Date(2024, 4, 27, 3, 0, 0, 0, time.UTC),
	}
}

func TestSerializeToMessage(t *testing.T) {
	ev := testEvent()

	msg, err := serializeToMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte(ev.Source), msg.Key)
	assert.Contains(t, string(msg.Value), `"status":"converted"`)
	assert.Contains(t, string(msg.Value), `"run_id":"run-1"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "event_id", msg.Headers[0].Key)
	assert.Equal(t, []byte(ev.ID), msg.Headers[0].Value)
	assert.Equal(t, []byte("converted"), msg.Headers[1].Value)
	assert.Equal(t, []byte("2024-04-27T03:00:00Z"), msg.Headers[2].Value)
}

func TestPublish(t *testing.T) {
	t.Run("first attempt succeeds", func(t *testing.T) {
		w := &fakeWriter{}
		p := newPublisher(w, discardLogger())

		require.NoError(t, p.Publish(context.Background(), testEvent()))

		assert.Equal(t, 1, w.calls)
		assert.Len(t, w.msgs, 1)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		w := &fakeWriter{failures: 2}
		p := newPublisher(w, discardLogger())
		p.maxBackoff = time.Millisecond

		require.NoError(t, p.Publish(context.Background(), testEvent()))

		assert.Equal(t, 3, w.calls)
		assert.Len(t, w.msgs, 1)
	})

	t.Run("gives up after the attempt limit", func(t *testing.T) {
		w := &fakeWriter{failures: 10}
		p := newPublisher(w, discardLogger())
		p.attempts = 2

		err := p.Publish(context.Background(), testEvent())

		require.Error(t, err)
		assert.Contains(t, err.Error(), "after 2 attempts")
		assert.Equal(t, 2, w.calls)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		w := &fakeWriter{failures: 10}
		p := newPublisher(w, discardLogger())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := p.Publish(ctx, testEvent())

		require.Error(t, err)
		assert.Equal(t, 1, w.calls)
	})
}

func TestClose(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newPublisher(w, discardLogger()).Close())
	assert.True(t, w.closed)

	flushErr := errors.New("flush pending messages: broker unreachable")
	failing := &fakeWriter{closeErr: flushErr}
	require.ErrorIs(t, newPublisher(failing, discardLogger()).Close(), flushErr)
}

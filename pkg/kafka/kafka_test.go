package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.msgs...)
}

// fakeReader serves queued messages, then blocks until ctx is cancelled.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	drained   chan struct{}
	once      sync.Once
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{queue: msgs, drained: make(chan struct{})}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	r.once.Do(func() { close(r.drained) })
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error { return nil }

func header(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("booking-1").
		WithValue(map[string]string{"status": "pending"}).
		WithEventType("booking.created").
		WithSource("bookings").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "booking-1", msg.Key)
	assert.JSONEq(t, `{"status":"pending"}`, string(msg.Value))
	assert.Equal(t, "booking.created", msg.EventType())
	assert.NotEmpty(t, msg.EventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])

	_, err = NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	assert.Equal(t, ErrorTypePermanent, ClassifyError(err))
}

func TestRetryCount(t *testing.T) {
	msg := Message{}
	assert.Equal(t, 0, msg.RetryCount())

	for range 12 {
		msg.IncrementRetryCount()
	}
	assert.Equal(t, 12, msg.RetryCount())
	assert.Equal(t, "12", msg.Headers[HeaderRetryCount])
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ErrorTypeTransient, ClassifyError(errors.New("dial tcp: connection refused")))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, ErrorTypePermanent, ClassifyError(errors.New("unknown template")))
	assert.Equal(t, ErrorTypeTransient, ClassifyError(NewTransientError("smtp", io.ErrUnexpectedEOF)))

	assert.True(t, ShouldRetry(NewTransientError("x", nil), 0, 3))
	assert.False(t, ShouldRetry(NewTransientError("x", nil), 3, 3))
	assert.False(t, ShouldRetry(NewPermanentError("x", nil), 0, 3))
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "booking-events", "", nil)

	var seen []string
	p.Use(func(ctx context.Context, msg Message, next MessageHandler) error {
		seen = append(seen, msg.Topic)
		return next(ctx, msg)
	})

	msg, err := NewMessage().WithKey("b1").WithValue("x").WithEventType("booking.accepted").Build()
	require.NoError(t, err)
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, w.written(), 1)
	assert.Equal(t, "b1", string(w.written()[0].Key))
	assert.Equal(t, "booking.accepted", header(w.written()[0], HeaderEventType))
	assert.Equal(t, []string{"booking-events"}, seen)

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Publish(context.Background(), msg), ErrProducerClosed)
	assert.True(t, w.closed)
}

func TestProducer_DivertsToDLQ(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "booking-events", "booking-events-dlq", nil)

	msg, _ := NewMessage().WithKey("b1").WithValue("x").Build()
	err := p.Publish(context.Background(), msg)

	require.Error(t, err)
	require.Len(t, dlq.written(), 1)
	assert.Equal(t, "booking-events", header(dlq.written()[0], HeaderOriginalTopic))
	assert.Equal(t, "leader not available", header(dlq.written()[0], HeaderDLQError))
}

func runConsumer(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	select {
	case <-r.drained:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestConsumer_RetriesTransientFailures(t *testing.T) {
	km := kafka.Message{Key: []byte("b1"), Value: []byte(`{}`), Topic: "booking-events"}
	r := newFakeReader(km)

	attempts := 0
	c := newConsumer(r, nil, "booking-events", "notifier", func(ctx context.Context, msg Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("smtp busy", nil)
		}
		return nil
	}, nil)
	c.retryBackoff = time.Millisecond

	runConsumer(t, c, r)

	assert.Equal(t, 3, attempts)
	assert.Len(t, r.committed, 1)
}

func TestConsumer_PermanentFailureGoesToDLQ(t *testing.T) {
	km := kafka.Message{Key: []byte("b1"), Value: []byte(`not json`), Topic: "booking-events"}
	r := newFakeReader(km)
	dlq := &fakeWriter{}

	attempts := 0
	c := newConsumer(r, dlq, "booking-events", "notifier", func(ctx context.Context, msg Message) error {
		attempts++
		var v map[string]any
		return msg.DecodeValue(&v)
	}, nil)

	runConsumer(t, c, r)

	assert.Equal(t, 1, attempts)
	require.Len(t, dlq.written(), 1)
	assert.Equal(t, "notifier", header(dlq.written()[0], HeaderConsumerGroup))
	assert.Len(t, r.committed, 1, "poison messages are committed after dead-lettering")
}

func TestConsumer_ExhaustedRetriesGoToDLQ(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("b1"), Value: []byte(`{}`)})
	dlq := &fakeWriter{}

	attempts := 0
	c := newConsumer(r, dlq, "booking-events", "notifier", func(ctx context.Context, msg Message) error {
		attempts++
		return NewTransientError("smtp down", nil)
	}, nil)
	c.maxRetries = 2
	c.retryBackoff = time.Millisecond

	runConsumer(t, c, r)

	assert.Equal(t, 3, attempts)
	require.Len(t, dlq.written(), 1)
	assert.Equal(t, "2", header(dlq.written()[0], HeaderRetryCount))
}

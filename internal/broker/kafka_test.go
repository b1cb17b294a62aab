package broker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader hands out queued messages and cancels the consumer once the
// queue is drained.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.queue) == 0 {
		r.cancel()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func newTestConsumer(offsets ...int64) (*Consumer, *fakeReader, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	reader := &fakeReader{cancel: cancel}
	for _, off := range offsets {
		reader.queue = append(reader.queue, kafka.Message{Partition: 0, Offset: off})
	}
	c := newConsumer(reader, "marketplace-events")
	c.retryInitial = time.Millisecond
	c.retryMax = 4 * time.Millisecond
	return c, reader, ctx
}

func TestStartConsumingRetriesFailedMessageBeforeMovingOn(t *testing.T) {
	c, reader, ctx := newTestConsumer(10, 11)

	attempts := map[int64]int{}
	var handled []int64
	err := c.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		attempts[msg.Offset]++
		if msg.Offset == 10 && attempts[10] < 3 {
			return errors.New("database unavailable")
		}
		handled = append(handled, msg.Offset)
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, attempts[10])
	assert.Equal(t, 1, attempts[11])
	assert.Equal(t, []int64{10, 11}, handled)
	assert.Equal(t, []int64{10, 11}, reader.committed)
}

func TestStartConsumingSkipsMalformedMessage(t *testing.T) {
	c, reader, ctx := newTestConsumer(3, 4)
	eh := NewEventHandler()

	calls := 0
	err := c.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		calls++
		if msg.Offset == 3 {
			return eh.HandleMessage(ctx, kafka.Message{Value: []byte("garbage")})
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int64{3, 4}, reader.committed)
}

func TestStartConsumingStopsWithoutCommittingOnCancel(t *testing.T) {
	c, reader, ctx := newTestConsumer(7, 8)

	calls := 0
	err := c.StartConsuming(ctx, func(ctx context.Context, msg kafka.Message) error {
		calls++
		if calls == 2 {
			reader.cancel()
		}
		return errors.New("still failing")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
	assert.Empty(t, reader.committed)
	assert.Len(t, reader.queue, 1, "offset 8 must not be fetched past the failing message")
}

package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

// fakeReader serves msgs once, then cancels the consumer's context.
type fakeReader struct {
	mu          sync.Mutex
	msgs        []kafka.Message
	cancel      context.CancelFunc
	fetchErr    error
	committed   []int64
	closed      bool
	lateCommits int
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.msgs) == 0 {
		if f.fetchErr != nil {
			return kafka.Message{}, f.fetchErr
		}
		f.cancel()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		f.lateCommits++
	}
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func newFakeReader(n int, cancel context.CancelFunc) *fakeReader {
	f := &fakeReader{cancel: cancel}
	for i := 0; i < n; i++ {
		f.msgs = append(f.msgs, kafka.Message{Offset: int64(i)})
	}
	return f
}

func TestConsumerClosesReaderAfterWorkersDrain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newFakeReader(20, cancel)

	err := newConsumer(r, "review.changed", 4).Start(ctx, func(context.Context, kafka.Message) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !r.closed {
		t.Error("reader not closed")
	}
	if r.lateCommits != 0 {
		t.Errorf("%d commits after Close", r.lateCommits)
	}
	if len(r.committed) != 20 {
		t.Errorf("committed %d messages, want 20", len(r.committed))
	}
}

func TestConsumerSkipsFailedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newFakeReader(3, cancel)

	err := newConsumer(r, "review.changed", 1).Start(ctx, func(_ context.Context, m kafka.Message) error {
		if m.Offset == 1 {
			return errors.New("recompute failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(r.committed) != 2 || r.committed[0] != 0 || r.committed[1] != 2 {
		t.Errorf("committed = %v, want [0 2]", r.committed)
	}
}

func TestConsumerReturnsFetchError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newFakeReader(0, cancel)
	r.fetchErr = errors.New("broker gone")

	err := newConsumer(r, "review.changed", 2).Start(ctx, func(context.Context, kafka.Message) error { return nil })
	if err == nil || err.Error() != "broker gone" {
		t.Fatalf("Start() error = %v, want broker gone", err)
	}
	if !r.closed {
		t.Error("reader not closed")
	}
}

package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

type captureStore struct {
	mu      sync.Mutex
	batches [][]DispatchLog
	err     error
}

func (s *captureStore) InsertLogs(_ context.Context, batch []DispatchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := make([]DispatchLog, len(batch))
	copy(cp, batch)
	s.batches = append(s.batches, cp)
	return nil
}

func (s *captureStore) Close() error { return nil }

func (s *captureStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func TestLoggerFlushesOnClose(t *testing.T) {
	store := &captureStore{}
	l, err := New(context.Background(), store, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 5; i++ {
		l.Log(DispatchLog{FunctionName: "chat_complete", Status: "200"})
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	if got := store.total(); got != 5 {
		t.Fatalf("persisted %d logs, want 5", got)
	}
	if l.DroppedLogs() != 0 {
		t.Fatalf("dropped = %d", l.DroppedLogs())
	}
}

func TestLoggerAssignsIDAndSpan(t *testing.T) {
	store := &captureStore{}
	l, _ := New(context.Background(), store, nil, nil)

	l.Log(DispatchLog{FunctionName: "embed"})
	_ = l.Close()

	e := store.batches[0][0]
	if e.ID == uuid.Nil {
		t.Fatal("id must be assigned")
	}
	if e.SpanID != e.ID.String() {
		t.Fatalf("span_id = %q, want %q", e.SpanID, e.ID)
	}
}

func TestLoggerKeepsProvidedSpan(t *testing.T) {
	store := &captureStore{}
	l, _ := New(context.Background(), store, nil, nil)

	l.Log(DispatchLog{SpanID: "parent-given"})
	_ = l.Close()

	if got := store.batches[0][0].SpanID; got != "parent-given" {
		t.Fatalf("span_id = %q", got)
	}
}

func TestLoggerBatchesLargeBursts(t *testing.T) {
	store := &captureStore{}
	l, _ := New(context.Background(), store, nil, nil)

	for i := 0; i < batchSize*2; i++ {
		l.Log(DispatchLog{Status: "200"})
	}
	_ = l.Close()

	if got := store.total(); got != batchSize*2 {
		t.Fatalf("persisted %d logs, want %d", got, batchSize*2)
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	for _, b := range store.batches {
		if len(b) > batchSize {
			t.Fatalf("batch of %d exceeds limit %d", len(b), batchSize)
		}
	}
}

func TestLoggerFlushesOnInterval(t *testing.T) {
	store := &captureStore{}
	l, _ := New(context.Background(), store, nil, nil)
	defer l.Close()

	l.Log(DispatchLog{Status: "200"})

	deadline := time.Now().Add(3 * flushInterval)
	for store.total() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("interval flush never happened")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLoggerStoreFailureFallsBackToSlog(t *testing.T) {
	store := &captureStore{err: context.DeadlineExceeded}
	l, _ := New(context.Background(), store, nil, nil)

	l.Log(DispatchLog{Status: "200"})
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	// Nothing persisted, nothing dropped: records went to the structured log.
	if store.total() != 0 {
		t.Fatal("failing store must not record batches")
	}
	if l.DroppedLogs() != 0 {
		t.Fatalf("dropped = %d", l.DroppedLogs())
	}
}

func TestLiveFeedDelivery(t *testing.T) {
	feed := NewLiveFeed()
	ch, cancel := feed.Subscribe(4)
	defer cancel()

	l, _ := New(context.Background(), nil, feed, nil)
	l.Log(DispatchLog{FunctionName: "chat_complete"})
	_ = l.Close()

	select {
	case e := <-ch:
		if e.FunctionName != "chat_complete" {
			t.Fatalf("function = %q", e.FunctionName)
		}
	case <-time.After(time.Second):
		t.Fatal("feed delivered nothing")
	}
}

func TestLiveFeedFullSubscriberDoesNotBlock(t *testing.T) {
	feed := NewLiveFeed()
	_, cancel := feed.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			feed.Publish(DispatchLog{})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestLiveFeedCancelUnsubscribes(t *testing.T) {
	feed := NewLiveFeed()
	ch, cancel := feed.Subscribe(1)
	cancel()

	if feed.Subscribers() != 0 {
		t.Fatalf("subscribers = %d", feed.Subscribers())
	}
	if _, open := <-ch; open {
		t.Fatal("channel must be closed after cancel")
	}
	cancel() // second cancel is a no-op
}

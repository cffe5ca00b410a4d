package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	channelBuffer = 10_000
	batchSize     = 100
	flushInterval = time.Second
)

// Logger is the non-blocking, batched dispatch log writer.
type Logger struct {
	ch        chan DispatchLog
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	droppedLogs int64

	baseCtx context.Context
	store   LogStore // nil falls back to slog
	feed    *LiveFeed
	log     *slog.Logger
}

// New starts the background flusher. store may be nil: records then go to
// the structured log only. feed may be nil to disable live emission.
func New(ctx context.Context, store LogStore, feed *LiveFeed, slogger *slog.Logger) (*Logger, error) {
	if ctx == nil {
		return nil, fmt.Errorf("logger: context must not be nil")
	}
	if slogger == nil {
		slogger = slog.Default()
	}

	l := &Logger{
		ch:      make(chan DispatchLog, channelBuffer),
		done:    make(chan struct{}),
		baseCtx: ctx,
		store:   store,
		feed:    feed,
		log:     slogger,
	}

	l.wg.Add(1)
	go l.run()

	return l, nil
}

// Log enqueues one dispatch record. Never blocks; a full queue drops the
// record and bumps the drop counter.
func (l *Logger) Log(entry DispatchLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.SpanID == "" {
		entry.SpanID = entry.ID.String()
	}

	if l.feed != nil {
		l.feed.Publish(entry)
	}

	select {
	case l.ch <- entry:
	default:
		atomic.AddInt64(&l.droppedLogs, 1)
	}
}

func (l *Logger) DroppedLogs() int64 {
	return atomic.LoadInt64(&l.droppedLogs)
}

// Close drains the queue, flushes the final batch, and stops the flusher.
func (l *Logger) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
	})
	l.wg.Wait()
	return nil
}

func (l *Logger) run() {
	defer l.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]DispatchLog, 0, batchSize)

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		l.persist(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case entry := <-l.ch:
			batch = append(batch, entry)
			if len(batch) >= batchSize {
				flush(l.baseCtx)
			}

		case <-ticker.C:
			flush(l.baseCtx)

		case <-l.done:
			for {
				select {
				case entry := <-l.ch:
					batch = append(batch, entry)
					if len(batch) >= batchSize {
						flush(l.baseCtx)
					}
				default:
					flush(l.baseCtx)
					return
				}
			}
		}
	}
}

func (l *Logger) persist(ctx context.Context, batch []DispatchLog) {
	if l.store != nil {
		err := l.store.InsertLogs(ctx, batch)
		if err == nil {
			return
		}
		l.log.WarnContext(ctx, "log_store_insert_failed",
			slog.Int("batch", len(batch)),
			slog.String("error", err.Error()),
		)
	}

	for _, e := range batch {
		l.log.InfoContext(ctx, "dispatch",
			slog.String("id", e.ID.String()),
			slog.String("function", e.FunctionName),
			slog.String("provider", e.AIProvider),
			slog.String("model", e.Model),
			slog.String("status", e.Status),
			slog.String("cache_status", string(e.CacheStatus)),
			slog.Int64("duration_ms", e.DurationMs),
			slog.Int("hook_logs", len(e.HookLogs)),
			slog.Time("created_at", normalizeTime(e.StartTime)),
		)
	}
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

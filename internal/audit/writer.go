package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/feedthegoat/content-service/internal/domain"
	"github.com/feedthegoat/content-service/internal/observability"
)

// Store persists finished audit records.
type Store interface {
	Insert(ctx context.Context, rec *domain.AuditRecord) error
}

// Writer drains audit records to the store on a dedicated goroutine, keeping
// storage latency and storage failures off the request path. The queue is
// bounded; when it is full the newest record is dropped and counted.
type Writer struct {
	store   Store
	logger  *zap.Logger
	metrics *observability.Metrics
	queue   chan *domain.AuditRecord
	timeout time.Duration

	dropped atomic.Int64
	once    sync.Once
	wg      sync.WaitGroup
}

// NewWriter builds a writer with the given queue capacity and per-record
// write timeout.
func NewWriter(store Store, logger *zap.Logger, metrics *observability.Metrics, queueSize int, timeout time.Duration) *Writer {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		store:   store,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan *domain.AuditRecord, queueSize),
		timeout: timeout,
	}
}

// Start launches the consumer goroutine.
func (w *Writer) Start() {
	w.once.Do(func() {
		w.wg.Add(1)
		go w.run()
	})
}

// Enqueue hands a record to the writer without blocking. Returns false when
// the queue is full and the record was dropped.
func (w *Writer) Enqueue(rec *domain.AuditRecord) bool {
	select {
	case w.queue <- rec:
		w.metrics.RecordAuditEnqueued()
		return true
	default:
		dropped := w.dropped.Add(1)
		w.metrics.RecordAuditDropped()
		w.logger.Warn("audit queue full, dropping record",
			zap.String("path", rec.Path),
			zap.Int64("dropped_total", dropped))
		return false
	}
}

// Close stops accepting records and waits for the queue to drain.
func (w *Writer) Close() {
	close(w.queue)
	w.wg.Wait()
}

// Dropped reports how many records were discarded due to a full queue.
func (w *Writer) Dropped() int64 {
	return w.dropped.Load()
}

func (w *Writer) run() {
	defer w.wg.Done()
	for rec := range w.queue {
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		if err := w.store.Insert(ctx, rec); err != nil {
			w.metrics.RecordAuditWriteFailure()
			w.logger.Warn("audit write failed",
				zap.String("method", rec.Method),
				zap.String("path", rec.Path),
				zap.Error(err))
		}
		cancel()
	}
}

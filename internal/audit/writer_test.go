package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/feedthegoat/content-service/internal/domain"
)

type memStore struct {
	mu      sync.Mutex
	records []*domain.AuditRecord
	err     error
}

func (s *memStore) Insert(_ context.Context, rec *domain.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestWriterDrainsQueueOnClose(t *testing.T) {
	store := &memStore{}
	w := NewWriter(store, zap.NewNop(), nil, 8, time.Second)
	w.Start()

	for i := 0; i < 5; i++ {
		require.True(t, w.Enqueue(&domain.AuditRecord{Path: "/p", Method: "GET"}))
	}
	w.Close()

	require.Equal(t, 5, store.count())
	require.Zero(t, w.Dropped())
}

func TestWriterDropsWhenQueueFull(t *testing.T) {
	store := &memStore{}
	// not started: the queue only fills
	w := NewWriter(store, zap.NewNop(), nil, 2, time.Second)

	require.True(t, w.Enqueue(&domain.AuditRecord{Path: "/a"}))
	require.True(t, w.Enqueue(&domain.AuditRecord{Path: "/b"}))
	require.False(t, w.Enqueue(&domain.AuditRecord{Path: "/c"}))
	require.Equal(t, int64(1), w.Dropped())

	// late start still drains what was accepted
	w.Start()
	w.Close()
	require.Equal(t, 2, store.count())
}

func TestWriterToleratesStoreFailures(t *testing.T) {
	store := &memStore{err: errors.New("store down")}
	w := NewWriter(store, zap.NewNop(), nil, 8, time.Second)
	w.Start()

	require.True(t, w.Enqueue(&domain.AuditRecord{Path: "/p"}))
	// Close must not hang or panic even when every write fails.
	w.Close()
	require.Zero(t, store.count())
}

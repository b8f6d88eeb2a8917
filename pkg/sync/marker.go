package sync

import (
	"context"
	"sync"
	"time"

	"github.com/tidwall/btree"
)

// StoreMarkerFunc commits a high-water marker durably.
type StoreMarkerFunc[T comparable] func(ctx context.Context, marker T, indexPos uint64, timestamp time.Time) error

type markerSlot[T comparable] struct {
	seq       uint64
	marker    T
	pos       uint64
	timestamp time.Time
	done      bool
}

// MarkerTracker tracks in-flight log entries of one shard and commits durable
// progress as a sliding window: the committed value is always the newest
// marker whose predecessors (in start order) have all finished. The update
// window only limits how often a write is emitted, never what is written.
//
// It also deduplicates concurrent work per bucket-shard key: a key may have at
// most one in-flight marker; later arrivals for the same key are dropped and
// the key is flagged for retry so the in-flight worker repeats the sync once.
type MarkerTracker[T comparable] struct {
	mu          sync.Mutex
	window      int
	storeMarker StoreMarkerFunc[T]

	seq       uint64
	pending   *btree.Map[uint64, *markerSlot[T]]
	markerSeq map[T]uint64

	updatesSinceFlush int
	unflushed         *markerSlot[T]

	// storeMu serializes durable writes so a flush for a later slot is never
	// overtaken by one for an earlier slot.
	storeMu       sync.Mutex
	lastStoredSeq uint64

	keyToMarker  map[string]T
	markerToKey  map[T]string
	needRetrySet map[string]struct{}
}

func NewMarkerTracker[T comparable](window int, storeMarker StoreMarkerFunc[T]) *MarkerTracker[T] {
	return &MarkerTracker[T]{
		window:       window,
		storeMarker:  storeMarker,
		pending:      btree.NewMap[uint64, *markerSlot[T]](32),
		markerSeq:    make(map[T]uint64),
		keyToMarker:  make(map[string]T),
		markerToKey:  make(map[T]string),
		needRetrySet: make(map[string]struct{}),
	}
}

// Start registers marker as in flight.
func (t *MarkerTracker[T]) Start(marker T, indexPos uint64, timestamp time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	t.pending.Set(t.seq, &markerSlot[T]{
		seq:       t.seq,
		marker:    marker,
		pos:       indexPos,
		timestamp: timestamp,
	})
	t.markerSeq[marker] = t.seq
}

// Finish marks the marker complete and commits a new durable marker when the
// contiguous finished prefix grew by at least the update window.
func (t *MarkerTracker[T]) Finish(ctx context.Context, marker T) error {
	t.mu.Lock()

	seq, ok := t.markerSeq[marker]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	delete(t.markerSeq, marker)
	if slot, ok := t.pending.Get(seq); ok {
		slot.done = true
	}
	t.handleFinish(marker)

	// pop the contiguous finished prefix
	for {
		minSeq, slot, ok := t.pending.Min()
		if !ok || !slot.done {
			break
		}
		t.pending.Delete(minSeq)
		t.unflushed = slot
		t.updatesSinceFlush++
	}

	var flush *markerSlot[T]
	if t.unflushed != nil && t.updatesSinceFlush >= t.window {
		flush = t.unflushed
		t.unflushed = nil
		t.updatesSinceFlush = 0
	}
	t.mu.Unlock()

	return t.store(ctx, flush)
}

// Flush commits the pending high-water marker regardless of the window.
func (t *MarkerTracker[T]) Flush(ctx context.Context) error {
	t.mu.Lock()
	flush := t.unflushed
	t.unflushed = nil
	t.updatesSinceFlush = 0
	t.mu.Unlock()

	return t.store(ctx, flush)
}

func (t *MarkerTracker[T]) store(ctx context.Context, flush *markerSlot[T]) error {
	if flush == nil {
		return nil
	}

	t.storeMu.Lock()
	defer t.storeMu.Unlock()

	if flush.seq <= t.lastStoredSeq {
		return nil
	}
	if err := t.storeMarker(ctx, flush.marker, flush.pos, flush.timestamp); err != nil {
		return err
	}
	t.lastStoredSeq = flush.seq
	return nil
}

// IndexKeyToMarker binds key to marker so only one sync runs per bucket-shard
// key. Returns false when another marker is in flight for the key; the key is
// then flagged for retry and the new work must be dropped.
func (t *MarkerTracker[T]) IndexKeyToMarker(key string, marker T) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.keyToMarker[key]; ok {
		t.needRetrySet[key] = struct{}{}
		return false
	}
	t.keyToMarker[key] = marker
	t.markerToKey[marker] = key
	return true
}

// NeedRetry reports whether another entry for key arrived while its sync was
// in flight.
func (t *MarkerTracker[T]) NeedRetry(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.needRetrySet[key]
	return ok
}

func (t *MarkerTracker[T]) ResetNeedRetry(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.needRetrySet, key)
}

// caller holds t.mu
func (t *MarkerTracker[T]) handleFinish(marker T) {
	key, ok := t.markerToKey[marker]
	if !ok {
		return
	}
	delete(t.keyToMarker, key)
	delete(t.markerToKey, marker)
	delete(t.needRetrySet, key)
}

func (t *MarkerTracker[T]) NumPending() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.pending.Len()
}

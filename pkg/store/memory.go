package store

import (
	"context"
	"sync"
	"time"

	"github.com/tidwall/btree"
)

type memLock struct {
	cookie   string
	expireAt time.Time
}

type memObject struct {
	data  string
	omap  *btree.Map[string, string]
	attrs map[string]string
	locks map[string]memLock
}

func newMemObject() *memObject {
	return &memObject{
		omap:  btree.NewMap[string, string](32),
		attrs: make(map[string]string),
		locks: make(map[string]memLock),
	}
}

// MemStore keeps everything in process. It backs unit tests and single-node
// development setups.
type MemStore struct {
	mu      sync.Mutex
	objects map[string]*memObject
}

func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string]*memObject),
	}
}

func (s *MemStore) ReadObject(ctx context.Context, oid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		return "", ErrNotFound
	}
	return obj.data, nil
}

func (s *MemStore) WriteObject(ctx context.Context, oid string, data string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		obj = newMemObject()
		s.objects[oid] = obj
	}
	obj.data = data
	// a write recreates the object, dropping its locks
	obj.locks = make(map[string]memLock)
	return nil
}

func (s *MemStore) DeleteObject(ctx context.Context, oid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, oid)
	return nil
}

func (s *MemStore) OmapSet(ctx context.Context, oid string, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		obj = newMemObject()
		s.objects[oid] = obj
	}
	for k, v := range entries {
		obj.omap.Set(k, v)
	}
	return nil
}

func (s *MemStore) OmapList(ctx context.Context, oid string, marker string, max int) ([]OmapEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		return nil, nil
	}

	result := make([]OmapEntry, 0, max)
	obj.omap.Ascend(marker, func(k, v string) bool {
		if k == marker {
			return true
		}
		result = append(result, OmapEntry{Key: k, Value: v})
		return len(result) < max
	})
	return result, nil
}

func (s *MemStore) OmapCount(ctx context.Context, oid string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		return 0, nil
	}
	return uint64(obj.omap.Len()), nil
}

func (s *MemStore) ReadAttrs(ctx context.Context, oid string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		return nil, ErrNotFound
	}

	attrs := make(map[string]string, len(obj.attrs))
	for k, v := range obj.attrs {
		attrs[k] = v
	}
	return attrs, nil
}

func (s *MemStore) WriteAttrs(ctx context.Context, oid string, attrs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		obj = newMemObject()
		s.objects[oid] = obj
	}
	for k, v := range attrs {
		obj.attrs[k] = v
	}
	return nil
}

func (s *MemStore) Lock(ctx context.Context, oid string, name string, cookie string, duration time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		obj = newMemObject()
		s.objects[oid] = obj
	}

	now := time.Now()
	if lock, ok := obj.locks[name]; ok && lock.cookie != cookie && lock.expireAt.After(now) {
		return ErrLocked
	}
	obj.locks[name] = memLock{cookie: cookie, expireAt: now.Add(duration)}
	return nil
}

func (s *MemStore) Unlock(ctx context.Context, oid string, name string, cookie string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.objects[oid]
	if !ok {
		return nil
	}
	if lock, ok := obj.locks[name]; ok && lock.cookie == cookie {
		delete(obj.locks, name)
	}
	return nil
}

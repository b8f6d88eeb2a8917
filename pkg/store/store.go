package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is the sentinel for a missing status object. Callers treat
	// it as "first run", not as a failure.
	ErrNotFound = errors.New("object not found")
	// ErrLocked is returned when another owner holds a live advisory lock.
	ErrLocked = errors.New("object locked by another owner")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

type OmapEntry struct {
	Key   string
	Value string
}

// Store is the log-pool object API the sync engine persists through: whole
// object values, ordered omap entries, named attributes and advisory locks.
//
// Writing an object recreates it, which drops any lock held on it. That is
// why status initialization re-locks after the first write.
type Store interface {
	ReadObject(ctx context.Context, oid string) (string, error)
	WriteObject(ctx context.Context, oid string, data string) error
	DeleteObject(ctx context.Context, oid string) error

	// OmapSet merges entries into the object's omap, creating the object if
	// needed. OmapList returns entries with key > marker in key order, up to
	// max; a missing object lists as empty.
	OmapSet(ctx context.Context, oid string, entries map[string]string) error
	OmapList(ctx context.Context, oid string, marker string, max int) ([]OmapEntry, error)
	OmapCount(ctx context.Context, oid string) (uint64, error)

	ReadAttrs(ctx context.Context, oid string) (map[string]string, error)
	WriteAttrs(ctx context.Context, oid string, attrs map[string]string) error

	Lock(ctx context.Context, oid string, name string, cookie string, duration time.Duration) error
	Unlock(ctx context.Context, oid string, name string, cookie string) error
}

package sync

import (
	"context"
	"time"

	"github.com/zonestor/zone_syncer/pkg/remote"
)

// ObjectOps are the object-level transfer leaves the engine drives. The
// actual data movement lives outside the sync state machines.
type ObjectOps interface {
	FetchRemoteObject(ctx context.Context, sourceZone string, bucketName string, bucketID string,
		key ObjKey, versionedEpoch uint64) error
	RemoveObject(ctx context.Context, sourceZone string, bucketName string, bucketID string,
		key ObjKey, versionedEpoch uint64, mtime time.Time) error
}

// Env carries the process-wide collaborators of one source zone's sync: the
// peer connection, the status store and the transfer leaves. Passed by
// reference to every component, never global.
type Env struct {
	SourceZone string
	Client     remote.LogClient
	Status     *StatusStore
	Objects    ObjectOps
}

func NewEnv(sourceZone string, client remote.LogClient, status *StatusStore, objects ObjectOps) *Env {
	return &Env{
		SourceZone: sourceZone,
		Client:     client,
		Status:     status,
		Objects:    objects,
	}
}

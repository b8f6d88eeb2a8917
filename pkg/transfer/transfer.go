// Package transfer carries the object-level leaves of replication: fetching a
// remote object into the local zone and removing a local object. Conflict
// resolution is "latest versioned epoch wins"; the sync state machines above
// only see success or failure.
package transfer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zonestor/zone_syncer/pkg/remote"
	"github.com/zonestor/zone_syncer/pkg/store"
	syncpkg "github.com/zonestor/zone_syncer/pkg/sync"
	"github.com/zonestor/zone_syncer/pkg/xerror"
)

const objOidPrefix = "obj"

type objMeta struct {
	VersionedEpoch uint64    `json:"versioned_epoch"`
	Mtime          time.Time `json:"mtime"`
	Size           int       `json:"size"`
}

// Transferrer pulls object payloads over the peer connection and applies them
// to the local store.
type Transferrer struct {
	conn  *remote.Connection
	store store.Store
}

func NewTransferrer(conn *remote.Connection, s store.Store) *Transferrer {
	return &Transferrer{
		conn:  conn,
		store: s,
	}
}

func objOid(bucketName string, bucketID string, key syncpkg.ObjKey) string {
	oid := fmt.Sprintf("%s.%s:%s/%s", objOidPrefix, bucketName, bucketID, key.Name)
	if key.Instance != "" && key.Instance != "null" {
		oid += ":" + key.Instance
	}
	return oid
}

// epochWins reports whether an update carrying versionedEpoch may replace the
// stored object.
func (t *Transferrer) epochWins(ctx context.Context, oid string, versionedEpoch uint64) (bool, error) {
	attrs, err := t.store.ReadAttrs(ctx, oid)
	if store.IsNotFound(err) {
		return true, nil
	}
	if err != nil {
		return false, err
	}

	raw, ok := attrs["meta"]
	if !ok {
		return true, nil
	}
	var meta objMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return false, xerror.Wrapf(err, xerror.Store, "decode meta of %s failed", oid)
	}
	return versionedEpoch >= meta.VersionedEpoch, nil
}

func (t *Transferrer) FetchRemoteObject(ctx context.Context, sourceZone string,
	bucketName string, bucketID string, key syncpkg.ObjKey, versionedEpoch uint64) error {

	oid := objOid(bucketName, bucketID, key)
	if wins, err := t.epochWins(ctx, oid, versionedEpoch); err != nil {
		return err
	} else if !wins {
		log.Debugf("fetch %s skipped, local versioned epoch is newer", oid)
		return nil
	}

	params := url.Values{}
	params.Set("rgwx-zone", sourceZone)
	if key.Instance != "" && key.Instance != "null" {
		params.Set("versionId", key.Instance)
	}

	body, header, err := t.conn.Get(ctx, "/"+bucketName+"/"+url.PathEscape(key.Name), params)
	if err != nil {
		return xerror.Wrapf(err, xerror.Remote, "fetch remote object %s/%s failed", bucketName, key)
	}

	mtime := time.Now()
	if lm := header.Get("Last-Modified"); lm != "" {
		if parsed, err := time.Parse(time.RFC1123, lm); err == nil {
			mtime = parsed
		}
	}

	if err := t.store.WriteObject(ctx, oid, string(body)); err != nil {
		return err
	}
	meta := objMeta{VersionedEpoch: versionedEpoch, Mtime: mtime, Size: len(body)}
	return t.store.WriteAttrs(ctx, oid, map[string]string{"meta": mustEncode(meta)})
}

func (t *Transferrer) RemoveObject(ctx context.Context, sourceZone string,
	bucketName string, bucketID string, key syncpkg.ObjKey, versionedEpoch uint64, mtime time.Time) error {

	oid := objOid(bucketName, bucketID, key)
	if wins, err := t.epochWins(ctx, oid, versionedEpoch); err != nil {
		return err
	} else if !wins {
		log.Debugf("remove %s skipped, local versioned epoch is newer", oid)
		return nil
	}

	return t.store.DeleteObject(ctx, oid)
}

func mustEncode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

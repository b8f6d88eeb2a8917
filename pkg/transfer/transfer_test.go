package transfer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/zonestor/zone_syncer/pkg/remote"
	"github.com/zonestor/zone_syncer/pkg/store"
	syncpkg "github.com/zonestor/zone_syncer/pkg/sync"
)

func init() {
	log.SetOutput(io.Discard)
}

func newTestTransferrer(t *testing.T, handler http.HandlerFunc) (*Transferrer, store.Store) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	db := store.NewMemStore()
	return NewTransferrer(remote.NewConnection(server.URL, 5*time.Second), db), db
}

func TestFetchRemoteObject(t *testing.T) {
	ctx := context.Background()
	tr, db := newTestTransferrer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/b1/o", r.URL.Path)
		require.Equal(t, "z1", r.URL.Query().Get("rgwx-zone"))
		w.Write([]byte("payload"))
	})

	key := syncpkg.ObjKey{Name: "o"}
	require.NoError(t, tr.FetchRemoteObject(ctx, "z1", "b1", "inst-A", key, 0))

	data, err := db.ReadObject(ctx, "obj.b1:inst-A/o")
	require.NoError(t, err)
	require.Equal(t, "payload", data)
}

func TestFetchVersionedObject(t *testing.T) {
	ctx := context.Background()
	tr, db := newTestTransferrer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "v1", r.URL.Query().Get("versionId"))
		w.Write([]byte("v1-payload"))
	})

	key := syncpkg.ObjKey{Name: "o", Instance: "v1"}
	require.NoError(t, tr.FetchRemoteObject(ctx, "z1", "b1", "inst-A", key, 3))

	data, err := db.ReadObject(ctx, "obj.b1:inst-A/o:v1")
	require.NoError(t, err)
	require.Equal(t, "v1-payload", data)
}

func TestStaleEpochLoses(t *testing.T) {
	ctx := context.Background()
	requests := 0
	tr, db := newTestTransferrer(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte("payload"))
	})

	key := syncpkg.ObjKey{Name: "o"}
	require.NoError(t, tr.FetchRemoteObject(ctx, "z1", "b1", "inst-A", key, 5))
	require.Equal(t, 1, requests)

	// an older epoch must not clobber the stored object
	require.NoError(t, tr.FetchRemoteObject(ctx, "z1", "b1", "inst-A", key, 4))
	require.Equal(t, 1, requests)

	// an older remove is also a no-op
	require.NoError(t, tr.RemoveObject(ctx, "z1", "b1", "inst-A", key, 4, time.Now()))
	_, err := db.ReadObject(ctx, "obj.b1:inst-A/o")
	require.NoError(t, err)

	// a newer epoch wins
	require.NoError(t, tr.RemoveObject(ctx, "z1", "b1", "inst-A", key, 6, time.Now()))
	_, err = db.ReadObject(ctx, "obj.b1:inst-A/o")
	require.True(t, store.IsNotFound(err))
}

func TestFetchMissingObject(t *testing.T) {
	ctx := context.Background()
	tr, _ := newTestTransferrer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	err := tr.FetchRemoteObject(ctx, "z1", "b1", "inst-A", syncpkg.ObjKey{Name: "gone"}, 0)
	require.Error(t, err)
}

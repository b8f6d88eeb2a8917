package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/zonestor/zone_syncer/pkg/store"
	syncpkg "github.com/zonestor/zone_syncer/pkg/sync"
)

// sync_status dumps the persisted sync state of one source zone, and
// optionally the per-shard state of one bucket instance.

var (
	dbPath       string
	sourceZone   string
	bucketName   string
	bucketID     string
	bucketShards int
)

func init() {
	flag.StringVar(&dbPath, "db_dir", "zone_syncer.db", "sqlite3 db file")
	flag.StringVar(&sourceZone, "zone", "", "source zone")
	flag.StringVar(&bucketName, "bucket", "", "bucket name, dump bucket shard status instead")
	flag.StringVar(&bucketID, "bucket_id", "", "bucket instance id")
	flag.IntVar(&bucketShards, "bucket_shards", 0, "bucket shard count, 0 for unsharded")
	flag.Parse()
}

func dump(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("marshal failed: %+v", err)
	}
	fmt.Println(string(data))
}

func main() {
	if sourceZone == "" {
		fmt.Println("zone is required")
		os.Exit(1)
	}

	db, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("open status store error: %+v", err)
	}
	statuses := syncpkg.NewStatusStore(db)
	ctx := context.Background()

	if bucketName != "" {
		result, err := syncpkg.ReadBucketSyncStatus(ctx, statuses, sourceZone, bucketName, bucketID, bucketShards)
		if err != nil {
			log.Fatalf("read bucket sync status error: %+v", err)
		}
		dump(result)
		return
	}

	info, err := statuses.ReadZoneInfo(ctx, sourceZone)
	if store.IsNotFound(err) {
		fmt.Printf("no sync status for source zone %s\n", sourceZone)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("read zone sync status error: %+v", err)
	}
	dump(info)

	for i := 0; i < int(info.NumShards); i++ {
		marker, err := statuses.ReadShardMarker(ctx, sourceZone, i)
		if err != nil {
			log.Fatalf("read shard %d marker error: %+v", i, err)
		}
		fmt.Printf("shard %d:\n", i)
		dump(marker)
	}
}

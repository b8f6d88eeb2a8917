package main

import (
	"flag"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/zonestor/zone_syncer/pkg/config"
	"github.com/zonestor/zone_syncer/pkg/remote"
	"github.com/zonestor/zone_syncer/pkg/service"
	"github.com/zonestor/zone_syncer/pkg/store"
	syncpkg "github.com/zonestor/zone_syncer/pkg/sync"
	"github.com/zonestor/zone_syncer/pkg/transfer"
	"github.com/zonestor/zone_syncer/pkg/utils"
	"github.com/zonestor/zone_syncer/pkg/xmetrics"
)

const remoteTimeout = time.Minute

type Syncer struct {
	Port int

	Db_type     string
	Db_host     string
	Db_port     int
	Db_user     string
	Db_password string
}

var (
	dbPath     string
	configPath string
	syncer     Syncer
	version    bool
)

func init() {
	flag.BoolVar(&version, "version", false, "The program's version")

	flag.StringVar(&configPath, "config", "", "config file with source zones to start")
	flag.StringVar(&dbPath, "db_dir", "zone_syncer.db", "sqlite3 db file")
	flag.StringVar(&syncer.Db_type, "db_type", "sqlite3", "status store type")
	flag.StringVar(&syncer.Db_host, "db_host", "127.0.0.1", "status store host")
	flag.IntVar(&syncer.Db_port, "db_port", 3306, "status store port")
	flag.StringVar(&syncer.Db_user, "db_user", "root", "status store user")
	flag.StringVar(&syncer.Db_password, "db_password", "", "status store password")

	flag.IntVar(&syncer.Port, "port", 9190, "admin service port")
	flag.Parse()

	utils.InitLog()
}

func newStore() (store.Store, error) {
	switch syncer.Db_type {
	case "sqlite3":
		return store.NewSQLiteStore(dbPath)
	case "mysql":
		return store.NewMysqlStore(syncer.Db_host, syncer.Db_port, syncer.Db_user, syncer.Db_password)
	case "memory":
		return store.NewMemStore(), nil
	default:
		log.Fatalf("unknown store type: %s", syncer.Db_type)
		return nil, nil
	}
}

func main() {
	if version {
		printVersion()
	}

	log.Infof("zone syncer start, version: %s", getVersion())

	// Step 1: open the status store
	if dbPath == "" {
		log.Fatal("db_dir is empty")
	}
	db, err := newStore()
	if err != nil {
		log.Fatalf("open status store error: %+v", err)
	}
	statuses := syncpkg.NewStatusStore(db)

	// Step 2: create syncer manager && http service
	manager := syncpkg.NewSyncerManager()
	newSyncer := func(sourceZone string, endpoint string) (*syncpkg.ZoneSyncer, error) {
		conn := remote.NewConnection(endpoint, remoteTimeout)
		env := syncpkg.NewEnv(sourceZone, remote.NewLogClient(conn), statuses,
			transfer.NewTransferrer(conn, db))
		return syncpkg.NewZoneSyncer(env), nil
	}
	httpService := service.NewHttpServer(syncer.Port, manager, newSyncer)
	monitor := NewMonitor(manager)

	// Step 3: start configured source zones
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("load config error: %+v", err)
		}
		for _, zone := range cfg.Zones {
			zoneSyncer, err := newSyncer(zone.Name, zone.Endpoint)
			if err != nil {
				log.Fatalf("create sync for zone %s error: %+v", zone.Name, err)
			}
			if err := manager.AddSyncer(zoneSyncer); err != nil {
				log.Fatalf("add sync for zone %s error: %+v", zone.Name, err)
			}
		}
	}

	// Step 4: http service start
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()

		if err := httpService.Start(); err != nil {
			log.Fatalf("http service start error: %+v", err)
		}
	}()

	// Step 5: start syncer manager && monitor
	wg.Add(1)
	go func() {
		defer wg.Done()
		manager.Start()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Start()
	}()

	// Step 6: init metrics
	if err := xmetrics.InitGlobal("zone-syncer-metrics"); err != nil {
		log.Fatalf("init metrics failed: %+v", err)
	}

	// Step 7: stop everything on signal
	signalMux := NewSignalMux(func(sig os.Signal) bool {
		log.Infof("shutting down")
		monitor.Stop()
		if err := httpService.Stop(); err != nil {
			log.Errorf("http service stop error: %+v", err)
		}
		if err := manager.Stop(); err != nil {
			log.Errorf("syncer manager stop error: %+v", err)
		}
		return true
	})
	go signalMux.Serve()

	// Step 8: wait for all task done
	wg.Wait()
}

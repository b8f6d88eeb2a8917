package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/zonestor/zone_syncer/pkg/sync"
	"github.com/zonestor/zone_syncer/pkg/version"
	"github.com/zonestor/zone_syncer/pkg/xerror"
)

func writeJson(w http.ResponseWriter, data interface{}) {
	if data, err := json.Marshal(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	} else {
		w.Write(data)
	}
}

// SyncerFactory builds a zone syncer from a create request; wiring of the
// peer connection and transfer leaves lives in the caller.
type SyncerFactory func(sourceZone string, endpoint string) (*sync.ZoneSyncer, error)

type HttpService struct {
	port   int
	server *http.Server
	mux    *http.ServeMux

	manager   *sync.SyncerManager
	newSyncer SyncerFactory
}

func NewHttpServer(port int, manager *sync.SyncerManager, newSyncer SyncerFactory) *HttpService {
	return &HttpService{
		port:      port,
		mux:       http.NewServeMux(),
		manager:   manager,
		newSyncer: newSyncer,
	}
}

type CreateSyncRequest struct {
	// must need all fields required
	SourceZone string `json:"source_zone,required"`
	Endpoint   string `json:"endpoint,required"`
}

func (r *CreateSyncRequest) String() string {
	return fmt.Sprintf("source_zone: %s, endpoint: %s", r.SourceZone, r.Endpoint)
}

type ZoneCommonRequest struct {
	SourceZone string `json:"source_zone,required"`
}

func (s *HttpService) versionHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("get version")

	type versionResult struct {
		Version string `json:"version"`
	}

	result := versionResult{Version: version.GetVersion()}
	writeJson(w, result)
}

// createHandler registers a new source zone and starts pulling from it.
func (s *HttpService) createHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("create sync")

	var request CreateSyncRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.SourceZone == "" || request.Endpoint == "" {
		http.Error(w, "source_zone or endpoint is empty", http.StatusBadRequest)
		return
	}

	syncer, err := s.newSyncer(request.SourceZone, request.Endpoint)
	if err != nil {
		log.Errorf("create sync failed: %+v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := s.manager.AddSyncer(syncer); err != nil {
		log.Errorf("create sync failed: %+v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type result struct {
		Success bool `json:"success"`
	}
	writeJson(w, result{Success: true})
}

func (s *HttpService) removeHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("remove sync")

	var request ZoneCommonRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if request.SourceZone == "" {
		http.Error(w, "source_zone is empty", http.StatusBadRequest)
		return
	}

	if err := s.manager.RemoveSyncer(request.SourceZone); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type result struct {
		Success bool `json:"success"`
	}
	writeJson(w, result{Success: true})
}

// statusHandler reports the zone record and every datalog shard marker.
func (s *HttpService) statusHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("sync status")

	zone := r.URL.Query().Get("zone")
	if zone == "" {
		http.Error(w, "zone is empty", http.StatusBadRequest)
		return
	}

	syncer, ok := s.manager.GetSyncer(zone)
	if !ok {
		http.Error(w, fmt.Sprintf("sync for source zone %s not exists", zone), http.StatusNotFound)
		return
	}

	info, markers, err := syncer.ReadSyncStatus(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type result struct {
		Info    *sync.ZoneSyncInfo               `json:"info"`
		Markers map[int]*sync.DatalogShardMarker `json:"markers"`
	}
	writeJson(w, result{Info: info, Markers: markers})
}

type WakeupRequest struct {
	SourceZone string   `json:"source_zone,required"`
	ShardID    int      `json:"shard_id,required"`
	Keys       []string `json:"keys,required"`
}

// wakeupHandler is the bridge for the local write path: it notifies a shard
// pump that certain bucket shards have new data on the source side.
func (s *HttpService) wakeupHandler(w http.ResponseWriter, r *http.Request) {
	var request WakeupRequest
	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Debugf("wakeup zone %s shard %d, keys: %v", request.SourceZone, request.ShardID, request.Keys)
	s.manager.Wakeup(request.SourceZone, request.ShardID, request.Keys)

	type result struct {
		Success bool `json:"success"`
	}
	writeJson(w, result{Success: true})
}

func (s *HttpService) listSyncsHandler(w http.ResponseWriter, r *http.Request) {
	log.Infof("list syncs")

	type result struct {
		Zones []string `json:"zones"`
	}
	writeJson(w, result{Zones: s.manager.ListZones()})
}

func (s *HttpService) RegisterHandlers() {
	s.mux.HandleFunc("/version", s.versionHandler)
	s.mux.HandleFunc("/create_sync", s.createHandler)
	s.mux.HandleFunc("/remove_sync", s.removeHandler)
	s.mux.HandleFunc("/sync_status", s.statusHandler)
	s.mux.HandleFunc("/wakeup", s.wakeupHandler)
	s.mux.HandleFunc("/list_syncs", s.listSyncsHandler)
}

func (s *HttpService) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	log.Infof("Server listening on %s", addr)

	s.RegisterHandlers()

	s.server = &http.Server{Addr: addr, Handler: s.mux}
	err := s.server.ListenAndServe()
	if err == nil {
		return nil
	} else if err == http.ErrServerClosed {
		log.Info("http server closed")
		return nil
	} else {
		return xerror.Wrapf(err, xerror.Normal, "http server start on %s failed", addr)
	}
}

// Stop stops the HTTP server gracefully.
func (s *HttpService) Stop() error {
	if err := s.server.Shutdown(context.TODO()); err != nil {
		return xerror.Wrapf(err, xerror.Normal, "http server close failed")
	}
	return nil
}

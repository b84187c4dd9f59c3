package app

import (
	"io"
	"log"
	"net/http"

	"gopricewatch_api/config"
	pricesyncservices "gopricewatch_api/internal/pricesync/business/services"
	syncsvc "gopricewatch_api/internal/pricesync/business/services/sync"
	"gopricewatch_api/internal/pricesync/storage"
	"gopricewatch_api/internal/sefaz/business/services"
	"gopricewatch_api/internal/sefaz/business/services/cache"
	"gopricewatch_api/internal/sefaz/business/services/health"
	"gopricewatch_api/internal/sefaz/business/services/search"
	"gopricewatch_api/metrics"
	"gopricewatch_api/pkg/business/service"
	"gopricewatch_api/pkg/dbconnect"
	"gopricewatch_api/pkg/dbconnect/migration"
	"gopricewatch_api/pkg/middleware"
)

type PriceSyncServer struct {
	dbconnect.DbConnector
	cfg    config.SefazConfig
	writer io.Writer
	addr   string
}

func NewPriceSyncServer(connector dbconnect.DbConnector, cfg config.SefazConfig, writer io.Writer) *PriceSyncServer {
	return &PriceSyncServer{
		DbConnector: connector,
		cfg:         cfg,
		writer:      writer,
		addr:        ":8080",
	}
}

func (s *PriceSyncServer) Run() {
	db, err := s.Connect()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %s", err)
	}
	defer db.Close()

	migrationApply := []migration.MigrationInterface{
		&storage.PricewatchSchema{},
		&storage.TrackedItemsTable{},
		&storage.CompetitorTrackingsTable{},
		&storage.EstablishmentsTable{},
		&storage.PriceHistoryTable{},
		&storage.SyncRunsTable{},
	}

	for _, m := range migrationApply {
		if err := m.UpMigration(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}
	log.Println("Pricewatch migrations applied successfully!")

	vals := s.cfg.SefazValues

	// The cache and health tracker are built once here and handed to the
	// engine by reference, so tests and future workers can substitute
	// isolated instances.
	responseCache := cache.NewResponseCache(vals.CacheTTL(), vals.CacheMaxEntries)
	tracker := health.NewTracker(health.DefaultWindowSize)

	var auth services.AuthEngine
	if a := services.NewAppTokenAuth(s.cfg.AppToken); a != nil {
		auth = a
	}

	normalizer := services.NewPayloadNormalizer(service.NewTextService(), vals)
	engine := search.NewSearchEngine(s.cfg.ApiURL, auth, normalizer, responseCache, tracker, vals, s.writer)
	resolver := pricesyncservices.NewFallbackResolver(engine, vals, s.writer)

	runsRepo := storage.NewSyncRunsRepository(db)
	processor := syncsvc.NewProcessor(
		storage.NewTrackedItemsRepository(db),
		storage.NewCompetitorsRepository(db),
		resolver,
		storage.NewPriceHistoryStore(db, s.writer),
		runsRepo,
		s.cfg.SyncValues,
		s.writer,
	)

	handler := NewSyncHandler(processor, runsRepo, tracker)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sync", handler.TriggerSyncHandler)
	mux.HandleFunc("/api/sync/status", handler.RunStatusHandler)
	mux.HandleFunc("/api/upstream/health", handler.UpstreamHealthHandler)
	mux.Handle("/metrics", metrics.MetricsHandler())

	log.Printf("Pricewatch sync service listening on %s", s.addr)
	log.Fatal(http.ListenAndServe(s.addr, middleware.PrometheusMiddleware(mux)))
}

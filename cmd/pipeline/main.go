package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/user/listing-pipeline/internal/adapter/chromedp_renderer"
	"github.com/user/listing-pipeline/internal/adapter/geo"
	"github.com/user/listing-pipeline/internal/adapter/mongo"
	"github.com/user/listing-pipeline/internal/adapter/postgres"
	redis_adapter "github.com/user/listing-pipeline/internal/adapter/redis"
	"github.com/user/listing-pipeline/internal/adapter/search"
	"github.com/user/listing-pipeline/internal/bootstrap"
	"github.com/user/listing-pipeline/internal/delivery/http/handler"
	"github.com/user/listing-pipeline/internal/delivery/http/router"
	"github.com/user/listing-pipeline/internal/entity"
	"github.com/user/listing-pipeline/internal/feature"
	"github.com/user/listing-pipeline/internal/pipeline"
	"github.com/user/listing-pipeline/internal/proxy"
	"github.com/user/listing-pipeline/internal/usecase"
	"github.com/user/listing-pipeline/pkg/config"
	"github.com/user/listing-pipeline/pkg/logger"
	"github.com/user/listing-pipeline/pkg/utils"
)

func main() {
	os.Exit(run())
}

func run() int {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		return 1
	}

	// --- Logger ---
	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not build logger: %v\n", err)
		return 1
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("run_id", cfg.CrawlRunID))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	connectCtx, cancelConnect := context.WithTimeout(ctx, 30*time.Second)
	stores, err := bootstrap.OpenStores(connectCtx, cfg, log)
	cancelConnect()
	if err != nil {
		log.Error("failed to open stores", zap.Error(err))
		return 1
	}
	defer stores.Close(context.Background())

	rawRepo := mongo.NewRawListingRepo(stores.Database.Collection(cfg.MongoCollectionRaw))
	stagingStore := mongo.NewListingStore(stores.Database.Collection(cfg.MongoCollectionStaging))
	processedStore := mongo.NewListingStore(stores.Database.Collection(cfg.MongoCollectionProcessed))
	for _, ensure := range []func(context.Context) error{rawRepo.EnsureIndexes, stagingStore.EnsureIndexes, processedStore.EnsureIndexes} {
		if err := ensure(ctx); err != nil {
			log.Error("failed to create indexes", zap.Error(err))
			return 1
		}
	}
	seenRepo := redis_adapter.NewSeenRepo(stores.Redis, cfg.SeenTTL())
	stageRunRepo := postgres.NewStageRunRepo(stores.Postgres)
	failedRepo := postgres.NewFailedListingRepo(stores.Postgres)

	// --- Reference data ---
	vocabulary, err := feature.VocabularyByName(cfg.FeatureVocabulary)
	if err != nil {
		log.Error("invalid feature vocabulary", zap.Error(err))
		return 1
	}
	gazetteer, err := geo.LoadGazetteer(cfg.GeoLocalitiesPath, cfg.GeoNeighborhoodsPath, cfg.GeoNameProperty)
	if err != nil {
		log.Error("failed to load geographic reference data", zap.Error(err))
		return 1
	}
	poiPaths, err := cfg.POIPathMap()
	if err != nil {
		log.Error("invalid points of interest configuration", zap.Error(err))
		return 1
	}
	pois, err := geo.LoadPOIIndex(poiPaths, cfg.GeoNameProperty)
	if err != nil {
		log.Error("failed to load points of interest", zap.Error(err))
		return 1
	}

	// --- Acquisition ---
	source, err := bootstrap.SourceFromConfig(cfg)
	if err != nil {
		log.Error("invalid source configuration", zap.Error(err))
		return 1
	}
	proxyManager := proxy.NewManager(cfg.ProxyList(), nil)
	searchClient := search.NewClient(search.Config{
		RPS:        cfg.SearchRPS,
		MaxRetries: cfg.SearchMaxRetries,
	}, proxyManager, log)
	discoverer := usecase.NewDiscoverer(searchClient, usecase.DiscoveryConfig{
		PageSize:  cfg.PageSize,
		MaxOffset: cfg.MaxOffset,
		Workers:   cfg.SearchWorkers,
	}, log)
	renderer := chromedp_renderer.NewProvider(chromedp_renderer.Config{
		PageLoadTimeout: cfg.PageLoadTimeoutDuration(),
		ChromePath:      cfg.ChromePath,
	}, proxyManager, log)

	// --- Stages ---
	stages := []pipeline.Stage{
		usecase.NewAcquisitionStage([]entity.Source{source}, discoverer, renderer, seenRepo, rawRepo, failedRepo,
			usecase.AcquisitionConfig{
				Workers: cfg.RenderWorkers,
				Extractor: usecase.ExtractorConfig{
					RetryWait:    cfg.DetailRetryWaitDuration(),
					NodeSelector: cfg.DataNodeSelector,
					PayloadPath:  utils.ParsePath(cfg.PayloadPath),
				},
			}, log),
		usecase.NewNormalizationStage(rawRepo, stagingStore, feature.NewDeriver(vocabulary), log),
		usecase.NewCorrectionStage(stagingStore, gazetteer, log),
		usecase.NewProximityStage(stagingStore, pois, log),
		usecase.NewPersistenceStage(stagingStore, processedStore, log),
	}
	policy, err := pipeline.ParsePolicy(cfg.StageFailurePolicy)
	if err != nil {
		log.Error("invalid stage failure policy", zap.Error(err))
		return 1
	}
	orchestrator := pipeline.New(stages, stageRunRepo, policy, log)

	// --- Status server ---
	if cfg.StatusServerEnabled {
		runStatus := usecase.NewRunStatus(stageRunRepo, failedRepo, log)
		server := &http.Server{
			Addr:         ":" + cfg.ServerPort,
			Handler:      router.New(handler.NewHandler(runStatus, stores.HealthChecks(), log), log),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("status server started", zap.String("port", cfg.ServerPort))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("status server stopped", zap.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
		}()
	}

	// --- Run ---
	crawlRun := entity.CrawlRun{ID: cfg.CrawlRunID, StartedAt: time.Now().UTC()}
	stageLog, err := orchestrator.Run(ctx, crawlRun)
	for _, sr := range stageLog {
		log.Info("stage summary",
			zap.String("stage", sr.Stage),
			zap.String("status", string(sr.Status)),
			zap.String("reason", sr.Reason))
	}
	if err != nil {
		log.Error("pipeline finished with failures", zap.Error(err))
		return 1
	}
	log.Info("pipeline finished", zap.Duration("elapsed", time.Since(crawlRun.StartedAt)))
	return 0
}

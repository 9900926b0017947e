// Package main wires together the audit service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pageaudit/pageaudit/internal/api"
	"github.com/pageaudit/pageaudit/internal/audit"
	"github.com/pageaudit/pageaudit/internal/auditor"
	"github.com/pageaudit/pageaudit/internal/browser"
	"github.com/pageaudit/pageaudit/internal/clock/system"
	"github.com/pageaudit/pageaudit/internal/collector"
	"github.com/pageaudit/pageaudit/internal/config"
	"github.com/pageaudit/pageaudit/internal/database"
	eventspubsub "github.com/pageaudit/pageaudit/internal/events/pubsub"
	"github.com/pageaudit/pageaudit/internal/id/uuid"
	"github.com/pageaudit/pageaudit/internal/insight"
	"github.com/pageaudit/pageaudit/internal/linkcheck"
	"github.com/pageaudit/pageaudit/internal/logging"
	"github.com/pageaudit/pageaudit/internal/metrics"
	storagegcs "github.com/pageaudit/pageaudit/internal/storage/gcs"
	storagelocal "github.com/pageaudit/pageaudit/internal/storage/local"
	storagememory "github.com/pageaudit/pageaudit/internal/storage/memory"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := system.New()
	idGen := uuid.New()

	var browse audit.Browser
	if cfg.Browser.Enabled {
		chrome, err := browser.New(browser.Config{
			Enabled:           true,
			UserAgent:         cfg.Browser.UserAgent,
			MaxSessions:       cfg.Browser.MaxSessions,
			NavigationTimeout: cfg.NavTimeout(),
			DomainQPS:         cfg.Browser.DomainQPS,
		}, logger.Named("browser"))
		if err != nil {
			logger.Fatal("browser init failed", zap.Error(err))
		}
		browse = chrome
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := chrome.Close(closeCtx); err != nil {
				logger.Warn("browser close failed", zap.Error(err))
			}
		}()
	} else {
		logger.Warn("browser disabled; audit submissions will fail")
		browse = browser.NewNoop()
	}

	prober := linkcheck.New(linkcheck.Config{
		UserAgent: cfg.Browser.UserAgent,
		Timeout:   time.Duration(cfg.Audit.LinkProbeTimeoutSec) * time.Second,
		MaxLinks:  cfg.Audit.LinkProbeMax,
	}, logger.Named("linkcheck"))

	var store audit.Store
	if cfg.DB.DSN != "" {
		pg, err := database.NewPostgresStore(ctx, database.PostgresConfig{
			DSN:             cfg.DB.DSN,
			Table:           cfg.DB.Table,
			MaxConns:        cfg.DB.MaxConns,
			MinConns:        cfg.DB.MinConns,
			MaxConnLifetime: time.Duration(cfg.DB.ConnLifetimeSec) * time.Second,
		}, idGen)
		if err != nil {
			logger.Fatal("postgres init failed", zap.Error(err))
		}
		defer pg.Close()
		store = pg
	} else {
		logger.Info("no database dsn configured; using in-memory store")
		store = database.NewMemoryStore(idGen)
	}

	var blobs audit.BlobStore
	switch cfg.Storage.Provider {
	case "gcs":
		gcsStore, err := storagegcs.Connect(ctx, storagegcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			logger.Fatal("gcs init failed", zap.Error(err))
		}
		defer func() {
			if err := gcsStore.Close(); err != nil {
				logger.Warn("gcs close failed", zap.Error(err))
			}
		}()
		blobs = gcsStore
	case "local":
		localStore, err := storagelocal.New(storagelocal.Config{BaseDir: cfg.Storage.LocalDir})
		if err != nil {
			logger.Fatal("local storage init failed", zap.Error(err))
		}
		blobs = localStore
	default:
		blobs = storagememory.NewBlobStore()
	}

	var publisher audit.Publisher
	if cfg.PubSub.ProjectID != "" {
		pub, err := eventspubsub.Connect(ctx, eventspubsub.Config{
			ProjectID: cfg.PubSub.ProjectID,
			TopicID:   cfg.PubSub.TopicName,
		})
		if err != nil {
			logger.Fatal("pubsub init failed", zap.Error(err))
		}
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Warn("pubsub close failed", zap.Error(err))
			}
		}()
		publisher = pub
	}

	var analyzer audit.DeepAnalyzer
	if cfg.Generative.Endpoint != "" {
		analyzer = insight.NewGenerative(insight.GenerativeConfig{
			Endpoint: cfg.Generative.Endpoint,
			APIKey:   cfg.Generative.APIKey,
			Model:    cfg.Generative.Model,
			Timeout:  time.Duration(cfg.Generative.TimeoutSec) * time.Second,
		}, logger.Named("insight"))
	} else {
		analyzer = insight.NewHeuristic()
	}

	runner := auditor.New(auditor.Deps{
		Browser:   browse,
		Collector: collector.New(prober, clock, logger.Named("collector")),
		Store:     store,
		Blobs:     blobs,
		Publisher: publisher,
		Analyzer:  analyzer,
		Clock:     clock,
		IDs:       idGen,
		Logger:    logger.Named("auditor"),
	})

	apiServer := api.NewServer(runner, store, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
}

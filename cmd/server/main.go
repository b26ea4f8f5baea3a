// main wires the lifecycle engine into a process: config, stores, event
// pipeline, and the HTTP API. Business rules live in the internal service
// packages; this file only chooses implementations and connects them.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	assignmenthandler "certrail/internal/assignment/handler"
	assignmentservice "certrail/internal/assignment/service"
	assignmentmem "certrail/internal/assignment/store/memory"
	assignmentpg "certrail/internal/assignment/store/postgres"
	"certrail/internal/catalog"
	certificationhandler "certrail/internal/certification/handler"
	certificationservice "certrail/internal/certification/service"
	certificationmem "certrail/internal/certification/store/memory"
	certificationpg "certrail/internal/certification/store/postgres"
	compliancecache "certrail/internal/compliance/cache"
	compliancehandler "certrail/internal/compliance/handler"
	complianceservice "certrail/internal/compliance/service"
	"certrail/internal/platform/config"
	"certrail/internal/platform/httpserver"
	"certrail/internal/platform/logger"
	"certrail/internal/platform/metrics"
	"certrail/internal/platform/redis"
	"certrail/internal/platform/token"
	traininghandler "certrail/internal/training/handler"
	trainingservice "certrail/internal/training/service"
	trainingmem "certrail/internal/training/store/memory"
	trainingpg "certrail/internal/training/store/postgres"
	httptransport "certrail/internal/transport/http"
	"certrail/pkg/platform/events"
	eventsmem "certrail/pkg/platform/events/store/memory"
	eventspg "certrail/pkg/platform/events/store/postgres"
	"certrail/pkg/platform/events/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := loadCatalog(cfg, log)
	if err != nil {
		return err
	}

	var db *sql.DB
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		log.Info("using postgres stores")
	} else {
		log.Info("using in-memory stores")
	}

	m := metrics.New()
	recorder := events.NewRecorder(cfg.EventBuffer, log)

	var eventStore events.Store
	var assignmentStore assignmentservice.Store
	var trainingStore trainingservice.Store
	var certificationStore certificationservice.Store
	if db != nil {
		eventStore = eventspg.New(db)
		assignmentStore = assignmentpg.New(db)
		trainingStore = trainingpg.New(db)
		certificationStore = certificationpg.New(db)
	} else {
		eventStore = eventsmem.NewInMemoryStore()
		assignmentStore = assignmentmem.New()
		trainingStore = trainingmem.New()
		certificationStore = certificationmem.New()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		log.Info("compliance cache enabled")
	}
	rateCache := compliancecache.New(redisClient, config.ComplianceCacheTTL)
	eventStore = compliancecache.WithInvalidation(rateCache, eventStore)

	assignmentSvc := assignmentservice.NewService(assignmentStore, reg, recorder, m)
	trainingSvc := trainingservice.NewService(trainingStore, recorder, m)
	certificationSvc := certificationservice.NewService(certificationStore, reg, recorder, m)
	complianceSvc := complianceservice.NewService(
		assignmentSvc, trainingSvc, certificationSvc, reg,
		complianceCacheOrNil(rateCache),
	)

	tokens := token.NewService(cfg.JWTSigningKey, "certrail", apiCredentials(cfg)...)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Metrics:        m,
		Validator:      tokens,
		Tokens:         token.NewHandler(tokens, log),
		Assignments:    assignmenthandler.New(assignmentSvc, log),
		Trainings:      traininghandler.New(trainingSvc, log),
		Certifications: certificationhandler.New(certificationSvc, log),
		Compliance:     compliancehandler.New(complianceSvc, log),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.NewWorker(eventStore, recorder.Inbox()).Run(ctx)
	})

	g.Go(func() error {
		log.Info("starting certrail", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func loadCatalog(cfg config.Server, log *slog.Logger) (*catalog.Registry, error) {
	if cfg.CatalogPath != "" {
		return catalog.LoadFile(cfg.CatalogPath)
	}
	log.Warn("no catalog file configured, starting with an empty catalog")
	return catalog.NewRegistry(nil, nil)
}

func apiCredentials(cfg config.Server) []token.Credential {
	if cfg.APIClient.ID == "" || cfg.APIClient.SecretHash == "" {
		return nil
	}
	return []token.Credential{{
		ClientID:   cfg.APIClient.ID,
		SecretHash: cfg.APIClient.SecretHash,
		Role:       cfg.APIClient.Role,
	}}
}

func complianceCacheOrNil(cache *compliancecache.RateCache) complianceservice.Cache {
	if cache == nil {
		return nil
	}
	return cache
}

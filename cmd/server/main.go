// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"matching-platform/internal/ads"
	"matching-platform/internal/api"
	"matching-platform/internal/booking"
	"matching-platform/internal/common/aws"
	"matching-platform/internal/common/camunda"
	"matching-platform/internal/common/config"
	"matching-platform/internal/common/database"
	"matching-platform/internal/common/logger"
	"matching-platform/internal/common/observability"
	"matching-platform/internal/directory"
	"matching-platform/internal/events"
	"matching-platform/internal/notification"
	"matching-platform/internal/recommend"
	"matching-platform/internal/store"
	"matching-platform/internal/verification"
	"matching-platform/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)
	zapLog.Info("Starting matching platform...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(&camunda.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: cfg.Camunda.Plaintext,
			RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
		})
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	if err := deployProcesses(ctx, zeebe, cfg.Camunda.DeployDir, log); err != nil {
		zapLog.Fatal("process deployment failed", zap.Error(err))
	}

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	if err := store.Migrate(ctx, pg.DB); err != nil {
		zapLog.Fatal("schema migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry ---
	rdb := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error {
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, log, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	zapLog.Info("Redis connected successfully")

	checks := map[string]api.Check{
		"postgres": pg.Ping,
		"redis":    rdb.Ping,
		"zeebe":    zeebe.HealthCheck,
	}

	// --- Init Elasticsearch (optional) ---
	var dir *directory.Directory
	if len(cfg.Database.Elasticsearch.Addresses) > 0 {
		var es *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			es, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return es.Ping(ctx)
		}, 10, 2*time.Second, log, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		dir = directory.New(es.Client, cfg.Database.Elasticsearch.TherapistIndex, log)
		checks["elasticsearch"] = es.Ping
		zapLog.Info("Elasticsearch connected successfully")
	}

	// --- Stores and services ---
	people := store.NewPeople(pg.DB)
	therapists := store.NewTherapists(pg.DB)
	matches := store.NewMatches(pg.DB)
	eventStore := store.NewEvents(pg.DB)
	tracker := events.NewTracker(eventStore, log)

	sender, err := newSender(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("notification sender init failed", zap.Error(err))
	}
	verifier := verification.NewService(cfg.Verification, rdb.Client, sender, log)

	var slots recommend.SlotSource
	if cfg.Integrations.Booking.BaseURL != "" {
		slots = booking.NewClient(cfg.Integrations.Booking, rdb.Client, log)
	}
	var prefilter recommend.Prefilter
	if cfg.Matching.CandidateSource == config.CandidateSourceElasticsearch && dir != nil {
		prefilter = dir
	}
	recommender := recommend.NewService(people, therapists, prefilter, slots, recommend.Options{
		MaxResults:    cfg.Matching.MaxResults,
		CandidatePool: cfg.Matching.CandidatePool,
		Tracer:        obs.Tracer(),
	}, log)

	conversions := ads.NewConversionClient(ctx, cfg.Integrations.GoogleAds, nil, log)

	// --- Workers ---
	reg, err := registry.Default()
	if err != nil {
		zapLog.Fatal("activity registry invalid", zap.Error(err))
	}
	started := startWorkers(zeebe, cfg, workerDeps{
		people:      people,
		matches:     matches,
		tracker:     tracker,
		verifier:    verifier,
		recommender: recommender,
		sender:      sender,
		conversions: conversions,
	}, obs, log)
	if missing := reg.Unregistered(started...); len(missing) > 0 {
		log.Warn("workers started without a registry entry", map[string]interface{}{"taskTypes": missing})
	}
	zapLog.Info("Workers registered", zap.Int("count", len(started)))

	// --- HTTP API ---
	apiDeps := api.Deps{
		Leads:       people,
		Therapists:  therapists,
		Matches:     matches,
		Errors:      eventStore,
		Verifier:    verifier,
		Recommender: recommender,
		Workflow:    zeebe,
		Tracker:     tracker,
		Stats: func(ctx context.Context, since time.Time) (*store.Stats, error) {
			return store.LoadStats(ctx, pg.DB, since)
		},
		Registry: reg,
		Checks:   checks,
	}
	if dir != nil {
		apiDeps.Directory = dir
	}
	server := api.NewServer(api.Options{
		AdminToken:      cfg.HTTP.AdminToken,
		LeadProcessID:   cfg.Camunda.LeadProcessID,
		VerifiedMessage: cfg.Camunda.VerifiedMessage,
		MaxResults:      cfg.Matching.MaxResults,
	}, apiDeps, log)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      server.Handler(),
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := tracker.Wait(shutdownCtx); err != nil {
		zapLog.Warn("Pending events dropped", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("Observability shutdown failed", zap.Error(err))
	}
	_ = rdb.Close()
	_ = pg.Close()

	zapLog.Info("Matching platform stopped")
}

// deployProcesses deploys every BPMN file in dir. An empty dir is skipped.
func deployProcesses(ctx context.Context, zeebe *camunda.Client, dir string, log logger.Logger) error {
	if dir == "" {
		return nil
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.bpmn"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		log.Warn("no BPMN files found", map[string]interface{}{"dir": dir})
		return nil
	}
	ids, err := zeebe.DeployResources(ctx, paths...)
	if err != nil {
		return err
	}
	log.Info("processes deployed", map[string]interface{}{"processIds": ids})
	return nil
}

// newSender builds the notification sender. Channels disabled in config log instead of send.
func newSender(ctx context.Context, cfg *config.Config, log logger.Logger) (*notification.Sender, error) {
	awsCfg := cfg.Integrations.AWS

	var email notification.EmailAPI
	var sms notification.SMSAPI
	if awsCfg.SES.Enabled || awsCfg.SNS.Enabled {
		sdkCfg, err := aws.LoadConfig(ctx, awsCfg.Region)
		if err != nil {
			return nil, err
		}
		if awsCfg.SES.Enabled {
			email = aws.NewSESClient(sdkCfg)
		}
		if awsCfg.SNS.Enabled {
			sms = aws.NewSNSClient(sdkCfg)
		}
	}

	return notification.NewSender(notification.SenderConfig{
		FromEmail:   awsCfg.SES.FromEmail,
		SMSSenderID: awsCfg.SNS.SenderID,
	}, email, sms, nil, log), nil
}

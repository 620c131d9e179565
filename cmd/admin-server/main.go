// cmd/admin-server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taqyim/internal/auth"
	awsclients "taqyim/internal/common/aws"
	"taqyim/internal/common/config"
	"taqyim/internal/common/database"
	"taqyim/internal/common/logger"
	"taqyim/internal/common/observability"
	"taqyim/internal/criteria"
	"taqyim/internal/excel"
	"taqyim/internal/notify"
	"taqyim/internal/server"
	"taqyim/internal/store"
	"taqyim/internal/taxonomy"
	"taqyim/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
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

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting admin server...",
		zap.String("app", cfg.App.Name),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New("admin-server")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- PostgreSQL document store ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	docStore := store.NewPostgresStore(pg)
	if err := docStore.Migrate(ctx); err != nil {
		zapLog.Fatal("document schema migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected and migrated")

	// --- Elasticsearch (optional; search degrades when absent) ---
	var indexer *store.SearchIndexer
	if cfg.Database.Elasticsearch.GetURL() != "" {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Warn("elasticsearch unavailable, search disabled", zap.Error(err))
		} else {
			indexer = store.NewSearchIndexer(esClient, log)
			zapLog.Info("Elasticsearch connected")
		}
	}

	// --- Redis sessions ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected")

	sessions := auth.NewRedisSessionStore(rdb, config.SessionTTL(cfg), log)
	identity := auth.NewIdentityClient(cfg.Auth)

	// --- Services ---
	var taxIndexer taxonomy.Indexer
	if indexer != nil {
		taxIndexer = indexer
	}
	taxSvc := taxonomy.NewService(docStore, taxIndexer, log)
	critSvc := criteria.NewService(docStore, log)

	// --- Import templates ---
	var templates *registry.TemplateRegistry
	if cfg.Import.TemplateRegistryPath != "" {
		templates, err = registry.LoadRegistry(cfg.Import.TemplateRegistryPath)
		if err != nil {
			zapLog.Fatal("template registry load failed", zap.Error(err))
		}
		if err := templates.Validate(); err != nil {
			zapLog.Fatal("template registry invalid", zap.Error(err))
		}
		zapLog.Info("Template registry loaded", zap.Int("templates", len(templates.Templates)))
	}

	var importer *excel.Importer
	var exporter *excel.Exporter
	if templates != nil {
		importer = excel.NewImporter(taxSvc, templates, cfg.Import, log)
	}
	exporter = excel.NewExporter(taxSvc, critSvc, log)

	// --- Notifications (optional) ---
	var notifier *notify.Notifier
	if cfg.Notifications.Email.Enabled || cfg.Notifications.SMS.Enabled {
		var email notify.EmailSender
		var sms notify.SMSPublisher
		if cfg.Notifications.Email.Enabled {
			sesClient, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("ses client failed", zap.Error(err))
			}
			email = sesClient
		}
		if cfg.Notifications.SMS.Enabled {
			snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Fatal("sns client failed", zap.Error(err))
			}
			sms = snsClient
		}
		notifier = notify.NewNotifier(email, sms, cfg.Notifications, log)
	}

	srv := server.New(*cfg, server.Deps{
		Taxonomy: taxSvc,
		Criteria: critSvc,
		Search:   indexer,
		Importer: importer,
		Exporter: exporter,
		Registry: templates,
		Sessions: sessions,
		Identity: identity,
		Notifier: notifier,
	}, log)

	// pprof on a local-only listener.
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			zapLog.Warn("pprof listener stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		zapLog.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zapLog.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}
	zapLog.Info("admin server stopped")
}

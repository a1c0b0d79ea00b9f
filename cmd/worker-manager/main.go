// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"edu-content-workers/internal/common/camunda"
	"edu-content-workers/internal/common/config"
	"edu-content-workers/internal/common/database"
	"edu-content-workers/internal/common/genai"
	"edu-content-workers/internal/common/logger"
	"edu-content-workers/internal/common/observability"
	"edu-content-workers/internal/store"

	gfc "edu-content-workers/internal/workers/generation/generate-flashcards"
	gmp "edu-content-workers/internal/workers/generation/generate-mealplan"
	gq "edu-content-workers/internal/workers/generation/generate-quiz"
	grc "edu-content-workers/internal/workers/generation/generate-recipe"
	gtp "edu-content-workers/internal/workers/generation/generate-training-program"
	grq "edu-content-workers/internal/workers/generation/grade-quiz"
	stp "edu-content-workers/internal/workers/generation/save-training-program"
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

// registrar builds handlers and opens one job worker per enabled task type.
type registrar struct {
	cfg     *config.Config
	zeebe   *camunda.Client
	log     *zap.Logger
	workers []worker.JobWorker
}

func (r *registrar) start(taskType string, build func() (worker.JobHandler, error)) {
	wcfg := config.GetWorkerConfig(r.cfg, taskType)
	if !wcfg.Enabled {
		r.log.Info("worker disabled", zap.String("taskType", taskType))
		return
	}

	handler, err := build()
	if err != nil {
		r.log.Fatal("worker setup failed", zap.String("taskType", taskType), zap.Error(err))
	}
	r.workers = append(r.workers, camunda.StartWorker(r.zeebe.GetClient(), taskType, wcfg, handler, r.log))
}

func (r *registrar) closeAll() {
	for _, w := range r.workers {
		w.Close()
		w.AwaitClose()
	}
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
	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClientWithConfig(camunda.ConfigFromApp(cfg.Camunda))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	defer zeebe.Close()
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
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
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Text generator ---
	generator := genai.NewFromConfig(cfg.APIs.GenAI)
	if generator == nil {
		zapLog.Warn("apis.genai.base_url is empty, workers will use template content")
	} else {
		zapLog.Info("Text generator configured", zap.String("model", cfg.APIs.GenAI.Model))
	}

	st := store.New(pg)
	drafts := store.NewDrafts(redis, cfg.Drafts.KeyPrefix, cfg.DraftTTL())

	// --- Workers ---
	reg := &registrar{cfg: cfg, zeebe: zeebe, log: zapLog}

	reg.start(gq.TaskType, func() (worker.JobHandler, error) {
		h, err := gq.NewHandler(gq.HandlerOptions{AppConfig: cfg, Generator: generator, Store: st, Logger: log, Observability: obs})
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	})

	reg.start(grq.TaskType, func() (worker.JobHandler, error) {
		h, err := grq.NewHandler(grq.HandlerOptions{AppConfig: cfg, Store: st, Logger: log, Observability: obs})
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	})

	reg.start(gfc.TaskType, func() (worker.JobHandler, error) {
		h, err := gfc.NewHandler(gfc.HandlerOptions{AppConfig: cfg, Generator: generator, Store: st, Logger: log, Observability: obs})
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	})

	reg.start(gmp.TaskType, func() (worker.JobHandler, error) {
		h, err := gmp.NewHandler(gmp.HandlerOptions{AppConfig: cfg, Generator: generator, Logger: log, Observability: obs})
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	})

	reg.start(grc.TaskType, func() (worker.JobHandler, error) {
		h, err := grc.NewHandler(grc.HandlerOptions{AppConfig: cfg, Generator: generator, Store: st, Logger: log, Observability: obs})
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	})

	reg.start(gtp.TaskType, func() (worker.JobHandler, error) {
		h, err := gtp.NewHandler(gtp.HandlerOptions{AppConfig: cfg, Generator: generator, Drafts: drafts, Logger: log, Observability: obs})
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	})

	reg.start(stp.TaskType, func() (worker.JobHandler, error) {
		h, err := stp.NewHandler(stp.HandlerOptions{AppConfig: cfg, Store: st, Drafts: drafts, Logger: log, Observability: obs})
		if err != nil {
			return nil, err
		}
		return h.Handle, nil
	})

	zapLog.Info("Workers registered", zap.Int("count", len(reg.workers)))

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{"status": "healthy"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]string{"zeebe": "ok", "postgres": "ok", "redis": "ok"}
		status := http.StatusOK
		for name, check := range map[string]func(context.Context) error{
			"zeebe":    zeebe.HealthCheck,
			"postgres": pg.Ping,
			"redis":    redis.Ping,
		} {
			if err := check(checkCtx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}
		writeStatus(w, status, checks)
	})
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	reg.closeAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped")
}

func writeStatus(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

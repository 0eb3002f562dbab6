// cmd/sync-manager/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"formsync/internal/common/aws"
	"formsync/internal/common/config"
	"formsync/internal/common/logger"
	"formsync/internal/common/observability"
	"formsync/internal/dedup"
	"formsync/internal/engine"
	"formsync/internal/google"
	"formsync/internal/httpapi"
	"formsync/internal/scheduler"
	"formsync/internal/sink"
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

	zapLog.Info("Starting sync manager...",
		zap.String("version", cfg.App.Version),
		zap.Int("sources", len(cfg.Sources)),
	)

	obs := observability.New("sync-manager")
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Init dedup store with retry ---
	var (
		store      dedup.Store
		closeStore func() error
	)
	err = retryWithBackoff(func() error {
		var err error
		store, closeStore, err = dedup.Open(cfg.Store, log)
		if err != nil {
			return err
		}
		return store.Init(ctx)
	}, 10, 2*time.Second, zapLog, "dedup store initialization")
	if err != nil {
		zapLog.Fatal("dedup store failed after retries", zap.Error(err))
	}
	defer closeStore()
	zapLog.Info("Dedup store ready", zap.String("backend", cfg.Store.Backend))

	// --- Source clients ---
	timeout := config.GetDuration(cfg.Google.Timeout)
	forms := google.NewFormsClient(cfg.Google.FormsBaseURL, cfg.Google.AccessToken, timeout)
	sheets := google.NewSheetsClient(cfg.Google.SheetsBaseURL, cfg.Google.AccessToken, timeout)

	// --- Delivery sinks ---
	sinks := map[string]sink.Sink{
		"export": sink.NewExportSink(cfg.Export.Dir, log),
	}
	if cfg.Notify.Discord.WebhookURL != "" {
		sinks["discord"] = sink.NewDiscordSink(
			cfg.Notify.Discord.WebhookURL,
			cfg.Notify.Discord.EmbedColor,
			config.GetDuration(cfg.Notify.Discord.Timeout),
			log,
		)
	}
	if cfg.Notify.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notify.Email.Region)
		if err != nil {
			zapLog.Fatal("ses client failed", zap.Error(err))
		}
		sinks["email"] = sink.NewEmailSink(sesClient, cfg.Notify.Email.From, cfg.Notify.Email.To, log)
	}

	eng := engine.New(forms, sheets, store, sinks, log)
	sched := scheduler.New(eng, cfg.Sources, scheduler.NewRealClock(), log, obs)

	// --- HTTP server (downloads, health, metrics) ---
	srv := httpapi.NewServer(fmt.Sprintf(":%d", cfg.HTTP.Port), cfg.Export.Dir, store, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Sync manager started")
	sched.Run(ctx)

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("http shutdown failed", zap.Error(err))
	}
	zapLog.Info("Sync manager stopped")
}

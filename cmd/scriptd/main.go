// Command scriptd serves script generation over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/uhyunpark/scriptgen/params"
	"github.com/uhyunpark/scriptgen/pkg/api"
	"github.com/uhyunpark/scriptgen/pkg/app/workload"
	"github.com/uhyunpark/scriptgen/pkg/sink"
	"github.com/uhyunpark/scriptgen/pkg/storage"
	"github.com/uhyunpark/scriptgen/pkg/util"
)

func main() {
	envPath := flag.String("env", "", "path to .env file")
	flag.Parse()

	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv(*envPath)

	logFile := cfg.Log.File
	if logFile == "" {
		logFile = "data/scriptd.log"
	}
	logger, err := util.NewLoggerWithFile(logFile, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile, "level", cfg.Log.Level)

	// Requests without a profile use the SCRIPTGEN_* generation settings.
	profiles, err := params.LoadProfilesFor(cfg)
	if err != nil {
		sugar.Fatalw("profiles_load_failed", "path", cfg.ProfilesPath, "err", err)
	}

	scope, err := workload.ParseScope(cfg.Generation.Scope)
	if err != nil {
		sugar.Fatalw("invalid_scope", "err", err)
	}

	// ---- Sinks ----
	sinks := []sink.Sink{sink.NewFileSink(cfg.Generation.OutDir)}
	if len(cfg.Kafka.Brokers) > 0 {
		ks := sink.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer ks.Close()
		sinks = append(sinks, ks)
		sugar.Infow("kafka_sink_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	appOpts := []workload.Option{
		workload.WithScope(scope),
		workload.WithSinks(sinks...),
		workload.WithMaxTransactions(cfg.Generation.MaxTransactions),
		workload.WithLogger(sugar),
	}
	var serverOpts []api.ServerOption

	// ---- Manifest store and journal ----
	if cfg.Storage.Path != "" {
		store, err := storage.NewManifestStore(cfg.Storage.Path)
		if err != nil {
			sugar.Fatalw("manifest_store_open_failed", "path", cfg.Storage.Path, "err", err)
		}
		defer store.Close()
		appOpts = append(appOpts, workload.WithStore(store))
		serverOpts = append(serverOpts, api.WithRunStore(store))

		journal, err := storage.NewJournal(filepath.Join(filepath.Dir(cfg.Storage.Path), "journal.log"))
		if err != nil {
			sugar.Fatalw("journal_open_failed", "err", err)
		}
		defer journal.Close()
		serverOpts = append(serverOpts, api.WithJournal(journal))
	} else {
		sugar.Info("manifest_store_disabled - runs will not be recorded")
	}

	app := workload.New(appOpts...)

	serverOpts = append(serverOpts,
		api.WithAllowedOrigins(cfg.API.AllowedOrigins),
		api.WithLogger(sugar),
	)
	server := api.NewServer(app, profiles, serverOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sugar.Infow("scriptd_starting",
		"addr", cfg.API.Addr,
		"scope", scope,
		"out_dir", cfg.Generation.OutDir,
		"profiles", len(profiles),
		"max_transactions", cfg.Generation.MaxTransactions,
	)

	if err := server.Start(ctx, cfg.API.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Errorw("api_server_failed", "err", err)
		return
	}
	sugar.Info("scriptd_stopped")
}

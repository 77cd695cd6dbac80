// Command veritas answers questions from a tenant's own pages with cited,
// validated claims.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/veritas/internal/adapters/driven/ai"
	"github.com/custodia-labs/veritas/internal/adapters/driven/config/env"
	"github.com/custodia-labs/veritas/internal/adapters/driven/config/file"
	"github.com/custodia-labs/veritas/internal/adapters/driven/metrics"
	"github.com/custodia-labs/veritas/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/veritas/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/veritas/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/veritas/internal/adapters/driving/cli"
	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
	"github.com/custodia-labs/veritas/internal/core/ports/driving"
	"github.com/custodia-labs/veritas/internal/core/services"
	"github.com/custodia-labs/veritas/internal/logger"
	"github.com/custodia-labs/veritas/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := env.LoadDotEnv(); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())
	cli.SetVersion(version)

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	env.Apply(settings)

	svcs := cli.Services{Settings: settingsService}
	if err := services.ValidateSettings(settings); err != nil {
		// Settings commands still work so the configuration can be fixed.
		logger.Warn("answer services disabled: %v", err)
		cli.SetServices(svcs)
		return cli.ExecuteContext(ctx)
	}

	store, err := openStorage(ctx, settings.Storage)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	recorder := metrics.NewRecorder()
	providers := ai.NewProviderRegistry(settings)

	answerOpts := []services.AnswerOption{services.WithAnswerMetrics(recorder)}
	if prompts, err := file.NewPromptStore(""); err != nil {
		logger.Warn("using built-in prompts: %v", err)
	} else {
		answerOpts = append(answerOpts, services.WithPromptStore(prompts))
	}

	retrieval := services.NewRetrievalService(store, providers, services.WithRetrievalMetrics(recorder))
	answer, err := services.NewAnswerService(store, retrieval, providers, settings.Answer, settings.Policy, answerOpts...)
	if err != nil {
		return fmt.Errorf("creating answer service: %w", err)
	}

	sectionizers := postprocessors.NewDefaultRegistry()
	newIndexer := func(name string) (driving.IndexingService, error) {
		sectionizer, err := sectionizers.Build(name, nil)
		if err != nil {
			return nil, err
		}
		return services.NewIndexingService(store, providers, sectionizer), nil
	}
	indexing, err := newIndexer(postprocessors.Headings)
	if err != nil {
		return err
	}

	svcs.Retrieval = retrieval
	svcs.Answer = answer
	svcs.Indexing = indexing
	svcs.NewIndexer = newIndexer
	svcs.MetricsHandler = recorder.Handler()
	svcs.HTTPObserver = recorder
	cli.SetServices(svcs)

	return cli.ExecuteContext(ctx)
}

func openStorage(ctx context.Context, cfg domain.StorageSettings) (driven.ScopeProvider, error) {
	switch cfg.Backend {
	case domain.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return store, nil
	case domain.StorageMemory:
		return memory.NewStore(), nil
	default:
		store, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return store, nil
	}
}

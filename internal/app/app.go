// Package app assembles the pipeline and its backends from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hdbsearch/internal/config"
	"hdbsearch/internal/district"
	"hdbsearch/internal/gateway"
	"hdbsearch/internal/llm"
	"hdbsearch/internal/repository"
	"hdbsearch/internal/service"
)

// App holds the wired components shared by the server and the CLI
type App struct {
	Pipeline *service.Pipeline
	Gateway  *gateway.Gateway

	closers []func() error
}

// New wires every component named by cfg. Nothing contacts the tool service
// until the first query.
func New(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger) (*App, error) {
	a := &App{}

	districts, err := district.Load(cfg.Pipeline.DistrictsFile)
	if err != nil {
		return nil, fmt.Errorf("load district table: %w", err)
	}
	logger.Info("✅ District table loaded", "districts", districts.Len())

	var repo *repository.PostgresRepository
	if cfg.UsesPostgres() {
		repo, err = repository.NewPostgresRepository(
			cfg.GetPostgreSQLDSN(),
			cfg.PostgreSQL.MaxConnections,
			cfg.PostgreSQL.MaxIdleConnections,
		)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		logger.Info("✅ Connected to PostgreSQL database")
	}

	loader, err := a.toolLoader(cfg, version, repo)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Gateway = gateway.New(loader,
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithLogger(logger),
	)
	logger.Info("✅ Tool gateway configured", "mode", cfg.Gateway.Mode, "url", cfg.Gateway.URL)

	completer, err := llm.New(ctx, cfg, logger)
	if err != nil {
		if !errors.Is(err, llm.ErrDisabled) {
			a.Close()
			return nil, err
		}
		// Stages degrade to empty intents and fallback summaries
		logger.Warn("⚠️  LLM is disabled - intent extraction and summaries will fall back", "provider", cfg.LLM.Provider)
		completer = llm.Disabled{}
	}

	var recorder service.RunRecorder
	if repo != nil && cfg.PostgreSQL.RunLog {
		recorder = repo
	}

	a.Pipeline = service.New(service.Dependencies{
		Completer: completer,
		Tools:     a.Gateway,
		Districts: districts,
		Defaults: service.RetrievalDefaults{
			District:     cfg.Pipeline.DefaultDistrict,
			UnitType:     cfg.Pipeline.DefaultUnitType,
			PriceCeiling: cfg.Pipeline.DefaultPriceCeiling,
		},
		Enrich: service.EnrichOptions{
			DefaultRadius: cfg.Pipeline.DefaultRadius,
			Concurrency:   cfg.Pipeline.EnrichConcurrency,
			RPS:           cfg.Pipeline.EnrichRPS,
		},
		Recorder: recorder,
		Logger:   logger,
	})
	logger.Info("✅ Pipeline initialized", "stages", a.Pipeline.Stages())

	return a, nil
}

func (a *App) toolLoader(cfg *config.Config, version string, repo *repository.PostgresRepository) (gateway.Loader, error) {
	switch cfg.Gateway.Mode {
	case config.GatewayToolbox:
		return gateway.NewToolboxLoader(cfg.Gateway.URL, cfg.Gateway.Toolset, cfg.Gateway.Timeout), nil
	case config.GatewayMCP:
		loader := gateway.NewMCPLoader(cfg.Gateway.URL, version, cfg.Gateway.Timeout)
		a.closers = append(a.closers, loader.Close)
		return loader, nil
	case config.GatewayPostgres:
		if repo == nil {
			return nil, errors.New("postgres gateway requires a database connection")
		}
		return repository.NewToolLoader(repo), nil
	default:
		return nil, fmt.Errorf("unknown gateway mode %q", cfg.Gateway.Mode)
	}
}

// Close releases backend connections in reverse order of creation
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

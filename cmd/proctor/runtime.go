package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edtools/proctor/internal/checkpoint"
	"github.com/edtools/proctor/internal/config"
	"github.com/edtools/proctor/internal/grading"
	"github.com/edtools/proctor/internal/llm"
	"github.com/edtools/proctor/internal/workflow"
	"github.com/edtools/proctor/pkg/database"
	"github.com/edtools/proctor/pkg/lifecycle"
)

// buildRuntime composes the workflow runtime from configuration:
// model client, grading service connection, and checkpoint store, with
// shutdown hooks registered on the lifecycle coordinator.
func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger, lc *lifecycle.Coordinator) (*workflow.Runtime, error) {
	client, err := llm.Resolve(cfg.Agent.Overrides(), logger)
	if err != nil {
		return nil, err
	}

	service, err := connectGrading(ctx, cfg, logger, lc)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg, logger, lc)
	if err != nil {
		return nil, err
	}

	return &workflow.Runtime{
		Client:  client,
		Grading: service,
		Store:   store,
		Budgets: workflow.Budgets{
			Default:  cfg.Workflow.MaxIterations,
			Validate: cfg.Workflow.ValidateIterations,
			Email:    cfg.Workflow.EmailIterations,
		},
		Logger: logger,
	}, nil
}

func connectGrading(ctx context.Context, cfg *config.Config, logger *slog.Logger, lc *lifecycle.Coordinator) (grading.Service, error) {
	if !cfg.Service.Configured() {
		return nil, fmt.Errorf("grading service not configured: set %s or the [service] config section", config.EnvMCPServerPath)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Service.StartupTimeoutDuration())
	defer cancel()

	service, err := grading.Connect(connectCtx, cfg.Service.Command, cfg.Service.Args, logger)
	if err != nil {
		return nil, fmt.Errorf("connect grading service: %w", err)
	}

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		if err := service.Close(); err != nil {
			logger.Error("close grading service", "error", err)
		}
	})

	return service, nil
}

func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger, lc *lifecycle.Coordinator) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Backend {
	case config.BackendMemory:
		return checkpoint.NewMemoryStore(), nil

	case config.BackendBadger:
		store, err := checkpoint.NewBadgerStore(cfg.Checkpoint.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("open checkpoint store: %w", err)
		}
		lc.OnShutdown(func() {
			<-lc.Context().Done()
			if err := store.Close(); err != nil {
				logger.Error("close checkpoint store", "error", err)
			}
		})
		return store, nil

	case config.BackendPostgres:
		sys, err := database.New(&cfg.Checkpoint.Database, logger)
		if err != nil {
			return nil, err
		}
		if err := sys.Start(lc); err != nil {
			return nil, fmt.Errorf("start database: %w", err)
		}
		return checkpoint.NewPostgresStore(ctx, sys, logger)

	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Checkpoint.Backend)
	}
}

// Package app wires the hrmate components into a running application.
//
// Setup builds the dependency graph in order (tracing, database,
// stores, model, agents, orchestrator, HTTP server) and returns an App
// whose Close releases everything in reverse. Construction failures
// clean up whatever was already initialized before returning.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrmate/hrmate/internal/api"
	"github.com/hrmate/hrmate/internal/config"
	"github.com/hrmate/hrmate/internal/leave"
	"github.com/hrmate/hrmate/internal/log"
	"github.com/hrmate/hrmate/internal/memory"
	"github.com/hrmate/hrmate/internal/orchestrator"
	"github.com/hrmate/hrmate/internal/session"
)

// App holds the initialized application components.
type App struct {
	Config *config.Config
	Logger log.Logger

	Pool     *pgxpool.Pool
	Genkit   *genkit.Genkit
	Sessions *session.Store
	Memory   *memory.Bridge
	Leave    *leave.Service

	Orchestrator *orchestrator.Orchestrator
	Server       *api.Server

	otelShutdown func(context.Context) error
}

// closeTimeout bounds the trace exporter flush during shutdown.
const closeTimeout = 5 * time.Second

// Close releases resources in reverse initialization order. Safe to
// call more than once and on a partially initialized App.
func (a *App) Close() error {
	var errs []error

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := a.otelShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracing: %w", err))
		}
		cancel()
		a.otelShutdown = nil
	}

	if a.Pool != nil {
		a.Pool.Close()
		a.Pool = nil
	}

	return errors.Join(errs...)
}

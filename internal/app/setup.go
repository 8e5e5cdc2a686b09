package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hrmate/hrmate/db"
	"github.com/hrmate/hrmate/internal/agent"
	"github.com/hrmate/hrmate/internal/api"
	"github.com/hrmate/hrmate/internal/config"
	"github.com/hrmate/hrmate/internal/database"
	"github.com/hrmate/hrmate/internal/hrms"
	"github.com/hrmate/hrmate/internal/leave"
	"github.com/hrmate/hrmate/internal/memory"
	"github.com/hrmate/hrmate/internal/observability"
	"github.com/hrmate/hrmate/internal/orchestrator"
	"github.com/hrmate/hrmate/internal/policy"
	"github.com/hrmate/hrmate/internal/session"
)

// Setup creates and initializes the application.
// Returns an App with embedded cleanup — call Close() to release.
func Setup(ctx context.Context, cfg *config.Config) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	logger := slog.Default()
	a := &App{Config: cfg, Logger: logger}

	// On error, clean up everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	otelShutdown, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.otelShutdown = otelShutdown

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.Pool = pool

	sessions, err := session.NewStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating session store: %w", err)
	}
	a.Sessions = sessions

	mem, err := memory.NewBridge(sessions, cfg.MemoryWindow, logger)
	if err != nil {
		return nil, fmt.Errorf("creating memory bridge: %w", err)
	}
	a.Memory = mem

	leaveStore, err := leave.NewPGStore(pool, logger)
	if err != nil {
		return nil, fmt.Errorf("creating leave store: %w", err)
	}
	leaveSvc, err := leave.NewService(leaveStore, logger, nil)
	if err != nil {
		return nil, fmt.Errorf("creating leave service: %w", err)
	}
	a.Leave = leaveSvc

	g, err := provideGenkit(ctx)
	if err != nil {
		return nil, err
	}
	a.Genkit = g

	gen, err := agent.NewGenkitGenerator(g, cfg.ModelName)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}

	orch, err := provideOrchestrator(cfg, leaveSvc, gen, logger)
	if err != nil {
		return nil, err
	}
	a.Orchestrator = orch

	server, err := api.NewServer(api.ServerConfig{
		Logger:     logger,
		Processor:  orch,
		Sessions:   sessions,
		Memory:     mem,
		Leave:      leaveSvc,
		Pool:       pool,
		TrustProxy: cfg.TrustProxy,
		RateBurst:  cfg.RateBurst,
	})
	if err != nil {
		return nil, fmt.Errorf("creating API server: %w", err)
	}
	a.Server = server

	return a, nil
}

// provideDBPool runs migrations and opens the shared connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. The
// plugin reads GEMINI_API_KEY from the environment on first generate,
// so a missing key fails at request time, not here.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, fmt.Errorf("initializing genkit: nil instance")
	}
	return g, nil
}

// provideOrchestrator builds the three domain agents and the router
// over them. Attendance and payroll read from the stub HRMS backend;
// policy questions go to the built-in corpus.
func provideOrchestrator(cfg *config.Config, leaveSvc *leave.Service, gen agent.Generator, logger *slog.Logger) (*orchestrator.Orchestrator, error) {
	base := agent.Config{
		MaxIterations: cfg.MaxIterations,
		Logger:        logger,
	}

	leaveAgent, err := agent.NewLeaveAgent(leaveSvc, gen, base)
	if err != nil {
		return nil, fmt.Errorf("creating leave agent: %w", err)
	}

	hr := hrms.NewStub(nil)
	attendanceAgent, err := agent.NewAttendanceAgent(hr, gen, base)
	if err != nil {
		return nil, fmt.Errorf("creating attendance agent: %w", err)
	}
	payrollAgent, err := agent.NewPayrollAgent(hr, gen, base)
	if err != nil {
		return nil, fmt.Errorf("creating payroll agent: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Leave:         leaveAgent,
		Attendance:    attendanceAgent,
		Payroll:       payrollAgent,
		Policies:      policy.NewCorpusSearcher(nil),
		Mode:          cfg.RouterMode,
		Generator:     gen,
		MaxIterations: cfg.MaxIterations,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}
	return orch, nil
}

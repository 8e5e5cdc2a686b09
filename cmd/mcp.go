package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/hrmate/hrmate/internal/agent"
	"github.com/hrmate/hrmate/internal/app"
	"github.com/hrmate/hrmate/internal/config"
	"github.com/hrmate/hrmate/internal/hrms"
	"github.com/hrmate/hrmate/internal/leave"
	"github.com/hrmate/hrmate/internal/mcp"
)

var flagEmployee string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Exposes the HR tools (leave, attendance, payroll) over the Model
Context Protocol so external clients can call them directly.

MCP transports carry no per-request identity, so every tool call runs
as the employee given by --employee (or HRMATE_MCP_EMPLOYEE).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

func init() {
	mcpCmd.Flags().StringVar(&flagEmployee, "employee", "", "employee ID the tools act as (or HRMATE_MCP_EMPLOYEE)")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP() error {
	employee := flagEmployee
	if employee == "" {
		employee = os.Getenv("HRMATE_MCP_EMPLOYEE")
	}
	if employee == "" {
		return fmt.Errorf("employee ID is required: pass --employee or set HRMATE_MCP_EMPLOYEE")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := slog.Default()
	logger.Info("starting MCP server", "version", Version, "employee", employee)

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	registries, err := buildRegistries(a.Leave)
	if err != nil {
		return err
	}

	mcpServer, err := mcp.NewServer(mcp.Config{
		Name:       "hrmate",
		Version:    Version,
		EmployeeID: employee,
		Registries: registries,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	logger.Info("MCP server ready", "transport", "stdio")

	if err := mcpServer.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	logger.Info("MCP server shut down gracefully")
	return nil
}

// buildRegistries assembles the tool registries served over MCP: the
// same tools the chat agents use, minus the agents themselves.
func buildRegistries(leaveSvc *leave.Service) ([]*agent.Registry, error) {
	leaveReg, err := agent.LeaveRegistry(leaveSvc)
	if err != nil {
		return nil, fmt.Errorf("building leave tools: %w", err)
	}

	hr := hrms.NewStub(nil)
	attendanceReg, err := agent.AttendanceRegistry(hr, nil)
	if err != nil {
		return nil, fmt.Errorf("building attendance tools: %w", err)
	}
	payrollReg, err := agent.PayrollRegistry(hr)
	if err != nil {
		return nil, fmt.Errorf("building payroll tools: %w", err)
	}

	return []*agent.Registry{leaveReg, attendanceReg, payrollReg}, nil
}

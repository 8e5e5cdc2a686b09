package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hrmate/hrmate/internal/config"
	"github.com/hrmate/hrmate/internal/database"
	"github.com/hrmate/hrmate/internal/session"
)

var flagSessionsEmployee string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage chat sessions",
}

func init() {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List an employee's sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd)
		},
	}
	listCmd.Flags().StringVar(&flagSessionsEmployee, "employee", "", "employee ID whose sessions to list")
	_ = listCmd.MarkFlagRequired("employee")

	sessionsCmd.AddCommand(listCmd)
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsShow(cmd, args[0])
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(cmd, args[0])
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "current",
		Short: "Print the current session ID",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsCurrent(cmd)
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "use <session-id>",
		Short: "Mark a session as current",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsUse(cmd, args[0])
		},
	})

	rootCmd.AddCommand(sessionsCmd)
}

// openSessionStore connects to the database without the rest of the
// application graph; the admin commands need the store only.
func openSessionStore(ctx context.Context) (*session.Store, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	store, err := session.NewStore(pool, slog.Default())
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("creating session store: %w", err)
	}
	return store, pool.Close, nil
}

func runSessionsList(cmd *cobra.Command) error {
	ctx := cmd.Context()
	store, cleanup, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sessions, err := store.Sessions(ctx, flagSessionsEmployee, 100, 0)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		cmd.Println("No sessions found.")
		return nil
	}

	current, err := session.LoadCurrentSessionID()
	if err != nil {
		return err
	}

	for _, s := range sessions {
		marker := " "
		if current != nil && *current == s.ID {
			marker = "*"
		}
		cmd.Printf("%s %s  %-40s  %s\n", marker, s.ID, truncate(s.Title, 40), formatTime(s.UpdatedAt))
	}
	return nil
}

func runSessionsShow(cmd *cobra.Command, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}

	ctx := cmd.Context()
	store, cleanup, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	s, err := store.Session(ctx, id)
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}
	msgs, err := store.Messages(ctx, id, 0)
	if err != nil {
		return fmt.Errorf("loading messages: %w", err)
	}

	cmd.Printf("Session:  %s\n", s.ID)
	cmd.Printf("Employee: %s\n", s.UserID)
	cmd.Printf("Title:    %s\n", s.Title)
	cmd.Printf("Created:  %s\n", formatTime(s.CreatedAt))
	cmd.Printf("Updated:  %s\n", formatTime(s.UpdatedAt))
	cmd.Printf("Messages: %d\n\n", len(msgs))

	for _, msg := range msgs {
		who := msg.Role
		if msg.Role == session.RoleAssistant && msg.AgentUsed != "" {
			who = fmt.Sprintf("%s (%s)", msg.Role, msg.AgentUsed)
		}
		cmd.Printf("[%s] %s\n%s\n\n", formatTime(msg.CreatedAt), who, msg.Content)
	}
	return nil
}

func runSessionsDelete(cmd *cobra.Command, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}

	ctx := cmd.Context()
	store, cleanup, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	// Drop the current-session pointer if it referenced the deleted one.
	current, err := session.LoadCurrentSessionID()
	if err == nil && current != nil && *current == id {
		if err := session.ClearCurrentSessionID(); err != nil {
			return err
		}
	}

	cmd.Printf("Deleted session %s\n", id)
	return nil
}

func runSessionsCurrent(cmd *cobra.Command) error {
	current, err := session.LoadCurrentSessionID()
	if err != nil {
		return err
	}
	if current == nil {
		cmd.Println("No current session set.")
		return nil
	}
	cmd.Println(current.String())
	return nil
}

func runSessionsUse(cmd *cobra.Command, rawID string) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID %q: %w", rawID, err)
	}

	ctx := cmd.Context()
	store, cleanup, err := openSessionStore(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	// Verify the session exists before pointing the state file at it.
	if _, err := store.Session(ctx, id); err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	if err := session.SaveCurrentSessionID(id); err != nil {
		return err
	}
	cmd.Printf("Current session set to %s\n", id)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// formatTime renders timestamps relative for recent activity and
// absolute otherwise.
func formatTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

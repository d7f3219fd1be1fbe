package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nminhdao/registrar/internal/control"
	"github.com/nminhdao/registrar/internal/core/domain"
)

var retryEventCmd = &cobra.Command{
	Use:   "retry-event [event_id]",
	Short: "Run one registration attempt for an event right now, bypassing the scheduler",
	Args:  cobra.ExactArgs(1),
	Run:   runRetryEvent,
}

func init() {
	rootCmd.AddCommand(retryEventCmd)
}

func runRetryEvent(cmd *cobra.Command, args []string) {
	eventID := args[0]
	cfg := loadConfig()

	app, err := control.NewRegistrar(cfg)
	if err != nil {
		slog.Error("Failed to initialize registrar", "error", err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer func() {
		_ = app.Stop(ctx)
	}()

	event, err := app.Events().GetByID(ctx, eventID)
	if err != nil {
		slog.Error("Failed to load event", "event_id", eventID, "error", err)
		os.Exit(1)
	}

	// A failed or manual event goes back to approved so the attempt can run.
	switch event.Status {
	case domain.EventStatusApproved:
	case domain.EventStatusFailed, domain.EventStatusManualRequired:
		if err := app.Events().UpdateStatus(ctx, event.ID, domain.EventStatusApproved, ""); err != nil {
			slog.Error("Failed to requeue event", "event_id", eventID, "error", err)
			os.Exit(1)
		}
		event.Status = domain.EventStatusApproved
	default:
		fmt.Printf("Event %s is %s; nothing to retry\n", event.ID, event.Status)
		return
	}

	attempt := app.Orchestrator().RegisterForEvent(ctx, event)

	if attempt.Success {
		fmt.Printf("Registered: %s (confirmation %s)\n", event.Title, attempt.ConfirmationID)
		return
	}
	fmt.Printf("Attempt failed: %s\n", attempt.Message)
	fmt.Printf("  strategy: %s\n  category: %s\n  manual action required: %t\n",
		attempt.Strategy, attempt.Category, attempt.RequiresManual)
}

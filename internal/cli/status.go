package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nminhdao/registrar/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show event counts by status and recent attempts",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	rows, err := db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM events GROUP BY status ORDER BY status`)
	if err != nil {
		slog.Error("Failed to query events", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = rows.Close()
	}()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "STATUS\tEVENTS")

	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\n", status, count)
	}
	_ = w.Flush()

	attempts, err := db.QueryContext(ctx, `
		SELECT event_id, strategy, success, error_category, attempted_at
		FROM registration_attempts
		ORDER BY attempted_at DESC
		LIMIT 10`)
	if err != nil {
		slog.Error("Failed to query attempts", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = attempts.Close()
	}()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "EVENT\tSTRATEGY\tOK\tCATEGORY\tAT")

	for attempts.Next() {
		var eventID, strategy, category string
		var success bool
		var at time.Time
		if err := attempts.Scan(&eventID, &strategy, &success, &category, &at); err != nil {
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n",
			eventID, strategy, success, category, at.Format(time.RFC3339))
	}
	_ = w.Flush()
}

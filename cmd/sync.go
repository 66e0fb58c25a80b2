package main

import (
	"context"
	"fmt"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Sync runs one snapshot-and-prune cycle with progress output.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	if err := r.requireStore(); err != nil {
		return err
	}

	asJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if asJSON {
				continue
			}
			switch update.Phase {
			case tasks.ResolveCatalog, tasks.ListPlaylists:
				r.writePlain("⟳ %s\n", update.Message)
			case tasks.Snapshot:
				r.writePlain("📸 %s\n", update.Message)
			case tasks.Prune:
				r.writePlain("🗑  %s\n", update.Message)
			}
		}
	}()

	report := r.engine.Run(ctx, models.TriggerManual, progressCh)
	close(progressCh)
	<-done

	if asJSON {
		return r.writeJSON(report, pretty)
	}

	if report.Error != "" {
		return fmt.Errorf("sync failed: %s", report.Error)
	}

	created, skipped, failed := 0, 0, 0
	for _, outcome := range report.Results {
		switch outcome.Status() {
		case "created":
			created++
		case "skipped":
			skipped++
		default:
			failed++
		}
	}

	r.writePlainln("")
	r.writePlainHeader("Sync Complete")
	r.writePlain("Created: %d  Skipped: %d  Failed: %d\n", created, skipped, failed)
	r.writePlain("Pruned: %d expired snapshot(s)\n", report.DeletedCount)

	if failed > 0 {
		r.writePlain("\nFailures:\n")
		for _, outcome := range report.Results {
			if outcome.Status() != "failed" {
				continue
			}
			name := outcome.Mix
			if name == "" {
				name = outcome.MixID
			}
			r.writePlain("  - %s: %s\n", name, outcome.Error)
		}
	}

	return nil
}

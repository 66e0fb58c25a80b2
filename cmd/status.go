package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// Status prints the durable status record from the last sync run.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	report, found, err := r.store.LastReport()
	if err != nil {
		return fmt.Errorf("failed to load status: %w", err)
	}
	if !found {
		r.writePlain("No sync has run yet\n")
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(report, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Last Sync")
	r.writePlain("When: %s\n", report.LastSync.Format(time.RFC3339))
	r.writePlain("Trigger: %s\n", report.Trigger)

	if report.Error != "" {
		r.writePlain("Failed: %s\n", report.Error)
		return nil
	}

	for _, outcome := range report.Results {
		switch outcome.Status() {
		case "created":
			r.writePlain("  ✓ %s → %s (%d tracks)\n", outcome.Mix, outcome.Playlist, outcome.Tracks)
		case "skipped":
			r.writePlain("  = %s (already exists)\n", outcome.Playlist)
		default:
			name := outcome.Mix
			if name == "" {
				name = outcome.MixID
			}
			r.writePlain("  ✗ %s: %s\n", name, outcome.Error)
		}
	}

	if report.DeletedCount > 0 {
		r.writePlain("Pruned %d snapshot(s):\n", report.DeletedCount)
		for _, name := range report.Deleted {
			r.writePlain("  - %s\n", name)
		}
	}

	return nil
}

// ConfigShow prints the current selection config.
func (r *Runner) ConfigShow(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	selection, err := r.store.Selection()
	if err != nil {
		return fmt.Errorf("failed to load selection: %w", err)
	}
	return r.writeJSON(selection, true)
}

// ConfigSet updates retention and/or the web PIN.
func (r *Runner) ConfigSet(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireStore(); err != nil {
		return err
	}

	changed := false

	if cmd.IsSet("retention") {
		selection, err := r.store.Selection()
		if err != nil {
			return fmt.Errorf("failed to load selection: %w", err)
		}
		selection.RetentionDays = int(cmd.Int("retention"))
		if err := r.store.SaveSelection(selection); err != nil {
			return fmt.Errorf("failed to save selection: %w", err)
		}

		saved, err := r.store.Selection()
		if err != nil {
			return err
		}
		r.writePlain("✓ Retention set to %d day(s)\n", saved.RetentionDays)
		changed = true
	}

	if cmd.IsSet("pin") {
		pin := cmd.String("pin")
		if err := r.store.SaveAccessPin(pin); err != nil {
			return fmt.Errorf("failed to save pin: %w", err)
		}
		if pin == "" {
			r.writePlain("✓ Web PIN cleared\n")
		} else {
			r.writePlain("✓ Web PIN set\n")
		}
		changed = true
	}

	if !changed {
		r.writePlain("Nothing to do: pass --retention and/or --pin\n")
	}
	return nil
}

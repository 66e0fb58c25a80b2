package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ferrova/tidalsnap/internal/catalog"
	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/ui"
	"github.com/urfave/cli/v3"
)

// Mixes lists the resolved mix catalog.
func (r *Runner) Mixes(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	if !r.session.IsValid() {
		return fmt.Errorf("%w: run 'tidalsnap auth login' first", shared.ErrNotConnected)
	}

	resolved, err := catalog.Resolve(ctx, r.session)
	if err != nil {
		return err
	}
	mixes := catalog.Sorted(resolved)

	if cmd.Bool("json") {
		return r.writeJSON(mixes, cmd.Bool("pretty"))
	}

	selected := map[string]bool{}
	if r.store != nil {
		if selection, err := r.store.Selection(); err == nil {
			for _, id := range selection.SelectedMixIDs {
				selected[id] = true
			}
		}
	}

	r.writePlainHeader(fmt.Sprintf("Tidal Mixes (%d)", len(mixes)))
	for _, mix := range mixes {
		marker := " "
		if selected[mix.ID] {
			marker = "✓"
		}
		r.writePlain("%s %s  (%s)\n", marker, mix.Title, mix.ID)
		if mix.SubTitle != "" {
			r.writePlain("    %s\n", mix.SubTitle)
		}
	}
	return nil
}

// Select chooses which mixes to snapshot. With --ids or --retention it
// applies the flags directly; otherwise it launches the interactive TUI.
func (r *Runner) Select(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}
	if err := r.requireStore(); err != nil {
		return err
	}
	if !r.session.IsValid() {
		return fmt.Errorf("%w: run 'tidalsnap auth login' first", shared.ErrNotConnected)
	}

	ids := cmd.String("ids")
	retention := cmd.Int("retention")

	if ids == "" && retention == 0 {
		return r.selectInteractive(ctx)
	}

	selection, err := r.store.Selection()
	if err != nil {
		return err
	}

	if ids != "" {
		resolved, err := catalog.Resolve(ctx, r.session)
		if err != nil {
			return err
		}

		parsed := []string{}
		for _, id := range strings.Split(ids, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, ok := resolved[id]; !ok {
				return fmt.Errorf("%w: %s", shared.ErrMixNotFound, id)
			}
			parsed = append(parsed, id)
		}
		selection.SelectedMixIDs = parsed
	}

	if retention != 0 {
		selection.RetentionDays = int(retention)
	}

	if err := r.store.SaveSelection(selection); err != nil {
		return fmt.Errorf("failed to save selection: %w", err)
	}

	saved, err := r.store.Selection()
	if err != nil {
		return err
	}
	r.writePlain("✓ Selection saved: %d mix(es), %d day retention\n", len(saved.SelectedMixIDs), saved.RetentionDays)
	return nil
}

// selectInteractive launches the bubbletea selection UI.
func (r *Runner) selectInteractive(ctx context.Context) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/tidalsnap-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	model := ui.NewModel(ctx, r.session, r.store)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

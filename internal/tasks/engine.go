package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ferrova/tidalsnap/internal/catalog"
	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/services"
	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/store"
)

const (
	// SnapshotDescription is written on every playlist the engine creates.
	// The retention scan keys on snapshotMarker being a substring of it:
	// playlists without the marker are never touched, whatever their name.
	SnapshotDescription = "Auto-synced from Tidal"
	snapshotMarker      = "Auto-synced"

	dateLayout = "2006-01-02"
)

// Engine performs the snapshot-and-prune cycle: materialize today's copy of
// each selected mix as a dated playlist, then delete snapshots older than
// the retention window.
//
// Run is synchronous and sequential. It is safe to re-invoke at any time;
// re-running after a failure is the only recovery mechanism. Concurrent
// invocations are an accepted race (both may observe the same playlist
// listing before either creates), arbitrated by the provider.
type Engine struct {
	session services.Session
	store   *store.Store
	logger  *log.Logger
	now     func() time.Time
}

// EngineOpts contains dependencies for creating an Engine.
type EngineOpts struct {
	Session services.Session
	Store   *store.Store
	Logger  *log.Logger
	Now     func() time.Time // test hook, defaults to time.Now
}

// NewEngine creates an Engine with the provided dependencies.
func NewEngine(opts EngineOpts) *Engine {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		session: opts.Session,
		store:   opts.Store,
		logger:  opts.Logger,
		now:     opts.Now,
	}
}

// SetLogger replaces the engine's logger. Used when logs move to a file
// while a TUI owns the terminal.
func (e *Engine) SetLogger(logger *log.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run executes one full sync cycle and returns its report. The report is
// also persisted as the latest status (full overwrite); a persist failure is
// logged but never fails the run.
//
// Fatal preconditions (no session, empty selection) short-circuit with a
// degenerate report before any provider call. Everything else is isolated
// per mix: one bad mix never blocks the others.
func (e *Engine) Run(ctx context.Context, trigger string, progress chan<- ProgressUpdate) *models.SyncReport {
	startedAt := e.now()

	if e.session == nil || !e.session.IsValid() {
		return e.finish(models.FatalReport(trigger, shared.ErrNotConnected.Error(), startedAt))
	}

	selection := models.DefaultSelection()
	if e.store != nil {
		var err error
		if selection, err = e.store.Selection(); err != nil {
			e.logger.Warn("failed to load selection, using defaults", "error", err)
		}
	}
	if len(selection.SelectedMixIDs) == 0 {
		return e.finish(models.FatalReport(trigger, shared.ErrNoSelection.Error(), startedAt))
	}

	e.sendProgress(progress, resolveUpdate())
	mixes, err := catalog.Resolve(ctx, e.session)
	if err != nil {
		e.logger.Error("catalog resolution failed", "error", err)
		return e.finish(models.FatalReport(trigger, err.Error(), startedAt))
	}

	e.sendProgress(progress, listPlaylistsUpdate())
	existing, err := e.session.Playlists(ctx)
	if err != nil {
		e.logger.Error("playlist listing failed", "error", err)
		return e.finish(models.FatalReport(trigger, err.Error(), startedAt))
	}
	existingNames := make(map[string]bool, len(existing))
	for _, pl := range existing {
		existingNames[pl.Name] = true
	}

	// One date for the whole run, however long it takes.
	today := startedAt.Format(dateLayout)

	results := make([]models.MixOutcome, 0, len(selection.SelectedMixIDs))
	for i, mixID := range selection.SelectedMixIDs {
		descriptor, found := mixes[mixID]
		if !found {
			e.logger.Warn("selected mix not in catalog", "mix_id", mixID)
			results = append(results, models.FailedOutcome(mixID, "", "not found"))
			continue
		}

		name := today + " " + descriptor.Title
		e.sendProgress(progress, snapshotUpdate(i+1, len(selection.SelectedMixIDs), descriptor.Title))

		if existingNames[name] {
			e.logger.Debug("snapshot already exists", "playlist", name)
			results = append(results, models.SkippedOutcome(descriptor.Title, name))
			continue
		}

		trackCount, err := e.snapshot(ctx, descriptor, name)
		if err != nil {
			e.logger.Error("snapshot failed", "mix", descriptor.Title, "error", err)
			results = append(results, models.FailedOutcome(mixID, descriptor.Title, err.Error()))
			continue
		}

		// Joining the set also guards two selected mixes sharing a title.
		existingNames[name] = true
		e.logger.Info("snapshot created", "playlist", name, "tracks", trackCount)
		results = append(results, models.CreatedOutcome(descriptor.Title, name, trackCount))
	}

	deleted := e.prune(ctx, startedAt, selection.RetentionDays, progress)

	report := &models.SyncReport{
		LastSync:     startedAt,
		Trigger:      trigger,
		Results:      results,
		Deleted:      deleted,
		DeletedCount: len(deleted),
	}
	return e.finish(report)
}

// snapshot copies a mix's current tracks into a new favorited playlist and
// returns the track count.
func (e *Engine) snapshot(ctx context.Context, descriptor models.MixDescriptor, name string) (int, error) {
	tracks, err := e.session.MixTracks(ctx, descriptor.ID)
	if err != nil {
		return 0, err
	}

	playlist, err := e.session.CreatePlaylist(ctx, name, SnapshotDescription)
	if err != nil {
		return 0, err
	}

	trackIDs := make([]string, len(tracks))
	for i, track := range tracks {
		trackIDs[i] = track.ID
	}
	if err := e.session.AddTracks(ctx, playlist.ID, trackIDs); err != nil {
		return 0, err
	}

	if err := e.session.FavoritePlaylist(ctx, playlist.ID); err != nil {
		return 0, err
	}
	return len(tracks), nil
}

// prune deletes expired snapshots and returns their names. Errors abort the
// remainder of the scan but never the run: deletions already made are kept
// and reported.
func (e *Engine) prune(ctx context.Context, today time.Time, retentionDays int, progress chan<- ProgressUpdate) []string {
	e.sendProgress(progress, pruneStartUpdate(retentionDays))

	deleted := []string{}
	// Fresh listing: the duplicate-check snapshot predates this run's
	// creations.
	playlists, err := e.session.Playlists(ctx)
	if err != nil {
		e.logger.Warn("retention scan aborted", "error", err)
		return deleted
	}

	base, err := time.Parse(dateLayout, today.Format(dateLayout))
	if err != nil {
		return deleted
	}
	cutoff := base.AddDate(0, 0, -retentionDays)

	for _, playlist := range playlists {
		date, ok := snapshotDate(playlist.Name)
		if !ok {
			continue
		}
		if !strings.Contains(playlist.Description, snapshotMarker) {
			continue
		}
		if !date.Before(cutoff) {
			continue
		}

		if err := e.session.DeletePlaylist(ctx, playlist.ID); err != nil {
			e.logger.Warn("retention scan aborted", "playlist", playlist.Name, "error", err)
			return deleted
		}
		e.logger.Info("expired snapshot deleted", "playlist", playlist.Name, "date", date.Format(dateLayout))
		e.sendProgress(progress, pruneDeleteUpdate(playlist.Name))
		deleted = append(deleted, playlist.Name)
	}
	return deleted
}

// snapshotDate extracts the snapshot date from a playlist name. The name
// must start with a 10-character ISO date ("2006-01-02") with literal
// dashes at positions 4 and 7; anything else is not a snapshot name.
func snapshotDate(name string) (time.Time, bool) {
	if len(name) < len(dateLayout) {
		return time.Time{}, false
	}
	prefix := name[:len(dateLayout)]
	if prefix[4] != '-' || prefix[7] != '-' {
		return time.Time{}, false
	}
	date, err := time.Parse(dateLayout, prefix)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// finish persists the report as the durable status and returns it.
func (e *Engine) finish(report *models.SyncReport) *models.SyncReport {
	if e.store != nil {
		if err := e.store.SaveReport(report); err != nil {
			e.logger.Warn("failed to persist sync report", "error", err)
		}
	}
	return report
}

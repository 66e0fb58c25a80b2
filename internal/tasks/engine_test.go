package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/store"
	fakes "github.com/ferrova/tidalsnap/internal/testing"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tidalsnap.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func fixedNow() time.Time {
	return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, session *fakes.FakeSession, st *store.Store) *Engine {
	t.Helper()
	return NewEngine(EngineOpts{
		Session: session,
		Store:   st,
		Now:     fixedNow,
	})
}

func dailyCatalog() []models.MixCategory {
	return []models.MixCategory{
		{
			Title: "Mixes for you",
			Items: []models.MixItem{
				{ID: "mixA", Title: "Daily Discovery", SubTitle: "Based on your listening"},
				{ID: "mixB", Title: "My New Arrivals", SubTitle: "Fresh releases"},
			},
		},
	}
}

func saveSelection(t *testing.T, st *store.Store, ids []string, retention int) {
	t.Helper()
	if err := st.SaveSelection(models.SelectionConfig{SelectedMixIDs: ids, RetentionDays: retention}); err != nil {
		t.Fatalf("failed to save selection: %v", err)
	}
}

func TestEngineRun_FatalPreconditions(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		session := &fakes.FakeSession{Invalid: true}
		st := newTestStore(t)
		saveSelection(t, st, []string{"mixA"}, 7)

		report := newTestEngine(t, session, st).Run(context.Background(), models.TriggerManual, nil)

		if report.Error != "not connected" {
			t.Errorf("expected error 'not connected', got %q", report.Error)
		}
		if len(session.Calls) != 0 {
			t.Errorf("expected zero provider calls, got %v", session.Calls)
		}
	})

	t.Run("no mixes selected", func(t *testing.T) {
		session := &fakes.FakeSession{Categories: dailyCatalog()}
		st := newTestStore(t)

		report := newTestEngine(t, session, st).Run(context.Background(), models.TriggerManual, nil)

		if report.Error != "no mixes selected" {
			t.Errorf("expected error 'no mixes selected', got %q", report.Error)
		}
		if len(session.Calls) != 0 {
			t.Errorf("expected zero provider calls, got %v", session.Calls)
		}

		persisted, found, err := st.LastReport()
		if err != nil || !found {
			t.Fatalf("fatal report should be persisted: found=%v err=%v", found, err)
		}
		if persisted.Error != "no mixes selected" {
			t.Errorf("persisted report error = %q", persisted.Error)
		}
	})
}

func TestEngineRun_EndToEnd(t *testing.T) {
	session := &fakes.FakeSession{
		Categories: dailyCatalog(),
		TracksByMix: map[string][]models.Track{
			"mixA": {
				{ID: "t1", Title: "One"},
				{ID: "t2", Title: "Two"},
				{ID: "t3", Title: "Three"},
			},
		},
	}
	st := newTestStore(t)
	saveSelection(t, st, []string{"mixA"}, 7)

	report := newTestEngine(t, session, st).Run(context.Background(), models.TriggerManual, nil)

	if report.Error != "" {
		t.Fatalf("unexpected fatal error: %q", report.Error)
	}
	if len(report.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(report.Results))
	}

	outcome := report.Results[0]
	if outcome.Status() != "created" {
		t.Errorf("expected created outcome, got %s (%+v)", outcome.Status(), outcome)
	}
	if outcome.Playlist != "2024-03-10 Daily Discovery" {
		t.Errorf("unexpected playlist name %q", outcome.Playlist)
	}
	if outcome.Tracks != 3 {
		t.Errorf("expected 3 tracks, got %d", outcome.Tracks)
	}
	if len(session.Favorited) != 1 {
		t.Errorf("snapshot should be favorited, got %v", session.Favorited)
	}
	if report.Trigger != models.TriggerManual {
		t.Errorf("trigger = %q", report.Trigger)
	}
	if report.DeletedCount != 0 {
		t.Errorf("expected no deletions, got %d", report.DeletedCount)
	}

	persisted, found, err := st.LastReport()
	if err != nil || !found {
		t.Fatalf("report should be persisted: found=%v err=%v", found, err)
	}
	if persisted.Results[0].Playlist != outcome.Playlist {
		t.Errorf("persisted report differs: %+v", persisted.Results[0])
	}
}

func TestEngineRun_Idempotence(t *testing.T) {
	session := &fakes.FakeSession{
		Categories: dailyCatalog(),
		TracksByMix: map[string][]models.Track{
			"mixA": {{ID: "t1"}},
			"mixB": {{ID: "t2"}},
		},
	}
	st := newTestStore(t)
	saveSelection(t, st, []string{"mixA", "mixB"}, 7)
	engine := newTestEngine(t, session, st)

	first := engine.Run(context.Background(), models.TriggerManual, nil)
	for _, outcome := range first.Results {
		if outcome.Status() != "created" {
			t.Fatalf("first run should create everything, got %+v", outcome)
		}
	}

	second := engine.Run(context.Background(), models.TriggerScheduled, nil)
	for _, outcome := range second.Results {
		if outcome.Status() != "skipped" {
			t.Errorf("second run should skip everything, got %+v", outcome)
		}
	}
	if n := session.CallCount("CreatePlaylist"); n != 2 {
		t.Errorf("expected 2 total creations across both runs, got %d", n)
	}
}

func TestEngineRun_PartialFailureIsolation(t *testing.T) {
	session := &fakes.FakeSession{
		Categories: dailyCatalog(),
		TracksByMix: map[string][]models.Track{
			"mixB": {{ID: "t2"}},
		},
		TracksErr: map[string]error{
			"mixA": errors.New("mix fetch blew up"),
		},
	}
	st := newTestStore(t)
	saveSelection(t, st, []string{"mixA", "mixB"}, 7)

	report := newTestEngine(t, session, st).Run(context.Background(), models.TriggerManual, nil)

	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Status() != "failed" || report.Results[0].Error != "mix fetch blew up" {
		t.Errorf("mixA outcome = %+v", report.Results[0])
	}
	if report.Results[1].Status() != "created" {
		t.Errorf("mixB outcome = %+v", report.Results[1])
	}
}

func TestEngineRun_MixNotInCatalog(t *testing.T) {
	session := &fakes.FakeSession{
		Categories: dailyCatalog(),
		TracksByMix: map[string][]models.Track{
			"mixA": {{ID: "t1"}},
		},
	}
	st := newTestStore(t)
	saveSelection(t, st, []string{"gone", "mixA"}, 7)

	report := newTestEngine(t, session, st).Run(context.Background(), models.TriggerManual, nil)

	if report.Results[0].MixID != "gone" || report.Results[0].Error != "not found" {
		t.Errorf("missing mix outcome = %+v", report.Results[0])
	}
	if report.Results[1].Status() != "created" {
		t.Errorf("present mix outcome = %+v", report.Results[1])
	}
}

func TestEngineRun_Retention(t *testing.T) {
	// today is fixed at 2024-03-10, retention 7 → cutoff 2024-03-03:
	// strictly older than the cutoff is deleted, the boundary day is kept.
	session := &fakes.FakeSession{
		Categories: dailyCatalog(),
		TracksByMix: map[string][]models.Track{
			"mixA": {{ID: "t1"}},
		},
		Library: []models.Playlist{
			{ID: "old", Name: "2024-03-02 Foo", Description: "Auto-synced from Tidal"},
			{ID: "boundary", Name: "2024-03-03 Foo", Description: "Auto-synced from Tidal"},
			{ID: "user", Name: "2024-03-01 My Party Mix", Description: "handmade"},
			{ID: "plain", Name: "Favorites", Description: "Auto-synced from Tidal"},
			{ID: "short", Name: "24-3-1 x", Description: "Auto-synced from Tidal"},
		},
	}
	st := newTestStore(t)
	saveSelection(t, st, []string{"mixA"}, 7)

	report := newTestEngine(t, session, st).Run(context.Background(), models.TriggerManual, nil)

	if report.DeletedCount != 1 {
		t.Fatalf("expected 1 deletion, got %d (%v)", report.DeletedCount, report.Deleted)
	}
	if report.Deleted[0] != "2024-03-02 Foo" {
		t.Errorf("deleted %q", report.Deleted[0])
	}
	if len(session.Deleted) != 1 || session.Deleted[0] != "old" {
		t.Errorf("provider deletions = %v", session.Deleted)
	}
}

func TestEngineRun_PruneAbortsOnDeleteError(t *testing.T) {
	session := &fakes.FakeSession{
		Categories: dailyCatalog(),
		TracksByMix: map[string][]models.Track{
			"mixA": {{ID: "t1"}},
		},
		Library: []models.Playlist{
			{ID: "first", Name: "2024-01-01 Foo", Description: "Auto-synced from Tidal"},
			{ID: "second", Name: "2024-01-02 Bar", Description: "Auto-synced from Tidal"},
		},
		DeleteErr: map[string]error{
			"first": errors.New("provider said no"),
		},
	}
	st := newTestStore(t)
	saveSelection(t, st, []string{"mixA"}, 7)

	report := newTestEngine(t, session, st).Run(context.Background(), models.TriggerManual, nil)

	// Scan aborts at the first failed delete; the run itself still reports
	// the creation results.
	if report.Error != "" {
		t.Errorf("delete failure must not fail the run: %q", report.Error)
	}
	if report.DeletedCount != 0 {
		t.Errorf("expected no recorded deletions, got %v", report.Deleted)
	}
	if report.Results[0].Status() != "created" {
		t.Errorf("creation result lost: %+v", report.Results[0])
	}
}

func TestSnapshotDate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantOK bool
	}{
		{"valid snapshot name", "2024-03-01 Daily Discovery", true},
		{"date only", "2024-03-01", true},
		{"not a date", "Favorites", false},
		{"short form", "24-3-1 x", false},
		{"wrong separators", "2024/03/01 Foo", false},
		{"month out of range", "2024-13-01 Foo", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			date, ok := snapshotDate(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("snapshotDate(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && date.Format(dateLayout) != tt.input[:10] {
				t.Errorf("parsed %v from %q", date, tt.input)
			}
		})
	}
}

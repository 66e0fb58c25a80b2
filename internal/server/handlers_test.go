package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/store"
	"github.com/ferrova/tidalsnap/internal/tasks"
	fakes "github.com/ferrova/tidalsnap/internal/testing"
)

// fakeAuth extends the shared session double with the device-login half of
// the Authenticator interface.
type fakeAuth struct {
	fakes.FakeSession
	pending    *models.PendingAuth
	checkErr   error
	startCalls int
}

func (f *fakeAuth) LoginStart(ctx context.Context) (*models.PendingAuth, error) {
	f.startCalls++
	return f.pending, nil
}

func (f *fakeAuth) LoginCheck(ctx context.Context) error {
	return f.checkErr
}

func newTestApp(t *testing.T, auth *fakeAuth) (*App, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tidalsnap.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine := tasks.NewEngine(tasks.EngineOpts{
		Session: auth,
		Store:   st,
		Now:     func() time.Time { return time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC) },
	})
	return NewApp(st, auth, engine, nil, nil), st
}

func connectedAuth() *fakeAuth {
	return &fakeAuth{
		FakeSession: fakes.FakeSession{
			Categories: []models.MixCategory{
				{
					Title: "Mixes for you",
					Items: []models.MixItem{
						{ID: "mixA", Title: "Daily Discovery"},
					},
				},
			},
			TracksByMix: map[string][]models.Track{
				"mixA": {{ID: "t1"}, {ID: "t2"}},
			},
		},
	}
}

func TestHomeStartsDeviceLogin(t *testing.T) {
	auth := &fakeAuth{
		FakeSession: fakes.FakeSession{Invalid: true},
		checkErr:    shared.ErrNotAuthenticated,
		pending: &models.PendingAuth{
			UserCode:        "ABCDE",
			VerificationURI: "link.tidal.com",
		},
	}
	app, _ := newTestApp(t, auth)

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if auth.startCalls != 1 {
		t.Errorf("expected one login start, got %d", auth.startCalls)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "ABCDE") {
		t.Error("user code missing from login page")
	}
	if !strings.Contains(body, "https://link.tidal.com") {
		t.Error("verification link missing or not absolute")
	}
}

func TestHomeShowsSummaryWhenConnected(t *testing.T) {
	app, st := newTestApp(t, connectedAuth())
	if err := st.SaveSelection(models.SelectionConfig{SelectedMixIDs: []string{"mixA"}, RetentionDays: 7}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "1 mix(es) selected") {
		t.Errorf("summary missing selection: %s", rec.Body.String())
	}
}

func TestSyncTriggers(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		trigger string
	}{
		{"plain request is manual", "/sync", models.TriggerManual},
		{"cron source is external", "/sync?source=cron", models.TriggerExternalCron},
		{"other source is manual", "/sync?source=browser", models.TriggerManual},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, st := newTestApp(t, connectedAuth())
			if err := st.SaveSelection(models.SelectionConfig{SelectedMixIDs: []string{"mixA"}, RetentionDays: 7}); err != nil {
				t.Fatal(err)
			}

			rec := httptest.NewRecorder()
			app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			var report models.SyncReport
			if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
				t.Fatalf("bad report body: %v", err)
			}
			if report.Trigger != tt.trigger {
				t.Errorf("trigger = %q, want %q", report.Trigger, tt.trigger)
			}
		})
	}
}

func TestSyncFatalReportsConflict(t *testing.T) {
	// Connected but nothing selected: the run cannot proceed.
	app, _ := newTestApp(t, connectedAuth())

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d", rec.Code)
	}
	var report models.SyncReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.Error != "no mixes selected" {
		t.Errorf("error = %q", report.Error)
	}
}

func TestStatusEndpoint(t *testing.T) {
	app, st := newTestApp(t, connectedAuth())
	if err := st.SaveReport(&models.SyncReport{
		LastSync: time.Date(2024, 3, 9, 6, 0, 0, 0, time.UTC),
		Trigger:  models.TriggerScheduled,
		Results:  []models.MixOutcome{},
	}); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if connected, _ := body["connected"].(bool); !connected {
		t.Error("connected should be true")
	}
	if _, ok := body["last_report"]; !ok {
		t.Error("last_report missing")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	app, _ := newTestApp(t, connectedAuth())
	router := app.Router()

	form := url.Values{
		"mix_ids":        {"mixA, mixB"},
		"retention_days": {"1000"},
	}
	req := httptest.NewRequest(http.MethodPost, "/config", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))

	var selection models.SelectionConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &selection); err != nil {
		t.Fatal(err)
	}
	if len(selection.SelectedMixIDs) != 2 || selection.SelectedMixIDs[1] != "mixB" {
		t.Errorf("mix ids = %v", selection.SelectedMixIDs)
	}
	if selection.RetentionDays != models.MaxRetentionDays {
		t.Errorf("retention not clamped: %d", selection.RetentionDays)
	}
}

func TestConfigRejectsBadRetention(t *testing.T) {
	app, _ := newTestApp(t, connectedAuth())

	form := url.Values{"retention_days": {"soon"}}
	req := httptest.NewRequest(http.MethodPost, "/config", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestPinGate(t *testing.T) {
	app, st := newTestApp(t, connectedAuth())
	if err := st.SaveAccessPin("4271"); err != nil {
		t.Fatal(err)
	}
	router := app.Router()

	t.Run("blocked without pin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("wrong pin blocked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status?pin=0000", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("query pin admits and sets cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status?pin=4271", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}

		var cookie *http.Cookie
		for _, c := range rec.Result().Cookies() {
			if c.Name == PinCookieName {
				cookie = c
			}
		}
		if cookie == nil || cookie.Value != "4271" {
			t.Fatalf("pin cookie not set: %v", rec.Result().Cookies())
		}

		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.AddCookie(cookie)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("cookie not honored: %d", rec.Code)
		}
	})
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/store"
	"github.com/ferrova/tidalsnap/internal/tasks"
)

// App wires the web surface to the engine, store and provider session.
//
// Every route is read-or-trigger: the only durable writes are the selection
// config (POST /config) and whatever a sync run itself persists.
type App struct {
	store  *store.Store
	auth   Authenticator
	engine *tasks.Engine
	sched  *tasks.Scheduler
	logger *log.Logger
}

// NewApp creates the web application. sched may be nil when the process runs
// without a daily schedule.
func NewApp(st *store.Store, auth Authenticator, engine *tasks.Engine, sched *tasks.Scheduler, logger *log.Logger) *App {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &App{store: st, auth: auth, engine: engine, sched: sched, logger: logger}
}

// Router builds the full route table with logging and the PIN gate applied.
func (a *App) Router() *BasicRouter {
	router := NewBasicRouter()
	router.Use(RequestLogger(a.logger), PinGate(a.store, a.logger))

	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.handleHome))
	router.Handle(http.MethodGet, "/sync", http.HandlerFunc(a.handleSync))
	router.Handle(http.MethodGet, "/status", http.HandlerFunc(a.handleStatus))
	router.Handle(http.MethodGet, "/config", http.HandlerFunc(a.handleConfigShow))
	router.Handle(http.MethodPost, "/config", http.HandlerFunc(a.handleConfigSave))

	return router
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

// handleHome renders the landing page. For a connected session it shows a
// summary; otherwise it drives the device-code login, one check per visit.
func (a *App) handleHome(w http.ResponseWriter, r *http.Request) {
	if a.auth.IsValid() {
		a.renderSummary(w)
		return
	}

	err := a.auth.LoginCheck(r.Context())
	switch {
	case err == nil:
		a.renderSummary(w)
	case errors.Is(err, shared.ErrAuthPending):
		pending, found, loadErr := a.store.PendingAuth()
		if loadErr != nil || !found {
			a.logger.Error("pending login vanished", "error", loadErr)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		a.renderLogin(w, pending)
	default:
		// No pending login, or the previous one expired. Start fresh.
		pending, startErr := a.auth.LoginStart(r.Context())
		if startErr != nil {
			a.logger.Error("failed to start device login", "error", startErr)
			http.Error(w, "could not reach provider", http.StatusBadGateway)
			return
		}
		a.renderLogin(w, pending)
	}
}

func (a *App) renderLogin(w http.ResponseWriter, pending *models.PendingAuth) {
	link := pending.VerificationURIComplete
	if link == "" {
		link = pending.VerificationURI
	}
	if link != "" && !strings.HasPrefix(link, "http") {
		link = "https://" + link
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageShell,
		"Connect to Tidal",
		fmt.Sprintf(`<h1>Connect to Tidal</h1>
        <p>Visit <a href="%s" target="_blank">%s</a> and enter the code:</p>
        <p class="code">%s</p>
        <p>Then reload this page.</p>`,
			html.EscapeString(link),
			html.EscapeString(link),
			html.EscapeString(pending.UserCode),
		),
	)
}

func (a *App) renderSummary(w http.ResponseWriter) {
	selection, err := a.store.Selection()
	if err != nil {
		a.logger.Error("failed to load selection", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	lastLine := "never"
	if report, found, _ := a.store.LastReport(); found {
		lastLine = fmt.Sprintf("%s (%s)", report.LastSync.Format(time.RFC3339), report.Trigger)
	}

	nextLine := "not scheduled"
	if a.sched != nil {
		if next := a.sched.NextRun(); !next.IsZero() {
			nextLine = next.Format(time.RFC3339)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageShell,
		"tidalsnap",
		fmt.Sprintf(`<h1>tidalsnap</h1>
        <p>Connected. %d mix(es) selected, %d day retention.</p>
        <p>Last sync: %s</p>
        <p>Next scheduled run: %s</p>
        <p><a href="/sync">Sync now</a> &middot; <a href="/status">Status</a> &middot; <a href="/config">Config</a></p>`,
			len(selection.SelectedMixIDs),
			selection.RetentionDays,
			html.EscapeString(lastLine),
			html.EscapeString(nextLine),
		),
	)
}

// handleSync runs a full snapshot-and-prune cycle synchronously and returns
// the report. ?source=cron marks the run as externally scheduled.
func (a *App) handleSync(w http.ResponseWriter, r *http.Request) {
	trigger := models.TriggerManual
	if r.URL.Query().Get("source") == "cron" {
		trigger = models.TriggerExternalCron
	}

	report := a.engine.Run(r.Context(), trigger, nil)

	status := http.StatusOK
	if report.Error != "" {
		status = http.StatusConflict
	}
	a.writeJSON(w, status, report)
}

// handleStatus returns the durable status record plus live process state.
func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	selection, err := a.store.Selection()
	if err != nil {
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	body := map[string]any{
		"connected":      a.auth.IsValid(),
		"selected_mixes": len(selection.SelectedMixIDs),
		"retention_days": selection.RetentionDays,
	}
	if report, found, _ := a.store.LastReport(); found {
		body["last_report"] = report
	}
	if a.sched != nil {
		if next := a.sched.NextRun(); !next.IsZero() {
			body["next_run"] = next.Format(time.RFC3339)
		}
	}

	a.writeJSON(w, http.StatusOK, body)
}

func (a *App) handleConfigShow(w http.ResponseWriter, r *http.Request) {
	selection, err := a.store.Selection()
	if err != nil {
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	a.writeJSON(w, http.StatusOK, selection)
}

// handleConfigSave replaces the selection config wholesale from form fields:
// mix_ids (comma separated) and retention_days. An optional pin field sets or
// clears the web PIN.
func (a *App) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed form"})
		return
	}

	selection, err := a.store.Selection()
	if err != nil {
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if r.PostForm.Has("mix_ids") {
		ids := []string{}
		for _, id := range strings.Split(r.PostForm.Get("mix_ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
		selection.SelectedMixIDs = ids
	}

	if raw := r.PostForm.Get("retention_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			a.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "retention_days must be a number"})
			return
		}
		selection.RetentionDays = days
	}

	if err := a.store.SaveSelection(selection); err != nil {
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if r.PostForm.Has("pin") {
		if err := a.store.SaveAccessPin(r.PostForm.Get("pin")); err != nil {
			a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	saved, err := a.store.Selection()
	if err != nil {
		a.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	a.writeJSON(w, http.StatusOK, saved)
}

const pageShell = `<!DOCTYPE html>
<html>
<head>
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        p { color: #666; margin: 0.5rem 0; }
        .code { font-size: 2rem; font-weight: bold; letter-spacing: 0.3rem; color: #111; }
    </style>
</head>
<body>
    <div class="container">
        %s
    </div>
</body>
</html>
`

package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ferrova/tidalsnap/internal/shared"
	"github.com/ferrova/tidalsnap/internal/store"
)

// PinCookieName is the cookie carrying a validated web PIN.
const PinCookieName = "tidalsnap_pin"

// statusRecorder captures the status code written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request with a generated request id,
// method, path, status and duration. The id is echoed in the X-Request-Id
// response header.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := shared.GenerateID()
			w.Header().Set("X-Request-Id", requestID)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			logger.Info("request",
				"id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", time.Since(start).Round(time.Millisecond),
			)
		})
	}
}

// PinGate guards every route behind the stored access PIN.
//
// When no PIN is stored the gate is open. A visitor can present the PIN
// either as the tidalsnap_pin cookie or as a ?pin= query parameter; a
// correct query parameter also sets the cookie so subsequent requests pass
// without it.
func PinGate(st *store.Store, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			pin, required, err := st.AccessPin()
			if err != nil {
				logger.Error("failed to read access pin", "error", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			if !required {
				next.ServeHTTP(w, r)
				return
			}

			if cookie, err := r.Cookie(PinCookieName); err == nil && cookie.Value == pin {
				next.ServeHTTP(w, r)
				return
			}

			if given := r.URL.Query().Get("pin"); given == pin {
				http.SetCookie(w, &http.Cookie{
					Name:     PinCookieName,
					Value:    pin,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, pinPromptPage)
		})
	}
}

const pinPromptPage = `<!DOCTYPE html>
<html>
<head>
    <title>tidalsnap</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        input { padding: 0.5rem; font-size: 1rem; }
    </style>
</head>
<body>
    <div class="container">
        <h1>PIN required</h1>
        <form method="GET">
            <input type="password" name="pin" placeholder="PIN" autofocus>
            <button type="submit">Unlock</button>
        </form>
    </div>
</body>
</html>
`

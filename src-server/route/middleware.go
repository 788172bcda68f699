package route

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"planner/src-server/account"
	"planner/src-server/utils"
)

type IdentityCtxKeyType string

const IdentityCtxKey IdentityCtxKeyType = "identity"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration of each request.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		slog.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	// calendar apps can't send headers
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

// AuthMiddleware verifies the bearer token, turns away anyone but the device
// owner and puts the caller's identity in the request context.
func AuthMiddleware(as *utils.AppState, next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "missing bearer token")
			return
		}
		identity, err := as.Tokens.Verify(token)
		if err != nil {
			slog.Debug("rejected token", "error", err)
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "invalid or expired token")
			return
		}
		if err := as.Owner.Claim(r.Context(), identity.UID); err != nil {
			slog.Debug("rejected subject", "uid", identity.UID, "error", err)
			writeDomainError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), IdentityCtxKey, identity)
		next(w, r.WithContext(ctx))
	}
}

func identityFrom(r *http.Request) (account.Identity, bool) {
	identity, ok := r.Context().Value(IdentityCtxKey).(account.Identity)
	return identity, ok
}

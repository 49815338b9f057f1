package observability

import (
	"log/slog"
	"net/http"
)

// Audit emits a structured audit record for a security-relevant request
// event (login outcomes, lockouts, session revocations).
func Audit(r *http.Request, event string, attrs ...any) {
	base := []any{
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", r.Header.Get("X-Request-Id"),
		"remote_ip", r.RemoteAddr,
	}
	base = append(base, attrs...)
	slog.InfoContext(r.Context(), "audit", base...)
}

package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pixelbox/internal/logging"
)

// LoggingConfig holds configuration for the access log
type LoggingConfig struct {
	SkipPaths       []string
	LogHealthChecks bool
	LogMetrics      bool
}

// DefaultLoggingConfig logs everything except Prometheus scrapes.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogHealthChecks: true,
	}
}

var healthCheckPaths = map[string]bool{
	"/healthz": true,
	"/livez":   true,
}

// Logger writes one access log line per request. Installed with Router.Use
// the line carries the matched route template as well as the raw path.
// Server errors are logged at warn level.
func Logger(config LoggingConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkip(r.URL.Path, config) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			line := accessLine(r, rec, time.Since(start))
			if rec.status >= http.StatusInternalServerError {
				logging.Warn("%s", line)
				return
			}
			//nolint:gosec // request fields are passed through cleanField
			logging.Info("%s", line)
		})
	}
}

func accessLine(r *http.Request, rec *statusRecorder, elapsed time.Duration) string {
	var b strings.Builder
	fmt.Fprintf(&b, "http %s %s", cleanField(r.Method), cleanField(r.URL.Path))
	if route := routePath(r); route != "unmatched" && route != r.URL.Path {
		fmt.Fprintf(&b, " route=%s", route)
	}
	if r.URL.RawQuery != "" {
		fmt.Fprintf(&b, " query=%s", quoteField(r.URL.RawQuery))
	}
	fmt.Fprintf(&b, " status=%d bytes=%d dur=%dms ip=%s",
		rec.status, rec.bytes, elapsed.Milliseconds(), cleanField(clientIP(r)))
	if enc := rec.Header().Get("Content-Encoding"); enc != "" {
		fmt.Fprintf(&b, " enc=%s", cleanField(enc))
	}
	if ua := r.Header.Get("User-Agent"); ua != "" {
		fmt.Fprintf(&b, " ua=%s", quoteField(ua))
	}
	return b.String()
}

// cleanField drops control characters so a request cannot forge log lines.
// Line breaks become spaces.
func cleanField(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\r':
			return ' '
		case r == '\t':
			return r
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}

// quoteField cleans s and quotes it when it contains spaces or quotes.
func quoteField(s string) string {
	s = cleanField(s)
	if strings.ContainsAny(s, " \t\"") {
		return strconv.Quote(s)
	}
	return s
}

func shouldSkip(path string, config LoggingConfig) bool {
	for _, skipPath := range config.SkipPaths {
		if strings.HasPrefix(path, skipPath) {
			return true
		}
	}
	if !config.LogHealthChecks && healthCheckPaths[path] {
		return true
	}
	return !config.LogMetrics && path == "/metrics"
}

// clientIP prefers proxy headers over the socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

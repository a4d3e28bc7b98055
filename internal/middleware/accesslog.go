// internal/middleware/accesslog.go
//
// Request access log.
//
// One INFO line per completed request: method, host, path, status,
// duration, and the UA/Geo attributes the requestinfo middleware parsed
// earlier in the chain.  Wire this *after* requestinfo.Enrich or the
// UA and Geo fields come up empty.
package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/kiosk/internal/requestinfo"
)

// statusRecorder captures the response code for the log line.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLog logs every request at INFO.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		fields := []any{
			"method", r.Method,
			"host", r.Host,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(started).Truncate(time.Microsecond),
		}
		if info := requestinfo.FromContext(r.Context()); info != nil {
			fields = append(fields,
				"browser", info.UA.Browser,
				"device", info.UA.Device,
				"bot", info.UA.IsBot,
				"country", info.Geo.CountryISO,
			)
		}
		zap.S().Infow("request", fields...)
	})
}

// Package httpapi implements the inbound HTTP surface of spec.md §4.8:
// POST /blocks (webhook), POST /message and HEAD /message (gossip), and
// GET /peers, laid out the way the teacher corpus's walletserver package
// splits routes/middleware/handlers.
package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger mirrors walletserver/middleware.Logger: it logs method, URI and
// duration for every inbound request, tagged with this package's
// component name. Each request is stamped with a correlation id (the
// teacher corpus's uuid.New().String() pattern, e.g. core/dao.go's
// proposal ids) echoed in the response header and the log line, so a
// webhook delivery or gossip POST can be traced across a peer hop.
func Logger(log *logrus.Entry) func(http.Handler) http.Handler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	entry := log.WithField("component", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.New().String()
			w.Header().Set("X-Request-Id", requestID)
			next.ServeHTTP(w, r)
			entry.WithFields(logrus.Fields{
				"method": r.Method, "uri": r.RequestURI, "duration": time.Since(start), "request_id": requestID,
			}).Info("request handled")
		})
	}
}

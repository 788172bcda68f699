package route

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"planner/src-server/utils"
)

// NewRouter registers every route of the companion API.
func NewRouter(as *utils.AppState) http.Handler {
	muxer := http.NewServeMux()
	muxer.Handle("GET /metrics", promhttp.Handler())
	Events(muxer, as)
	Profile(muxer, as)
	Ical(muxer, as)
	return LoggingMiddleware(muxer)
}

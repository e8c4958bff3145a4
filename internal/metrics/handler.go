package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type errorLogger struct {
	logger *slog.Logger
}

func (el errorLogger) Println(v ...interface{}) {
	el.logger.Warn("metrics handler error", "error", fmt.Sprint(v...))
}

// NewMetricsHandler creates an HTTP handler exposing the registry.
func NewMetricsHandler(m Metrics, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return promhttp.HandlerFor(m.GetRegistry(), promhttp.HandlerOpts{
		ErrorLog: errorLogger{logger: logger},
	})
}

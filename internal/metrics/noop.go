package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Noop discards every observation. It is used when metrics are disabled.
type Noop struct{}

var _ Metrics = Noop{}

func (Noop) GetRegistry() *prometheus.Registry { return nil }

func (Noop) ObserveHTTPRequest(string, string, int, time.Duration) {}

func (Noop) SetModelReady(bool) {}

func (Noop) ObserveModelInit(bool) {}

func (Noop) ObserveEmbed(time.Duration, error) {}

func (Noop) ObserveCache(string, bool) {}

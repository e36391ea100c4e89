package apicache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsMu          sync.Mutex
	metricsInitialized bool
	metricsErr         error

	hitCounter  *prometheus.CounterVec
	missCounter *prometheus.CounterVec
)

// SetupMetrics registers hit/miss counters for the dedupe cache. The
// registration is performed once; subsequent calls are ignored.
func SetupMetrics(reg prometheus.Registerer) error {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	if metricsInitialized {
		return metricsErr
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	hitCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firepit_apicache_hits_total",
		Help: "Number of fresh cache hits served without invoking a producer.",
	}, []string{"key"})
	missCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firepit_apicache_miss_total",
		Help: "Number of cache misses that entered producer coalescing.",
	}, []string{"key"})

	for _, collector := range []prometheus.Collector{hitCounter, missCounter} {
		if err := reg.Register(collector); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				if c, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
					if collector == hitCounter {
						hitCounter = c
					} else {
						missCounter = c
					}
					continue
				}
				metricsErr = fmt.Errorf("apicache metrics: unexpected collector type %T", already.ExistingCollector)
			} else {
				metricsErr = err
			}
			hitCounter = nil
			missCounter = nil
			metricsInitialized = true
			return metricsErr
		}
	}

	metricsInitialized = true
	return metricsErr
}

func recordHit(key string) {
	if hitCounter == nil {
		return
	}
	hitCounter.WithLabelValues(key).Inc()
}

func recordMiss(key string) {
	if missCounter == nil {
		return
	}
	missCounter.WithLabelValues(key).Inc()
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// JudgeMetrics records RPC-facing judge operation activity.
type JudgeMetrics struct {
	Operations  *prometheus.CounterVec
	Settlements prometheus.Counter
	Fatals      prometheus.Counter
}

var (
	judgeOnce     sync.Once
	judgeRegistry *JudgeMetrics
)

// Judge returns the lazily-initialised metrics registry for judge
// operations. Outcome is one of "ok", "rejected" or "fatal".
func Judge() *JudgeMetrics {
	judgeOnce.Do(func() {
		judgeRegistry = &JudgeMetrics{
			Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "judged",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Total judge operations segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			Settlements: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "judged",
				Subsystem: "engine",
				Name:      "settlements_total",
				Help:      "Total reveal-triggered settlements handed to a resolver.",
			}),
			Fatals: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "judged",
				Subsystem: "engine",
				Name:      "fatal_halts_total",
				Help:      "Total operations halted by an internal invariant violation.",
			}),
		}
		prometheus.MustRegister(
			judgeRegistry.Operations,
			judgeRegistry.Settlements,
			judgeRegistry.Fatals,
		)
	})
	return judgeRegistry
}

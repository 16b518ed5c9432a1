package render

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds optional Prometheus instrumentation for the render engine.
// A nil *Metrics disables instrumentation entirely, so it is safe to leave
// Engine.Metrics unset.
type Metrics struct {
	suspensions *prometheus.CounterVec
	renders     prometheus.Counter
}

// NewMetrics builds render-engine counters and, if reg is non-nil,
// registers them with it. Passing a nil Registerer is useful in tests that
// want working counters without touching the default global registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	var m = &Metrics{
		suspensions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ctxtpl",
			Subsystem: "render",
			Name:      "suspensions_total",
			Help:      "Number of render suspensions, by reason.",
		}, []string{"reason"}),
		renders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ctxtpl",
			Subsystem: "render",
			Name:      "renders_total",
			Help:      "Number of top-level Render calls started.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.suspensions, m.renders)
	}
	return m
}

func (m *Metrics) observeSuspend(result RenderResult) {
	if m == nil {
		return
	}
	m.suspensions.WithLabelValues(resultReasonLabel(result)).Inc()
}

func (m *Metrics) observeRenderStart() {
	if m == nil {
		return
	}
	m.renders.Inc()
}

func resultReasonLabel(r RenderResult) string {
	switch r.Kind {
	case ResultDone:
		return "done"
	case ResultContinueAfter:
		return "continue_after"
	case ResultLimited:
		return r.Reason.String()
	default:
		return "unknown"
	}
}

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics counts pixel serves and recorded conversions.
type APIMetrics struct {
	pixelRenders   *prometheus.CounterVec
	eventsRecorded *prometheus.CounterVec
}

// NewAPIMetrics registers the API counters on the provided registerer.
// A nil registerer yields a no-op instance, which keeps tests quiet.
func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	if reg == nil {
		return &APIMetrics{}
	}
	pixelRenders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pixel_renders_total",
		Help: "Pixel scripts served, by outcome (ok, fallback).",
	}, []string{"outcome"})
	eventsRecorded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conversion_events_recorded_total",
		Help: "Conversion events accepted by the recorder, by type.",
	}, []string{"event_type"})
	reg.MustRegister(pixelRenders, eventsRecorded)
	return &APIMetrics{
		pixelRenders:   pixelRenders,
		eventsRecorded: eventsRecorded,
	}
}

// IncPixelRender counts a served pixel script.
func (m *APIMetrics) IncPixelRender(outcome string) {
	if m == nil || m.pixelRenders == nil {
		return
	}
	m.pixelRenders.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncEventRecorded counts an accepted conversion event.
func (m *APIMetrics) IncEventRecorded(eventType string) {
	if m == nil || m.eventsRecorded == nil {
		return
	}
	m.eventsRecorded.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}

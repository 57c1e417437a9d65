package metrics

import (
	"strconv"
	"time"
)

// ObserveGeneration records one model call.
func (m *Manager) ObserveGeneration(outcome string, d time.Duration) {
	m.CounterGenerations.WithLabelValues(outcome).Inc()
	if d > 0 {
		m.HistGenerationDuration.Observe(d.Seconds())
	}
}

// ObserveCompletion records one submitted completion.
func (m *Manager) ObserveCompletion(rating int) {
	m.CounterCompletions.WithLabelValues(strconv.Itoa(rating)).Inc()
}

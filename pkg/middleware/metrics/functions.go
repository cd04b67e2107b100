package metrics

import (
	"strconv"
	"time"
)

// Invocation outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeBadInput  = "bad_input"
	OutcomeFailed    = "failed"
	OutcomeTruncated = "truncated"
)

// Element directions.
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// ObserveInvocation records one dispatched call of a function.
func ObserveInvocation(function, shape, outcome string, took time.Duration) {
	functionInvocations.WithLabelValues(function, shape, outcome).Inc()
	functionDuration.WithLabelValues(function).Observe(took.Seconds())
}

// AddElements counts stream elements flowing through a function.
func AddElements(function, direction string, n int) {
	if n <= 0 {
		return
	}
	functionElements.WithLabelValues(function, direction).Add(float64(n))
}

func statusLabel(code int) string {
	if code == 0 {
		code = 200
	}
	return strconv.Itoa(code)
}

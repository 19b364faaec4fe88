package task

import (
	"time"

	"github.com/phrazzld/gamegen-api/internal/domain"
)

// MetricsRecorder receives runner lifecycle events.
type MetricsRecorder interface {
	TaskSubmitted()
	TaskResolved(status domain.TaskStatus)
	GenerationObserved(elapsed time.Duration)
	InFlightChanged(delta int)
}

type noopMetrics struct{}

func (noopMetrics) TaskSubmitted()                   {}
func (noopMetrics) TaskResolved(domain.TaskStatus)   {}
func (noopMetrics) GenerationObserved(time.Duration) {}
func (noopMetrics) InFlightChanged(int)              {}

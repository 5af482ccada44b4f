package pipeline

import (
	"time"

	"github.com/poiesic/clinroute/core"
)

// Monitor provides hooks to observe pipeline runs.
// Implement this interface to record stage timings and outcomes.
// Implementations must be safe for concurrent use.
type Monitor interface {
	Start(query string)
	StageCompleted(stage string, state core.PipelineState, elapsed time.Duration)
	StageFailed(stage string, err error, elapsed time.Duration)
	Finish(state core.PipelineState, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                                 {}
func (n *noopMonitor) StageCompleted(_ string, _ core.PipelineState, _ time.Duration) {}
func (n *noopMonitor) StageFailed(_ string, _ error, _ time.Duration)                 {}
func (n *noopMonitor) Finish(_ core.PipelineState, _ error)                           {}

package renderer

import (
	"sync/atomic"

	"github.com/achilleasa/raystream/log"
)

// The lifecycle state of a pipeline stage. Stages only ever move forward:
// Running -> Draining -> Closed.
type StageState uint32

const (
	Running StageState = iota
	Draining
	Closed
)

func (s StageState) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Names of the pipeline stages.
const (
	ProducerStage  = "producer"
	ComputeStage   = "compute"
	CollectorStage = "collector"
)

type stage struct {
	name   string
	frame  uint32
	logger log.Logger
	state  atomic.Uint32
}

func newStage(name string, frame uint32, logger log.Logger) *stage {
	return &stage{
		name:   name,
		frame:  frame,
		logger: logger,
	}
}

// Move the stage to a later state. Requests to move backwards are ignored.
func (s *stage) advance(to StageState) {
	for {
		cur := s.state.Load()
		if StageState(cur) >= to {
			return
		}
		if s.state.CompareAndSwap(cur, uint32(to)) {
			s.logger.Debugf("frame %d: %s stage %s -> %s", s.frame, s.name, StageState(cur), to)
			return
		}
	}
}

func (s *stage) State() StageState {
	return StageState(s.state.Load())
}

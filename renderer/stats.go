package renderer

import "time"

type FrameStats struct {
	// The animation frame index (0 for still frames).
	Frame uint32

	// The output target the frame was persisted to.
	Target string

	// Number of dispatched tiles and collected rays.
	Tiles int
	Rays  int

	// Final state of each pipeline stage keyed by stage name.
	Stages map[string]StageState

	// Peak number of tiles waiting in the tile and result queues.
	MaxTileQueueDepth   int
	MaxResultQueueDepth int

	// Total time spent waiting for the compute backend.
	BackendTime time.Duration

	// Total render time for the entire frame, including persistence.
	RenderTime time.Duration
}

type FrameFailure struct {
	Frame uint32
	Err   error
}

type AnimationStats struct {
	// Stats for each successfully rendered frame.
	Frames []FrameStats

	// Frames skipped due to errors (only when ContinueOnError is set).
	Failed []FrameFailure

	// Total render time for the animation.
	RenderTime time.Duration
}

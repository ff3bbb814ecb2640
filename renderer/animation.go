package renderer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/achilleasa/raystream/scene"
)

// A request to render a sequence of animation frames.
type AnimationRequest struct {
	Animation *scene.Animation
	Camera    scene.Camera
	Geometry  *scene.Geometry

	// The frames to render. If empty, all frames in [0, N] are rendered.
	Frames []uint32

	// A fmt pattern that receives the frame index and returns the frame
	// target (e.g. "out/frame-%04d.png"). It may hold at most one integer
	// verb; a literal percent sign must be written as "%%".
	TargetPattern string
}

// Get the target for a particular frame. Patterns are expected to have been
// checked with validateTargetPattern.
func (req *AnimationRequest) Target(frame uint32) string {
	if verbs, _ := countFrameVerbs(req.TargetPattern); verbs == 0 {
		return strings.ReplaceAll(req.TargetPattern, "%%", "%")
	}
	return fmt.Sprintf(req.TargetPattern, frame)
}

// Count the integer verbs in a target pattern. Returns an error for verbs
// that cannot format a frame index and for dangling percent signs.
func countFrameVerbs(pattern string) (int, error) {
	verbs := 0
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '%' {
			continue
		}

		// Skip flags and width
		j := i + 1
		for j < len(pattern) && strings.IndexByte("+-# 0123456789", pattern[j]) != -1 {
			j++
		}
		if j == len(pattern) {
			return verbs, fmt.Errorf("%w: target pattern %q ends with an incomplete verb", scene.ErrInvalidConfig, pattern)
		}

		switch pattern[j] {
		case '%':
			if j != i+1 {
				return verbs, fmt.Errorf("%w: target pattern %q has a malformed %%%% escape", scene.ErrInvalidConfig, pattern)
			}
		case 'd', 'v', 'x', 'X', 'o', 'b':
			verbs++
		default:
			return verbs, fmt.Errorf("%w: target pattern %q has verb %%%c which cannot format a frame index; use %%%% for a literal percent sign", scene.ErrInvalidConfig, pattern, pattern[j])
		}
		i = j
	}
	return verbs, nil
}

func validateTargetPattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: no target pattern defined", scene.ErrInvalidConfig)
	}

	verbs, err := countFrameVerbs(pattern)
	if err != nil {
		return err
	}
	if verbs > 1 {
		return fmt.Errorf("%w: target pattern %q has %d verbs; expected at most one", scene.ErrInvalidConfig, pattern, verbs)
	}
	return nil
}

func (req *AnimationRequest) frameList() []uint32 {
	if len(req.Frames) != 0 {
		return req.Frames
	}

	frames := make([]uint32, 0, req.Animation.Frames()+1)
	for f := uint32(0); f <= req.Animation.Frames(); f++ {
		frames = append(frames, f)
	}
	return frames
}

// Render animation frames one after the other. Each frame runs through its
// own pipeline and is fully persisted before the next one starts.
//
// If the renderer was configured with ContinueOnError, frames that fail are
// recorded in the returned stats and the remaining frames are still rendered;
// ErrFramesFailed is returned once all frames have been processed. An
// interrupted render always stops the animation.
func (r *Renderer) RenderAnimation(ctx context.Context, req AnimationRequest, sink Sink) (stats AnimationStats, err error) {
	if req.Animation == nil {
		return stats, fmt.Errorf("%w: no animation defined", scene.ErrInvalidConfig)
	}
	if err = validateTargetPattern(req.TargetPattern); err != nil {
		return stats, err
	}

	frames := req.frameList()
	start := time.Now()
	defer func() {
		stats.RenderTime = time.Since(start)
	}()

	for _, frame := range frames {
		var sc *scene.Scene
		sc, err = req.Animation.SceneAt(frame, r.options.FrameW, r.options.FrameH, req.Camera)
		if err == nil {
			var frameStats FrameStats
			frameStats, err = r.RenderFrame(ctx, FrameRequest{
				Index:    frame,
				Scene:    sc,
				Geometry: req.Geometry,
				Target:   req.Target(frame),
			}, sink)
			if err == nil {
				stats.Frames = append(stats.Frames, frameStats)
				continue
			}
		}

		if !r.options.ContinueOnError || errors.Is(err, ErrInterrupted) {
			return stats, fmt.Errorf("renderer: animation frame %d: %w", frame, err)
		}
		r.logger.Warningf("frame %d failed; skipping: %v", frame, err)
		stats.Failed = append(stats.Failed, FrameFailure{Frame: frame, Err: err})
	}

	if len(stats.Failed) != 0 {
		return stats, fmt.Errorf("%w: %d of %d frames", ErrFramesFailed, len(stats.Failed), len(frames))
	}

	r.logger.Noticef("rendered %d animation frames in %s", len(stats.Frames), time.Since(start))
	return stats, nil
}

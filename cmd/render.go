package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/achilleasa/raystream/renderer"
	"github.com/achilleasa/raystream/scene"
	"github.com/achilleasa/raystream/scene/reader"
	"github.com/achilleasa/raystream/tracer"
	_ "github.com/achilleasa/raystream/tracer/cpu"
	"github.com/achilleasa/raystream/types"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sf, err := loadScene(ctx)
	if err != nil {
		return err
	}

	r, err := setupRenderer(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	opts := r.Options()
	sc, err := sf.Scene(opts.FrameW, opts.FrameH)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := r.RenderFrame(
		runCtx,
		renderer.FrameRequest{
			Scene:    sc,
			Geometry: sf.Geometry,
			Target:   ctx.String("out"),
		},
		renderer.FileSink{Format: ctx.String("format")},
	)
	if err != nil {
		return err
	}

	displayFrameStats([]renderer.FrameStats{stats}, nil)
	return nil
}

// Render a range of animation frames.
func RenderAnimation(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	sf, err := loadScene(ctx)
	if err != nil {
		return err
	}

	anim, err := animationFromFlags(ctx, sf)
	if err != nil {
		return err
	}

	frames, err := frameRange(ctx.Int("from"), ctx.Int("to"), anim.Frames())
	if err != nil {
		return err
	}

	r, err := setupRenderer(ctx)
	if err != nil {
		return err
	}
	defer r.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Noticef("rendering frames %d to %d of %d", frames[0], frames[len(frames)-1], anim.Frames())
	stats, err := r.RenderAnimation(
		runCtx,
		renderer.AnimationRequest{
			Animation:     anim,
			Camera:        sf.Camera,
			Geometry:      sf.Geometry,
			Frames:        frames,
			TargetPattern: ctx.String("out"),
		},
		renderer.FileSink{Format: ctx.String("format")},
	)

	displayFrameStats(stats.Frames, stats.Failed)
	if err != nil {
		return err
	}

	logger.Noticef("rendered %d frames in %s", len(stats.Frames), stats.RenderTime)
	return nil
}

// Load the scene file passed as the first argument or fall back to the
// default scene.
func loadScene(ctx *cli.Context) (*reader.SceneFile, error) {
	if ctx.NArg() > 1 {
		return nil, errors.New("too many arguments; expected at most one scene file")
	}

	if ctx.NArg() == 0 {
		logger.Notice("no scene file specified; using the default scene")
		return &reader.SceneFile{
			Path:     "<default>",
			Geometry: scene.DefaultGeometry(),
			Camera:   scene.DefaultCamera(),
		}, nil
	}

	return reader.ReadFile(ctx.Args().First())
}

// Collect renderer options from the command flags.
func rendererOptions(ctx *cli.Context) (renderer.Options, error) {
	if ctx.Int("width") <= 0 || ctx.Int("height") <= 0 {
		return renderer.Options{}, fmt.Errorf("%w: frame dimensions must be positive; got %dx%d", scene.ErrInvalidConfig, ctx.Int("width"), ctx.Int("height"))
	}

	opts := renderer.DefaultOptions(uint32(ctx.Int("width")), uint32(ctx.Int("height")))
	opts.TileCapacity = ctx.Int("tile-capacity")
	opts.QueueCapacity = ctx.Int("queue-capacity")
	opts.ContinueOnError = ctx.Bool("continue-on-error")

	return opts, opts.Validate()
}

// Create the compute backend selected by the command flags and attach it to
// a new renderer.
func setupRenderer(ctx *cli.Context) (*renderer.Renderer, error) {
	opts, err := rendererOptions(ctx)
	if err != nil {
		return nil, err
	}

	if ctx.Int("spp") <= 0 {
		return nil, fmt.Errorf("%w: samples per pixel must be positive; got %d", tracer.ErrInvalidConfig, ctx.Int("spp"))
	}

	backend, err := tracer.NewBackend(ctx.String("backend"), tracer.BackendOptions{
		SamplesPerPixel: uint32(ctx.Int("spp")),
		Jitter:          float32(ctx.Float64("jitter")),
		Workers:         ctx.Int("workers"),
		DeviceFilter:    ctx.String("device"),
	})
	if err != nil {
		return nil, err
	}
	logger.Noticef("using compute backend %s", backend.Id())

	r, err := renderer.New(backend, tracer.NewRandomNoise(ctx.Int64("seed")), opts)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return r, nil
}

// Build the animation from the scene file, applying any flag overrides.
func animationFromFlags(ctx *cli.Context, sf *reader.SceneFile) (*scene.Animation, error) {
	if !ctx.IsSet("eye-to") && !ctx.IsSet("frames") {
		if sf.Animation == nil {
			return nil, fmt.Errorf("%w: scene %q does not define an animation; use --eye-to and --frames", scene.ErrInvalidConfig, sf.Path)
		}
		return sf.Animation, nil
	}

	to := sf.Eye
	frames := uint32(1)
	if sf.Animation != nil {
		to, frames = sf.Animation.To, sf.Animation.Frames()
	}

	if ctx.IsSet("eye-to") {
		v, err := parseVec3(ctx.String("eye-to"))
		if err != nil {
			return nil, err
		}
		to = v
	}
	if ctx.IsSet("frames") {
		if ctx.Int("frames") <= 0 {
			return nil, fmt.Errorf("%w: frame count must be positive; got %d", scene.ErrInvalidConfig, ctx.Int("frames"))
		}
		frames = uint32(ctx.Int("frames"))
	}

	return scene.NewAnimation(sf.Eye, to, frames)
}

// Expand a frame range. A negative to value selects the last frame.
func frameRange(from, to int, numFrames uint32) ([]uint32, error) {
	if to < 0 {
		to = int(numFrames)
	}
	if from < 0 || from > to || to > int(numFrames) {
		return nil, fmt.Errorf("%w: invalid frame range [%d, %d]; animation frames are [0, %d]", scene.ErrFrameOutOfRange, from, to, numFrames)
	}

	frames := make([]uint32, 0, to-from+1)
	for f := from; f <= to; f++ {
		frames = append(frames, uint32(f))
	}
	return frames, nil
}

// Parse a vector in "x,y,z" format.
func parseVec3(value string) (types.Vec3, error) {
	var v types.Vec3
	tokens := strings.Split(value, ",")
	if len(tokens) != 3 {
		return v, fmt.Errorf("invalid vector %q; expected x,y,z", value)
	}

	for i, token := range tokens {
		f, err := strconv.ParseFloat(strings.TrimSpace(token), 32)
		if err != nil {
			return v, fmt.Errorf("invalid vector %q: %w", value, err)
		}
		v[i] = float32(f)
	}
	return v, nil
}

func displayFrameStats(frames []renderer.FrameStats, failed []renderer.FrameFailure) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Frame", "Target", "Tiles", "Rays", "Max queue depth", "Backend time", "Render time"})
	for _, stat := range frames {
		table.Append([]string{
			fmt.Sprintf("%d", stat.Frame),
			stat.Target,
			fmt.Sprintf("%d", stat.Tiles),
			fmt.Sprintf("%d", stat.Rays),
			fmt.Sprintf("%d / %d", stat.MaxTileQueueDepth, stat.MaxResultQueueDepth),
			stat.BackendTime.String(),
			stat.RenderTime.String(),
		})
	}
	for _, failure := range failed {
		table.Append([]string{
			fmt.Sprintf("%d", failure.Frame),
			"FAILED",
			"-",
			"-",
			"-",
			"-",
			failure.Err.Error(),
		})
	}

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}

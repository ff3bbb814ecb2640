package main

import (
	"fmt"
	"os"

	"github.com/achilleasa/raystream/cmd"
	"github.com/achilleasa/raystream/renderer"
	"github.com/urfave/cli"
)

func renderFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:   "width",
			Value:  512,
			Usage:  "frame width",
			EnvVar: "RAYSTREAM_WIDTH",
		},
		cli.IntFlag{
			Name:   "height",
			Value:  512,
			Usage:  "frame height",
			EnvVar: "RAYSTREAM_HEIGHT",
		},
		cli.StringFlag{
			Name:   "backend",
			Value:  "cpu",
			Usage:  "compute backend to use (see list-backends)",
			EnvVar: "RAYSTREAM_BACKEND",
		},
		cli.IntFlag{
			Name:   "spp",
			Value:  1,
			Usage:  "jittered samples per pixel",
			EnvVar: "RAYSTREAM_SPP",
		},
		cli.Float64Flag{
			Name:   "jitter",
			Value:  0.001,
			Usage:  "ray jitter amplitude",
			EnvVar: "RAYSTREAM_JITTER",
		},
		cli.Int64Flag{
			Name:   "seed",
			Value:  1,
			Usage:  "seed for the per-tile noise textures",
			EnvVar: "RAYSTREAM_SEED",
		},
		cli.IntFlag{
			Name:   "workers",
			Value:  0,
			Usage:  "number of cpu backend workers (0 = one per cpu)",
			EnvVar: "RAYSTREAM_WORKERS",
		},
		cli.StringFlag{
			Name:   "device",
			Value:  "",
			Usage:  "select the fastest opencl device whose name contains this value",
			EnvVar: "RAYSTREAM_DEVICE",
		},
		cli.IntFlag{
			Name:   "tile-capacity",
			Value:  renderer.DefaultTileCapacity,
			Usage:  "number of rays per tile; must be a perfect square",
			EnvVar: "RAYSTREAM_TILE_CAPACITY",
		},
		cli.IntFlag{
			Name:   "queue-capacity",
			Value:  renderer.DefaultQueueCapacity,
			Usage:  "number of tiles buffered between pipeline stages",
			EnvVar: "RAYSTREAM_QUEUE_CAPACITY",
		},
		cli.StringFlag{
			Name:   "format",
			Value:  "",
			Usage:  "output image format (png, jpeg, bmp, tiff); detected from the file extension if empty",
			EnvVar: "RAYSTREAM_FORMAT",
		},
	}
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "raystream"
	app.Usage = "render scenes by streaming ray tiles through a compute backend"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.StringFlag{
			Name:   "log-level",
			Usage:  "set log level (debug, info, notice, warning, error); use name=level to target a single component, e.g. \"notice,renderer=debug\"",
			EnvVar: "RAYSTREAM_LOG_LEVEL",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "list-backends",
			Usage:  "list available compute backends",
			Action: cmd.ListBackends,
		},
		{
			Name:   "list-devices",
			Usage:  "list available opencl devices",
			Action: cmd.ListDevices,
		},
		{
			Name:      "scene-info",
			Usage:     "parse scene files and display their contents",
			ArgsUsage: "scene_file1 scene_file2 ...",
			Action:    cmd.SceneInfo,
		},
		{
			Name:   "render",
			Usage:  "render scene",
			Action: nil,
			Subcommands: []cli.Command{
				{
					Name:  "frame",
					Usage: "render single frame",
					Description: `
Render a single frame of a scene file. The scene may be a local path or an
http/https URL. If no scene file is specified, the default scene is rendered.`,
					ArgsUsage: "[scene_file]",
					Flags: append(renderFlags(),
						cli.StringFlag{
							Name:   "out, o",
							Value:  "frame.png",
							Usage:  "image filename for the rendered frame",
							EnvVar: "RAYSTREAM_OUT",
						},
					),
					Action: cmd.RenderFrame,
				},
				{
					Name:  "animation",
					Usage: "render a camera animation",
					Description: `
Render a camera fly-through. The eye moves along a straight line from the scene
eye position to the animation target over N frames; frames 0 to N are rendered
and written to files named after the --out pattern.`,
					ArgsUsage: "[scene_file]",
					Flags: append(renderFlags(),
						cli.StringFlag{
							Name:   "out, o",
							Value:  "frame-%04d.png",
							Usage:  "image filename pattern; %d is replaced by the frame index",
							EnvVar: "RAYSTREAM_OUT",
						},
						cli.StringFlag{
							Name:   "eye-to",
							Usage:  "animation target eye position as x,y,z",
							EnvVar: "RAYSTREAM_EYE_TO",
						},
						cli.IntFlag{
							Name:   "frames",
							Usage:  "animation frame count N",
							EnvVar: "RAYSTREAM_FRAMES",
						},
						cli.IntFlag{
							Name:  "from",
							Value: 0,
							Usage: "first frame to render",
						},
						cli.IntFlag{
							Name:  "to",
							Value: -1,
							Usage: "last frame to render (-1 = last animation frame)",
						},
						cli.BoolFlag{
							Name:   "continue-on-error",
							Usage:  "keep rendering the remaining frames when a frame fails",
							EnvVar: "RAYSTREAM_CONTINUE_ON_ERROR",
						},
					),
					Action: cmd.RenderAnimation,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/achernar/stardust/cmd"
	"github.com/urfave/cli"
)

// Flags shared by every command that sets up a renderer.
var renderFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "width",
		Value: 512,
		Usage: "frame width",
	},
	cli.IntFlag{
		Name:  "height",
		Value: 512,
		Usage: "frame height",
	},
	cli.IntFlag{
		Name:  "spp",
		Value: 4,
		Usage: "samples per pixel",
	},
	cli.IntFlag{
		Name:  "num-bounces",
		Value: 1,
		Usage: "number of indirect ray bounces",
	},
	cli.Float64Flag{
		Name:  "exposure",
		Value: 1.2,
		Usage: "camera exposure for tone-mapping",
	},
	cli.Float64Flag{
		Name:  "blend",
		Value: 0,
		Usage: "temporal blend factor; values at or below zero select the tracer default",
	},
	cli.Float64Flag{
		Name:  "time-step",
		Value: 0,
		Usage: "animation time advance per frame in seconds; zero renders a static scene",
	},
	cli.StringSliceFlag{
		Name:  "blacklist, b",
		Value: &cli.StringSlice{},
		Usage: "blacklist devices whose names contain this value",
	},
	cli.StringFlag{
		Name:  "force-primary",
		Usage: "force a device whose name contains this value to be the primary tracer",
	},
}

// Flags selecting the procedural scene used when no snapshot argument is
// given.
var sceneFlags = []cli.Flag{
	cli.StringFlag{
		Name:  "preset",
		Value: "orbit",
		Usage: "procedural scene preset (orbit, galaxy or lattice)",
	},
	cli.IntFlag{
		Name:  "particles",
		Value: 10000,
		Usage: "number of generated particles",
	},
	cli.IntFlag{
		Name:  "seed",
		Value: 1,
		Usage: "seed for the procedural generator and the path tracer",
	},
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "stardust"
	app.Usage = "render particle clouds using path tracing"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "scene",
			Usage: "generate and inspect particle scene snapshots",
			Subcommands: []cli.Command{
				{
					Name:  "generate",
					Usage: "generate a particle snapshot from a procedural preset",
					Description: `
Sample a procedural particle preset at a fixed animation time and compress the
resulting snapshot to a zip archive which can be supplied as an argument to
the render commands.`,
					Flags: append([]cli.Flag{
						cli.Float64Flag{
							Name:  "time",
							Value: 0,
							Usage: "animation time the snapshot is sampled at",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "scene.zip",
							Usage: "filename for the compressed scene",
						},
					}, sceneFlags...),
					Action: cmd.GenerateScene,
				},
				{
					Name:      "info",
					Usage:     "print information about a compressed scene snapshot",
					ArgsUsage: "scene.zip",
					Action:    cmd.ShowSceneInfo,
				},
			},
		},
		{
			Name:   "list-devices",
			Usage:  "list available compute devices",
			Action: cmd.ListDevices,
		},
		{
			Name:  "render",
			Usage: "render scene",
			Subcommands: []cli.Command{
				{
					Name:        "frame",
					Usage:       "render single frame",
					Description: `Render a single frame to a png file.`,
					ArgsUsage:   "[scene.zip]",
					Flags: append([]cli.Flag{
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame.png",
							Usage: "image filename for the rendered frame",
						},
					}, append(renderFlags, sceneFlags...)...),
					Action: cmd.RenderFrame,
				},
				{
					Name:        "animation",
					Usage:       "render an animated frame sequence",
					Description: `Render a sequence of numbered png frames advancing the scene between frames.`,
					ArgsUsage:   "[scene.zip]",
					Flags: append([]cli.Flag{
						cli.IntFlag{
							Name:  "frames",
							Value: 120,
							Usage: "number of frames to render",
						},
						cli.StringFlag{
							Name:  "out, o",
							Value: "frame-%04d.png",
							Usage: "printf-style filename pattern for the rendered frames",
						},
					}, append(renderFlags, sceneFlags...)...),
					Action: cmd.RenderAnimation,
				},
				{
					Name:        "interactive",
					Usage:       "render interactive view of the scene",
					Description: `Render a continuously updating view of the scene into an opengl window.`,
					ArgsUsage:   "[scene.zip]",
					Flags:       append(renderFlags, sceneFlags...),
					Action:      cmd.RenderInteractive,
				},
			},
		},
		{
			Name:        "serve",
			Usage:       "serve a browser-based view of the scene",
			Description: `Stream rendered frames to connected browsers over a websocket.`,
			ArgsUsage:   "[scene.zip]",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "addr",
					Value: "localhost:8089",
					Usage: "address to listen on",
				},
				cli.IntFlag{
					Name:  "fps",
					Value: 20,
					Usage: "target broadcast frame rate",
				},
			}, append(renderFlags, sceneFlags...)...),
			Action: cmd.Serve,
		},
		{
			Name:  "debug",
			Usage: "trace a single block and dump per-stage timings",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "out, o",
					Value: "debug.png",
					Usage: "image filename for the traced block",
				},
			}, append(renderFlags, sceneFlags...)...),
			Action: cmd.Debug,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

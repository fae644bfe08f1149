package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/achernar/stardust/renderer"
	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/tracer/native"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Render a still frame.
func RenderFrame(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := rendererOptions(ctx)

	sc, err := setupScene(ctx)
	if err != nil {
		return err
	}

	// Update projection matrix
	sc.Camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	// Setup tracing pipeline
	pipeline := native.DefaultPipeline()
	pipeline.PostProcess = append(pipeline.PostProcess, native.SaveFrameBuffer(ctx.String("out")))

	// Create renderer
	r, err := renderer.NewDefault(sc, tracer.NaiveScheduler(), pipeline, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	err = r.Render()
	if err != nil {
		return err
	}
	logger.Noticef(`wrote frame to "%s"`, ctx.String("out"))

	// Display stats
	displayFrameStats(r.Stats())

	return nil
}

// Render an animation as a sequence of numbered frames. The scene is advanced
// by the time-step flag between frames and each frame accumulates on top of
// the previous ones unless the camera moves.
func RenderAnimation(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := rendererOptions(ctx)

	numFrames := ctx.Int("frames")
	if numFrames <= 0 {
		return errors.New("the frames flag must be a positive number")
	}

	pattern := ctx.String("out")
	if strings.Contains(fmt.Sprintf(pattern, 0), "%!") {
		return errors.New("the out flag must contain a printf-style frame index verb, e.g. frame-%04d.png")
	}

	sc, err := setupScene(ctx)
	if err != nil {
		return err
	}
	sc.Camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	r, err := renderer.NewDefault(sc, tracer.NaiveScheduler(), native.DefaultPipeline(), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	logger.Noticef("rendering %d frames with a %.4fs time step", numFrames, opts.TimeStep)
	start := time.Now()
	for frame := 0; frame < numFrames; frame++ {
		if err = r.Render(); err != nil {
			return err
		}

		imgFile := fmt.Sprintf(pattern, frame)
		if err = exportFrame(r.Film(), imgFile); err != nil {
			return err
		}
		logger.Infof("rendered frame %d/%d to %s", frame+1, numFrames, imgFile)
	}
	logger.Noticef("rendered %d frames in %d ms", numFrames, time.Since(start).Nanoseconds()/1e6)

	return nil
}

// Use opengl to render a continuously updating view of the scene.
func RenderInteractive(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := rendererOptions(ctx)

	sc, err := setupScene(ctx)
	if err != nil {
		return err
	}
	sc.Camera.SetupProjection(float32(opts.FrameW) / float32(opts.FrameH))

	r, err := renderer.NewInteractive(sc, tracer.NaiveScheduler(), native.DefaultPipeline(), opts)
	if err != nil {
		return err
	}
	defer r.Close()

	return r.Render()
}

// Assemble renderer options from the command flags.
func rendererOptions(ctx *cli.Context) renderer.Options {
	return renderer.Options{
		FrameW:          uint32(ctx.Int("width")),
		FrameH:          uint32(ctx.Int("height")),
		SamplesPerPixel: uint32(ctx.Int("spp")),
		NumBounces:      uint32(ctx.Int("num-bounces")),
		Exposure:        float32(ctx.Float64("exposure")),
		Blend:           float32(ctx.Float64("blend")),
		Seed:            uint32(ctx.Int("seed")),
		TimeStep:        float32(ctx.Float64("time-step")),
		//
		BlackListedDevices: ctx.StringSlice("blacklist"),
		ForcePrimaryDevice: ctx.String("force-primary"),
	}
}

// Load the compressed scene snapshot passed as the command argument or, when
// no argument is given, generate a procedural demo scene from the preset
// flags.
func setupScene(ctx *cli.Context) (*scene.Scene, error) {
	if ctx.NArg() > 1 {
		return nil, errors.New("expected at most one scene file argument")
	}
	if ctx.NArg() == 1 {
		return scene.ReadScene(ctx.Args().First())
	}

	preset, err := scene.ParsePreset(ctx.String("preset"))
	if err != nil {
		return nil, err
	}
	return scene.NewDemoScene(preset, ctx.Int("particles"), uint32(ctx.Int("seed"))), nil
}

// Write the film's RGBA plane to a png file.
func exportFrame(film *tracer.Film, imgFile string) error {
	f, err := os.Create(imgFile)
	if err != nil {
		return err
	}
	defer f.Close()

	im := image.NewRGBA(image.Rect(0, 0, int(film.Width), int(film.Height)))
	copy(im.Pix, film.FrameBuffer)
	return png.Encode(f, im)
}

func displayFrameStats(stats renderer.FrameStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)

	headers := []string{"Device", "Primary", "Block height", "% of frame", "Render time"}
	if len(stats.Tracers) != 0 {
		for _, stageTime := range stats.Tracers[0].StageTimes {
			headers = append(headers, stageTime.Name)
		}
	}
	table.SetHeader(headers)

	for _, stat := range stats.Tracers {
		row := []string{
			stat.Id,
			fmt.Sprintf("%t", stat.IsPrimary),
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			stat.RenderTime.String(),
		}
		for _, stageTime := range stat.StageTimes {
			row = append(row, stageTime.Time.String())
		}
		table.Append(row)
	}

	footer := make([]string, len(headers))
	footer[3] = "TOTAL"
	footer[4] = stats.RenderTime.String()
	table.SetFooter(footer)

	table.Render()
	logger.Noticef("frame statistics\n%s", buf.String())
}

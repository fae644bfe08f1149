package cmd

import (
	"github.com/achernar/stardust/renderer"
	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/tracer/native"
	"github.com/achernar/stardust/web"
	"github.com/urfave/cli"
)

// Serve a browser-based view of the scene over a websocket.
func Serve(ctx *cli.Context) error {
	setupLogging(ctx)

	opts := rendererOptions(ctx)

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

	return web.NewServer(ctx.String("addr"), r, sc, ctx.Int("fps")).Serve()
}

package cmd

import (
	"fmt"

	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/tracer/native"
	"github.com/achernar/stardust/tracer/native/device"
	"github.com/urfave/cli"
)

const (
	debugFrameW uint32 = 512
	debugFrameH uint32 = 512
)

func findDevice(names []string) (*device.Device, error) {
	for _, name := range names {
		devList, err := device.SelectDevices(device.AllDevices, name)
		if err != nil {
			logger.Error(err)
			return nil, err
		}

		if len(devList) != 0 {
			return devList[0], nil
		}
	}

	return nil, fmt.Errorf("no suitable device found")
}

// Trace a single block on a single device and dump the per-stage timing
// breakdown. Useful for profiling pipeline changes without the renderer in
// the way.
func Debug(ctx *cli.Context) error {
	setupLogging(ctx)

	sc, err := setupScene(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}

	// Update projection matrix
	sc.Camera.SetupProjection(float32(debugFrameW) / float32(debugFrameH))

	// Setup tracer
	dev, err := findDevice([]string{"CPU"})
	if err != nil {
		logger.Error(err)
		return err
	}
	logger.Noticef(`using device "%s"`, dev.Name)

	// Setup pipeline
	pipeline := native.DefaultPipeline()
	pipeline.PostProcess = append(pipeline.PostProcess, native.SaveFrameBuffer(ctx.String("out")))

	tr, err := native.NewTracer("tr-0", dev, pipeline)
	if err != nil {
		logger.Error(err)
		return err
	}
	err = tr.Init()
	if err != nil {
		logger.Error(err)
		return fmt.Errorf("error initializing compute device")
	}
	defer tr.Close()

	// Queue state changes
	tr.UpdateState(tracer.Synchronous, tracer.FilmData, tracer.NewFilm(debugFrameW, debugFrameH))
	tr.UpdateState(tracer.Synchronous, tracer.SceneData, sc)
	tr.UpdateState(tracer.Synchronous, tracer.CameraData, sc.Camera)

	// Setup block
	blockReq := &tracer.BlockRequest{
		FrameW:          debugFrameW,
		FrameH:          debugFrameH,
		BlockX:          0,
		BlockY:          0,
		BlockW:          debugFrameW,
		BlockH:          debugFrameH,
		SamplesPerPixel: uint32(ctx.Int("spp")),
		NumBounces:      uint32(ctx.Int("num-bounces")),
		Exposure:        float32(ctx.Float64("exposure")),
		Reset:           true,
		Seed:            uint32(ctx.Int("seed")),
	}

	// Render
	_, err = tr.Trace(blockReq)
	if err != nil {
		logger.Error(err)
		return err
	}

	stats := tr.Stats()
	logger.Noticef("traced %dx%d block in %s", blockReq.BlockW, blockReq.BlockH, stats.RenderTime)
	for _, stageTime := range stats.StageTimes {
		logger.Noticef("  %-12s %s", stageTime.Name, stageTime.Time)
	}

	return nil
}

package renderer

import (
	"strings"
	"time"

	"github.com/achernar/stardust/log"
	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/tracer/native"
	"github.com/achernar/stardust/tracer/native/device"
)

// The default headless renderer. It owns the shared output film, splits each
// frame into row blocks via the supplied scheduler and drives the attached
// tracers through their block request channels.
type defaultRenderer struct {
	logger log.Logger

	options Options

	sc   *scene.Scene
	film *tracer.Film

	scheduler tracer.BlockScheduler
	tracers   []tracer.Tracer

	// The last block height assignment, one entry per tracer.
	blockAssignments []uint32

	// Block completion channels shared by all in-flight requests.
	doneChan chan uint32
	errChan  chan error

	// Per-frame state.
	frameIndex    uint32
	animationTime float32
	pendingReset  bool

	stats  FrameStats
	closed bool
}

// Create a new headless renderer using the specified block scheduler and
// tracing pipeline. The renderer attaches a tracer for every usable compute
// device and uploads the film and scene data to each of them.
func NewDefault(sc *scene.Scene, scheduler tracer.BlockScheduler, pipeline *native.Pipeline, opts Options) (Renderer, error) {
	if sc == nil {
		return nil, ErrSceneNotDefined
	}
	if sc.Camera == nil {
		return nil, ErrCameraNotDefined
	}

	r := &defaultRenderer{
		logger:    log.New("renderer"),
		options:   opts,
		sc:        sc,
		film:      tracer.NewFilm(opts.FrameW, opts.FrameH),
		scheduler: scheduler,
	}

	devList, err := filteredDevices(opts)
	if err != nil {
		return nil, err
	}

	for _, dev := range devList {
		tr, err := native.NewTracer(dev.Name, dev, pipeline)
		if err != nil {
			r.logger.Warningf(`skipping device "%s": %v`, dev.Name, err)
			continue
		}

		if err = tr.Init(); err != nil {
			r.logger.Warningf(`skipping device "%s" due to init error: %v`, dev.Name, err)
			tr.Close()
			continue
		}

		r.logger.Noticef(`attaching tracer for device "%s"`, dev.Name)
		r.tracers = append(r.tracers, tr)
	}
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	r.doneChan = make(chan uint32, len(r.tracers))
	r.errChan = make(chan error, len(r.tracers))

	for _, tr := range r.tracers {
		if err = tr.UpdateState(tracer.Synchronous, tracer.FilmData, r.film); err != nil {
			r.Close()
			return nil, err
		}
		if err = tr.UpdateState(tracer.Synchronous, tracer.SceneData, sc); err != nil {
			r.Close()
			return nil, err
		}
	}

	return r, nil
}

// Enumerate the platform devices and drop the ones matching a blacklist
// entry. When a force-primary pattern is set the matching device is moved to
// the head of the list.
func filteredDevices(opts Options) ([]*device.Device, error) {
	platforms, err := device.GetPlatformInfo()
	if err != nil {
		return nil, err
	}

	list := make([]*device.Device, 0)
	for _, platform := range platforms {
		for _, dev := range platform.Devices {
			blacklisted := false
			for _, pattern := range opts.BlackListedDevices {
				if strings.Contains(dev.Name, pattern) {
					blacklisted = true
					break
				}
			}
			if !blacklisted {
				list = append(list, dev)
			}
		}
	}

	if opts.ForcePrimaryDevice != "" {
		for idx, dev := range list {
			if strings.Contains(dev.Name, opts.ForcePrimaryDevice) {
				list[0], list[idx] = list[idx], list[0]
				break
			}
		}
	}

	return list, nil
}

// Render the next frame.
func (r *defaultRenderer) Render() error {
	return r.renderFrame()
}

// Push the scene camera state to the attached tracers. The change is applied
// before the next traced block and restarts temporal accumulation.
func (r *defaultRenderer) UpdateCamera() {
	for _, tr := range r.tracers {
		tr.UpdateState(tracer.Asynchronous, tracer.CameraData, r.sc.Camera)
	}
	r.pendingReset = true
}

// Get the shared output film.
func (r *defaultRenderer) Film() *tracer.Film {
	return r.film
}

// Get render statistics for the last frame.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Shutdown the renderer and any attached tracers.
func (r *defaultRenderer) Close() {
	if r.closed {
		return
	}
	r.closed = true

	for _, tr := range r.tracers {
		tr.Close()
	}
}

// Render a single frame: refresh the procedural scene snapshot, split the
// frame into row blocks, dispatch them to the attached tracers and wait for
// every block to complete.
func (r *defaultRenderer) renderFrame() error {
	if r.closed {
		return ErrInterrupted
	}

	start := time.Now()

	// Animated scenes regenerate their particle snapshot before each
	// frame; the upload copies the data so in-flight kernels never alias
	// the generator's buffers.
	if r.sc.Generator != nil {
		r.sc.Animate(r.animationTime)
		for _, tr := range r.tracers {
			if err := tr.UpdateState(tracer.Synchronous, tracer.SceneData, r.sc); err != nil {
				return err
			}
		}
	}

	reset := r.frameIndex == 0 || r.pendingReset
	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)

	var blockY uint32 = 0
	for idx, tr := range r.tracers {
		blockReq := tracer.BlockRequest{
			FrameW:          r.options.FrameW,
			FrameH:          r.options.FrameH,
			BlockX:          0,
			BlockY:          blockY,
			BlockW:          r.options.FrameW,
			BlockH:          r.blockAssignments[idx],
			SamplesPerPixel: r.options.SamplesPerPixel,
			NumBounces:      r.options.NumBounces,
			Exposure:        r.options.Exposure,
			Blend:           r.options.Blend,
			Reset:           reset,
			Seed:            r.options.Seed,
			FrameIndex:      r.frameIndex,
			Time:            r.animationTime,
			DoneChan:        r.doneChan,
			ErrChan:         r.errChan,
		}
		blockY += blockReq.BlockH

		tr.Enqueue(blockReq)
	}

	// Wait for every tracer to report in; each one signals exactly once.
	var renderErr error
	for pending := len(r.tracers); pending > 0; pending-- {
		select {
		case <-r.doneChan:
		case err := <-r.errChan:
			if renderErr == nil {
				renderErr = err
			}
		}
	}
	if renderErr != nil {
		return renderErr
	}

	r.frameIndex++
	r.animationTime += r.options.TimeStep
	r.pendingReset = false

	r.collectStats(time.Since(start))
	return nil
}

// Snapshot per-tracer statistics for the completed frame.
func (r *defaultRenderer) collectStats(renderTime time.Duration) {
	r.stats.RenderTime = renderTime
	r.stats.Tracers = r.stats.Tracers[:0]

	for idx, tr := range r.tracers {
		trStats := tr.Stats()
		r.stats.Tracers = append(r.stats.Tracers, TracerStat{
			Id:           tr.Id(),
			IsPrimary:    idx == 0,
			BlockH:       trStats.BlockH,
			FramePercent: 100.0 * float32(trStats.BlockH) / float32(r.options.FrameH),
			RenderTime:   trStats.RenderTime,
			StageTimes:   append([]tracer.StageTime(nil), trStats.StageTimes...),
		})
	}
}

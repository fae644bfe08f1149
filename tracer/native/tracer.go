package native

import (
	"fmt"
	"sync"
	"time"

	"github.com/achernar/stardust/log"
	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/tracer/native/device"
)

// Tracer renders blocks on an in-process compute device.
type Tracer struct {
	logger log.Logger

	sync.Mutex
	wg sync.WaitGroup

	// The device associated with this tracer instance.
	device *device.Device

	// The allocated device resources.
	resources *deviceResources

	// The tracer id.
	id string

	// A buffer for queuing updates. Updates are grouped by type and the
	// latest update always overwrites the previous one.
	updateBuffer map[tracer.ChangeType]interface{}

	// A channel for receiving block requests from the renderer.
	blockReqChan chan tracer.BlockRequest

	// A channel for signaling the worker to exit.
	closeChan chan struct{}

	// Statistics for the last rendered block.
	stats *tracer.Stats

	// The tracer rendering pipeline.
	pipeline *Pipeline

	// Device speed in GFlops.
	speed uint32

	// The uploaded scene.
	sceneData *scene.Scene
}

// Create a new native tracer attached to the given compute device. A nil
// pipeline selects the default frame sequence.
func NewTracer(id string, dev *device.Device, pipeline *Pipeline) (*Tracer, error) {
	if dev == nil {
		return nil, ErrInvalidDevice
	}
	if pipeline == nil {
		pipeline = DefaultPipeline()
	}

	return &Tracer{
		logger:       log.New(fmt.Sprintf("native tracer (%s)", dev.Name)),
		device:       dev,
		id:           id,
		updateBuffer: make(map[tracer.ChangeType]interface{}, 0),
		// Buffer one request so a renderer that enqueues the next block
		// right after receiving the previous completion signal does not
		// race the worker re-entering its select loop.
		blockReqChan: make(chan tracer.BlockRequest, 1),
		stats:        &tracer.Stats{},
		pipeline:     pipeline,
		speed:        dev.Speed,
	}, nil
}

// Get tracer id.
func (tr *Tracer) Id() string {
	return tr.id
}

// Get tracer flags.
func (tr *Tracer) Flags() tracer.Flag {
	return tracer.Local
}

// Get the computation speed estimate (in GFlops).
func (tr *Tracer) Speed() uint32 {
	return tr.speed
}

// Initialize the tracer: register the kernel program with the device,
// resolve kernel handles and start the block worker.
func (tr *Tracer) Init() error {
	tr.Lock()
	defer tr.Unlock()

	if tr.resources != nil {
		return nil
	}

	var err error
	tr.resources, err = newDeviceResources(tr.device)
	if err != nil {
		tr.cleanup()
		return err
	}

	if tr.closeChan == nil {
		tr.startWorker()
	}

	return nil
}

// Shutdown and cleanup tracer.
func (tr *Tracer) Close() {
	tr.Lock()
	closeChan := tr.closeChan
	tr.closeChan = nil
	tr.Unlock()

	// Signal the worker and wait for it to drain. This must not happen
	// under the tracer lock: a worker blocked inside Trace needs the lock
	// to finish before it can observe the close signal.
	if closeChan != nil {
		close(closeChan)
		tr.wg.Wait()
	}

	tr.Lock()
	defer tr.Unlock()
	tr.cleanup()
}

// Release device resources. This method is meant to be called while holding
// tr.Lock()
func (tr *Tracer) cleanup() {
	if tr.resources != nil {
		tr.resources.Close()
		tr.resources = nil
	}

	if tr.device != nil {
		tr.device.Close()
		tr.device = nil
	}

	tr.sceneData = nil
}

// Enqueue block request.
func (tr *Tracer) Enqueue(blockReq tracer.BlockRequest) {
	select {
	case tr.blockReqChan <- blockReq:
	default:
		// drop the request if worker is not listening
		tr.logger.Error("request processor did not receive block request")
	}
}

// Apply or queue a state change. Synchronous changes are applied before the
// method returns; asynchronous changes wait in the update buffer until the
// worker picks up the next block.
func (tr *Tracer) UpdateState(mode tracer.UpdateMode, changeType tracer.ChangeType, data interface{}) error {
	tr.Lock()
	defer tr.Unlock()

	if mode == tracer.Synchronous {
		return tr.applyUpdate(changeType, data)
	}

	tr.updateBuffer[changeType] = data
	return nil
}

// Retrieve last frame statistics.
func (tr *Tracer) Stats() *tracer.Stats {
	return tr.stats
}

// Apply a single state change. Must be called while holding tr.Lock().
func (tr *Tracer) applyUpdate(changeType tracer.ChangeType, data interface{}) error {
	if tr.resources == nil {
		return ErrInvalidDevice
	}

	switch changeType {
	case tracer.FilmData:
		film, ok := data.(*tracer.Film)
		if !ok {
			return ErrInvalidUpdateData
		}
		tr.resources.buffers.UploadFilmData(film)
	case tracer.SceneData:
		sc, ok := data.(*scene.Scene)
		if !ok {
			return ErrInvalidUpdateData
		}
		tr.sceneData = sc
		tr.resources.buffers.UploadSceneData(sc)
	case tracer.CameraData:
		camera, ok := data.(*scene.Camera)
		if !ok {
			return ErrInvalidUpdateData
		}
		tr.resources.buffers.UploadCameraData(camera)
	default:
		return ErrUnsupportedUpdate
	}

	return nil
}

// Commit queued changes. Must be called while holding tr.Lock().
func (tr *Tracer) commitUpdates() error {
	for changeType, data := range tr.updateBuffer {
		if err := tr.applyUpdate(changeType, data); err != nil {
			return err
		}
	}

	for changeType := range tr.updateBuffer {
		delete(tr.updateBuffer, changeType)
	}
	return nil
}

// Process a block request synchronously: commit pending updates, run every
// pipeline stage in order and update the block statistics.
func (tr *Tracer) Trace(blockReq *tracer.BlockRequest) (time.Duration, error) {
	tr.Lock()
	defer tr.Unlock()

	start := time.Now()

	if tr.resources == nil {
		return 0, ErrInvalidDevice
	}

	if len(tr.updateBuffer) != 0 {
		updStart := time.Now()
		if err := tr.commitUpdates(); err != nil {
			return time.Since(start), err
		}
		tr.stats.UpdateTime = time.Since(updStart)
	}

	if tr.resources.buffers.film == nil {
		return time.Since(start), ErrNoFilmData
	}
	if tr.sceneData == nil {
		return time.Since(start), ErrNoSceneData
	}

	tr.stats.StageTimes = tr.stats.StageTimes[:0]

	stages := []struct {
		name  string
		stage PipelineStage
	}{
		{"accelerator", tr.pipeline.Accelerator},
		{"integrator", tr.pipeline.Integrator},
		{"accumulator", tr.pipeline.Accumulator},
	}
	for _, entry := range stages {
		if entry.stage == nil {
			continue
		}
		elapsed, err := entry.stage(tr, blockReq)
		tr.stats.StageTimes = append(tr.stats.StageTimes, tracer.StageTime{Name: entry.name, Time: elapsed})
		if err != nil {
			return time.Since(start), err
		}
	}

	var postTime time.Duration
	for _, stage := range tr.pipeline.PostProcess {
		elapsed, err := stage(tr, blockReq)
		postTime += elapsed
		if err != nil {
			return time.Since(start), err
		}
	}
	tr.stats.StageTimes = append(tr.stats.StageTimes, tracer.StageTime{Name: "post-process", Time: postTime})

	tr.stats.BlockH = blockReq.BlockH
	tr.stats.RenderTime = time.Since(start)
	return tr.stats.RenderTime, nil
}

// Spawn a go-routine to process block render requests.
func (tr *Tracer) startWorker() {
	// Worker already running
	if tr.closeChan != nil {
		return
	}
	tr.closeChan = make(chan struct{}, 0)
	closeChan := tr.closeChan

	readyChan := make(chan struct{}, 0)
	tr.wg.Add(1)
	go func() {
		defer tr.wg.Done()
		var blockReq tracer.BlockRequest
		var err error
		close(readyChan)
		for {
			select {
			case blockReq = <-tr.blockReqChan:
				// Render block and reply with our completion status
				_, err = tr.Trace(&blockReq)
				if err != nil {
					blockReq.ErrChan <- err
					continue
				}

				blockReq.DoneChan <- blockReq.BlockH
			case <-closeChan:
				return
			}
		}
	}()

	// Wait for go-routine to start
	<-readyChan
}

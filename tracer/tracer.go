package tracer

import "time"

// Tracer capability flags.
type Flag uint8

const (
	// The tracer executes on a device attached to this host.
	Local Flag = 1 << iota
)

// Controls whether UpdateState applies a change immediately or queues it
// until the next traced block.
type UpdateMode int

const (
	// Apply the change before returning.
	Synchronous UpdateMode = iota

	// Queue the change; the tracer worker commits it before the next block.
	Asynchronous
)

// The type of a tracer state change.
type ChangeType int

const (
	// Attach the shared output film. Associated data: *Film.
	FilmData ChangeType = iota

	// Replace the scene snapshot (particles and lights). Associated data: *scene.Scene.
	SceneData

	// Update the camera frustrum block. Associated data: *scene.Camera.
	CameraData
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Block coordinates and dims.
	BlockX uint32
	BlockY uint32
	BlockW uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// The maximum number of indirect bounces per path.
	NumBounces uint32

	// The exposure value controls HDR -> LDR mapping.
	Exposure float32

	// The blend weight of the current frame against the accumulated history.
	Blend float32

	// When set, the accumulator discards its history and restarts from
	// this frame.
	Reset bool

	// A random seed value for the tracer's random number generator.
	Seed uint32

	// The index of the frame being rendered. Drives per-sample jitter and
	// the accumulator's history plane selection.
	FrameIndex uint32

	// The scene animation time for this frame, in seconds.
	Time float32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Per-stage timing breakdown for the last rendered block.
type StageTime struct {
	Name string
	Time time.Duration
}

// Tracer statistics.
type Stats struct {
	// The rendered block height.
	BlockH uint32

	// The time spent committing queued state changes.
	UpdateTime time.Duration

	// The total time for rendering the last block.
	RenderTime time.Duration

	// Per pipeline stage times for the last block, in execution order.
	StageTimes []StageTime
}

// The Tracer interface is implemented by all tracing backends.
type Tracer interface {
	// Get the tracer id.
	Id() string

	// Get the tracer capability flags.
	Flags() Flag

	// Get the computation speed estimate in GFlops.
	Speed() uint32

	// Initialize the tracer and start its block worker.
	Init() error

	// Shutdown and cleanup the tracer.
	Close()

	// Enqueue a block request for asynchronous processing. Completion is
	// signaled via the request's done/error channels.
	Enqueue(BlockRequest)

	// Process a block request synchronously and return the time taken.
	Trace(*BlockRequest) (time.Duration, error)

	// Apply or queue a state change.
	UpdateState(UpdateMode, ChangeType, interface{}) error

	// Retrieve last frame statistics.
	Stats() *Stats
}

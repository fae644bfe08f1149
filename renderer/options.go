package renderer

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// The maximum number of indirect bounces per path.
	NumBounces uint32

	// Exposure for tonemapping.
	Exposure float32

	// The blend weight of each new frame against the accumulated history.
	// Values at or below zero select the tracer default.
	Blend float32

	// The base seed for the per-pixel sample sequences.
	Seed uint32

	// The animation time step between frames, in seconds. A zero step
	// renders a static scene.
	TimeStep float32

	// Device selection.
	BlackListedDevices []string
	ForcePrimaryDevice string
}

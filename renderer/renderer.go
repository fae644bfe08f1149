package renderer

import "github.com/achernar/stardust/tracer"

// The Renderer interface is implemented by all renderer front ends.
type Renderer interface {
	// Render the next frame.
	Render() error

	// Push the scene camera state to the attached tracers and restart
	// temporal accumulation on the next frame.
	UpdateCamera()

	// Get the shared output film.
	Film() *tracer.Film

	// Get render statistics for the last frame.
	Stats() FrameStats

	// Shutdown renderer and any attached tracer.
	Close()
}

package tracer

import "github.com/achernar/stardust/types"

// Film holds the shared full-frame output planes written by the attached
// tracers. The renderer owns the film and hands it to each tracer via a
// FilmData state update; tracers only touch the rows of their assigned
// blocks, so no two tracers write the same pixel.
type Film struct {
	// Frame dims.
	Width  uint32
	Height uint32

	// Linear HDR radiance for the frame being rendered, one entry per pixel.
	Accumulator []types.Vec3

	// The temporal history planes. The plane read while accumulating
	// frame i is History[i&1]; its complement receives the blended output.
	History [2][]types.Vec3

	// The tonemapped 8-bit RGBA output.
	FrameBuffer []uint8
}

// Allocate a film for the given frame dimensions.
func NewFilm(frameW, frameH uint32) *Film {
	numPixels := int(frameW) * int(frameH)
	return &Film{
		Width:       frameW,
		Height:      frameH,
		Accumulator: make([]types.Vec3, numPixels),
		History: [2][]types.Vec3{
			make([]types.Vec3, numPixels),
			make([]types.Vec3, numPixels),
		},
		FrameBuffer: make([]uint8, numPixels*4),
	}
}

package integrator

import "github.com/achernar/stardust/types"

// DefaultBlend is the temporal blend factor used when a request does not
// specify one.
const DefaultBlend = 0.1

// Accumulate is the kernel body of the temporal accumulation stage. The
// invocation for one pixel blends the freshly integrated radiance into the
// previous frame's history plane and writes the result to the complementary
// plane; read and write planes are never the same buffer. With reset set
// the history is discarded and the current frame passes through unchanged.
func Accumulate(read, write, current []types.Vec3, pixel int, blend float32, reset bool) {
	if pixel >= len(current) {
		return
	}
	if reset {
		write[pixel] = current[pixel]
		return
	}
	write[pixel] = read[pixel].Lerp(current[pixel], blend)
}

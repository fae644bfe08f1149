package integrator

import "github.com/achernar/stardust/types"

// Tonemap is the kernel body of the post-process stage. The invocation for
// one pixel applies an exposure pre-scale, Reinhard compression and the
// 2.2 gamma transfer to the accumulated radiance and packs it into the
// film's RGBA byte plane.
func Tonemap(in []types.Vec3, out []uint8, pixel int, exposure float32) {
	if pixel >= len(in) {
		return
	}

	c := in[pixel].Mul(exposure)
	base := pixel * 4
	for i := 0; i < 3; i++ {
		v := c[i]
		if v < 0 {
			v = 0
		}
		v = v / (1 + v)
		v = pow32(v, 1/2.2)
		out[base+i] = uint8(v*255 + 0.5)
	}
	out[base+3] = 255
}

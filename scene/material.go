package scene

import "github.com/achernar/stardust/types"

// The surface description used by the tracer when shading a particle hit.
// Materials are never stored: MaterialFor derives one on demand from the
// particle index, so every invocation that shades the same particle
// reconstructs the exact same values without a lookup table.
type Material struct {
	Albedo    types.Vec3
	Roughness float32
	Metallic  float32
	Emissive  types.Vec3
}

// Derive the material for a particle from its index. Successive integer
// mixes of the index select albedo, roughness and the metal/emitter class;
// the result is deterministic for a given index.
func MaterialFor(index int32) Material {
	h0 := mix32(uint32(index) + 1)
	h1 := mix32(h0)
	h2 := mix32(h1)
	h3 := mix32(h2)

	mat := Material{
		Albedo: types.Vec3{
			0.15 + 0.85*unitFloat(h0),
			0.15 + 0.85*unitFloat(h1),
			0.15 + 0.85*unitFloat(h2),
		},
		Roughness: 0.05 + 0.9*unitFloat(h3),
	}

	// Roughly a quarter of the particles are polished metal and one in
	// sixteen is a glowing emitter.
	class := h3 >> 28
	switch {
	case class < 4:
		mat.Metallic = 1.0
		mat.Roughness *= 0.3
	case class == 15:
		mat.Emissive = mat.Albedo.Mul(4.0)
	}

	return mat
}

// Integer finalizer with good low-bit avalanche behavior.
func mix32(x uint32) uint32 {
	x ^= x >> 17
	x *= 0xed5ad4bb
	x ^= x >> 11
	x *= 0xac4c1b51
	x ^= x >> 15
	x *= 0x31848bab
	x ^= x >> 14
	return x
}

// Map a hash value to [0, 1).
func unitFloat(x uint32) float32 {
	return float32(x) * (1.0 / 4294967296.0)
}

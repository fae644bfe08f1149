package integrator

import (
	"math"

	"github.com/achernar/stardust/types"
)

// Rng is a small hash-driven random stream. Every pixel sample owns an
// independent stream derived from (pixel, frame, sample, seed), so the
// noise pattern is fully determined by those four values and identical
// between runs.
type Rng struct {
	state uint32
}

// NewRng derives the stream for one pixel sample.
func NewRng(pixel, frame, sample, seed uint32) Rng {
	state := mix32(pixel + 1)
	state = mix32(state ^ (frame*0x9E3779B9 + seed))
	state = mix32(state ^ (sample * 0x85EBCA6B))
	return Rng{state: state}
}

// Next returns the next number in [0, 1).
func (r *Rng) Next() float32 {
	r.state += 0x9E3779B9
	return unitFloat(mix32(r.state))
}

// Low-bias 32-bit integer mixer.
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

func unitFloat(x uint32) float32 {
	return float32(x) * (1.0 / 4294967296.0)
}

// OrthoBasis returns two unit vectors spanning the plane orthogonal to the
// unit vector n.
func OrthoBasis(n types.Vec3) (tangent, bitangent types.Vec3) {
	up := types.Vec3{1, 0, 0}
	if n[0] > 0.9 || n[0] < -0.9 {
		up = types.Vec3{0, 1, 0}
	}
	tangent = up.Cross(n).Normalize()
	bitangent = n.Cross(tangent)
	return tangent, bitangent
}

// CosineSample draws a cosine-weighted direction from the hemisphere around
// the unit normal n.
func CosineSample(n types.Vec3, rng *Rng) types.Vec3 {
	u1, u2 := rng.Next(), rng.Next()

	r := sqrt32(u1)
	phi := 2 * float32(math.Pi) * u2
	z := sqrt32(1 - u1)

	tangent, bitangent := OrthoBasis(n)
	return tangent.Mul(r * cos32(phi)).
		Add(bitangent.Mul(r * sin32(phi))).
		Add(n.Mul(z)).
		Normalize()
}

// GgxSample importance-samples a microfacet half-vector around the unit
// normal n for the given roughness. Roughness zero collapses the lobe onto
// the normal itself.
func GgxSample(n types.Vec3, roughness float32, rng *Rng) types.Vec3 {
	u1, u2 := rng.Next(), rng.Next()

	a := roughness * roughness
	cosTheta := sqrt32((1 - u1) / (1 + (a*a-1)*u1))
	sinTheta := sqrt32(1 - cosTheta*cosTheta)
	phi := 2 * float32(math.Pi) * u2

	tangent, bitangent := OrthoBasis(n)
	return tangent.Mul(sinTheta * cos32(phi)).
		Add(bitangent.Mul(sinTheta * sin32(phi))).
		Add(n.Mul(cosTheta)).
		Normalize()
}

func sqrt32(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Sqrt(float64(v)))
}

func sin32(v float32) float32 { return float32(math.Sin(float64(v))) }
func cos32(v float32) float32 { return float32(math.Cos(float64(v))) }
func pow32(v, e float32) float32 {
	return float32(math.Pow(float64(v), float64(e)))
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

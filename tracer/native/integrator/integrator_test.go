package integrator

import (
	"testing"

	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer/native/bvh"
	"github.com/achernar/stardust/types"
)

func TestRngDeterminism(t *testing.T) {
	first := NewRng(17, 3, 1, 42)
	second := NewRng(17, 3, 1, 42)
	other := NewRng(18, 3, 1, 42)

	differs := false
	for i := 0; i < 16; i++ {
		a, b, c := first.Next(), second.Next(), other.Next()
		if a != b {
			t.Fatalf("expected identical streams for identical parameters; sample %d: %f != %f", i, a, b)
		}
		if a < 0 || a >= 1 {
			t.Fatalf("expected samples in [0, 1); got %f", a)
		}
		if a != c {
			differs = true
		}
	}
	if !differs {
		t.Fatal("expected streams for different pixels to differ")
	}
}

func TestCosineSample(t *testing.T) {
	normals := []types.Vec3{
		{0, 0, 1},
		{0, 1, 0},
		{1, 0, 0},
		types.Vec3{1, 1, 1}.Normalize(),
		types.Vec3{-1, 2, -0.5}.Normalize(),
	}

	rng := NewRng(1, 2, 3, 4)
	for idx, n := range normals {
		for i := 0; i < 100; i++ {
			dir := CosineSample(n, &rng)
			if length := dir.Len(); length < 0.999 || length > 1.001 {
				t.Fatalf("[normal %d] expected a unit direction; got length %f", idx, length)
			}
			if dir.Dot(n) < -1e-4 {
				t.Fatalf("[normal %d] expected a direction in the hemisphere around %v; got %v", idx, n, dir)
			}
		}
	}
}

func TestGgxSample(t *testing.T) {
	n := types.Vec3{0, 1, 0}

	rng := NewRng(5, 6, 7, 8)
	for i := 0; i < 100; i++ {
		half := GgxSample(n, 0, &rng)
		if half.Dot(n) < 0.9999 {
			t.Fatalf("expected roughness 0 to collapse onto the normal; got %v", half)
		}
	}

	for i := 0; i < 100; i++ {
		half := GgxSample(n, 1, &rng)
		if length := half.Len(); length < 0.999 || length > 1.001 {
			t.Fatalf("expected a unit half-vector; got length %f", length)
		}
		if half.Dot(n) < -1e-4 {
			t.Fatalf("expected a half-vector in the hemisphere; got %v", half)
		}
	}
}

func TestFresnelSchlick(t *testing.T) {
	f0 := types.Vec3{0.04, 0.04, 0.04}

	head := fresnelSchlick(1, f0)
	if head != f0 {
		t.Fatalf("expected head-on reflectance to equal F0; got %v", head)
	}

	grazing := fresnelSchlick(0, f0)
	for i := 0; i < 3; i++ {
		if diff := grazing[i] - 1; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("expected grazing reflectance 1; got %v", grazing)
		}
	}
}

// Hand-assembled two-leaf tree so the shading tests do not depend on the
// builder.
func twoParticleTree(particles []scene.Particle) []bvh.Node {
	nodes := make([]bvh.Node, 3)

	min0, max0 := particles[0].BBox()
	nodes[1].SetBBox(min0, max0)
	nodes[1].SetParticle(0)

	min1, max1 := particles[1].BBox()
	nodes[2].SetBBox(min1, max1)
	nodes[2].SetParticle(1)

	nodes[0].SetBBox(types.MinVec3(min0, min1), types.MaxVec3(max0, max1))
	nodes[0].SetChildNodes(1, 2)
	return nodes
}

func TestDirectLightShadowGate(t *testing.T) {
	light := scene.Light{Position: types.Vec3{4, 0, 4}, Color: types.Vec3{1, 1, 1}, Intensity: 10, Radius: 1}
	material := scene.Material{Albedo: types.Vec3{0.8, 0.8, 0.8}, Roughness: 0.5}

	surface := scene.Particle{Position: types.Vec3{0, 0, 0}, Radius: 1}
	pos := types.Vec3{0, 0, 1}
	normal := types.Vec3{0, 0, 1}
	view := types.Vec3{0, 0, 1}

	// The blocker sits exactly on the segment between the surface point and
	// the light.
	blocked := []scene.Particle{surface, {Position: types.Vec3{2, 0, 2.5}, Radius: 0.6}}
	frame := &Frame{
		Nodes:     twoParticleTree(blocked),
		Particles: blocked,
		Lights:    []scene.Light{light},
	}
	if got := frame.directLight(pos, normal, view, &material); got != (types.Vec3{}) {
		t.Fatalf("expected no direct light through the blocker; got %v", got)
	}

	// Moving the blocker off axis restores the contribution.
	open := []scene.Particle{surface, {Position: types.Vec3{0, -20, 0}, Radius: 0.6}}
	frame = &Frame{
		Nodes:     twoParticleTree(open),
		Particles: open,
		Lights:    []scene.Light{light},
	}
	got := frame.directLight(pos, normal, view, &material)
	for i := 0; i < 3; i++ {
		if got[i] <= 0.01 {
			t.Fatalf("expected a lit surface with the blocker off axis; got %v", got)
		}
	}
}

func TestTracePixelSkyOnMiss(t *testing.T) {
	frame := &Frame{
		Eye: types.Vec3{0, 0, 0},
		Corners: [4]types.Vec3{
			{0, 0, -1}, {0, 0, -1}, {0, 0, -1}, {0, 0, -1},
		},
		Width:           1,
		Height:          1,
		SamplesPerPixel: 1,
	}

	out := make([]types.Vec3, 1)
	frame.TracePixel(out, 0, 0)

	expected := SkyGradient(types.Vec3{0, 0, -1})
	if out[0].Sub(expected).Len() > 1e-6 {
		t.Fatalf("expected the sky gradient %v on a miss; got %v", expected, out[0])
	}
}

func TestTracePixelDeterministic(t *testing.T) {
	particles := []scene.Particle{
		{Position: types.Vec3{0, 0, -10}, Radius: 2},
		{Position: types.Vec3{3, 1, -12}, Radius: 1.5},
	}
	frame := &Frame{
		Nodes:     twoParticleTree(particles),
		Particles: particles,
		Lights: []scene.Light{
			{Position: types.Vec3{0, 20, 0}, Color: types.Vec3{1, 0.9, 0.8}, Intensity: 40, Radius: 2},
			{Position: types.Vec3{-10, 5, -5}, Color: types.Vec3{0.3, 0.4, 1}, Intensity: 25, Radius: 1},
		},
		Eye: types.Vec3{0, 0, 0},
		Corners: [4]types.Vec3{
			{-0.5, 0.5, -1}, {0.5, 0.5, -1}, {-0.5, -0.5, -1}, {0.5, -0.5, -1},
		},
		Width:           8,
		Height:          8,
		SamplesPerPixel: 4,
		MaxBounces:      1,
		Seed:            1234,
		FrameIndex:      7,
	}

	first := make([]types.Vec3, 64)
	second := make([]types.Vec3, 64)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			frame.TracePixel(first, x, y)
			frame.TracePixel(second, x, y)
		}
	}

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("expected deterministic output; pixel %d: %v != %v", i, first[i], second[i])
		}
	}
}

func TestAccumulateReset(t *testing.T) {
	current := []types.Vec3{{0.25, 0.5, 0.75}, {1, 2, 3}}
	read := []types.Vec3{{9, 9, 9}, {9, 9, 9}}
	write := make([]types.Vec3, 2)

	for pixel := range current {
		Accumulate(read, write, current, pixel, 0.1, true)
	}

	for pixel := range current {
		if write[pixel] != current[pixel] {
			t.Fatalf("expected reset output to equal the current frame; pixel %d: %v", pixel, write[pixel])
		}
	}
}

func TestAccumulateDecay(t *testing.T) {
	const blend = 0.25

	var history [2][]types.Vec3
	history[0] = []types.Vec3{{1, 1, 1}}
	history[1] = make([]types.Vec3, 1)
	current := []types.Vec3{{0, 0, 0}}

	// With a black current frame the initial history should decay as
	// (1-blend)^k.
	for frame := uint32(0); frame < 5; frame++ {
		read := history[frame&1]
		write := history[(frame+1)&1]
		Accumulate(read, write, current, 0, blend, false)
	}

	expected := float32(1)
	for i := 0; i < 5; i++ {
		expected *= 1 - blend
	}

	got := history[5&1][0]
	for i := 0; i < 3; i++ {
		if diff := got[i] - expected; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("expected the seed frame to decay to %f after 5 frames; got %v", expected, got)
		}
	}
}

func TestTonemap(t *testing.T) {
	in := []types.Vec3{
		{0, 0, 0},
		{1e6, 1e6, 1e6},
		{0.2, 0.2, 0.2},
		{0.8, 0.8, 0.8},
	}
	out := make([]uint8, len(in)*4)

	for pixel := range in {
		Tonemap(in, out, pixel, 1)
	}

	if out[0] != 0 || out[1] != 0 || out[2] != 0 {
		t.Fatalf("expected black to stay black; got %v", out[0:3])
	}
	if out[4] != 255 || out[5] != 255 || out[6] != 255 {
		t.Fatalf("expected very bright input to saturate; got %v", out[4:7])
	}
	if out[8] >= out[12] {
		t.Fatalf("expected tone mapping to be monotonic; got %d >= %d", out[8], out[12])
	}
	for pixel := range in {
		if alpha := out[pixel*4+3]; alpha != 255 {
			t.Fatalf("expected opaque alpha for pixel %d; got %d", pixel, alpha)
		}
	}
}

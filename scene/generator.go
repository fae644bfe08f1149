package scene

import (
	"fmt"
	"math"

	"github.com/achernar/stardust/types"
)

// The procedural particle cloud presets supported by the scene commands.
type GeneratorPreset int

const (
	// Concentric tilted circular orbits around the volume center.
	PresetOrbit GeneratorPreset = iota

	// A two-armed logarithmic spiral disk with a central bulge.
	PresetGalaxy

	// A jittered cubic grid whose sites oscillate in place.
	PresetLattice
)

// Return the name of the preset. Panics on unsupported values.
func (p GeneratorPreset) String() string {
	switch p {
	case PresetOrbit:
		return "orbit"
	case PresetGalaxy:
		return "galaxy"
	case PresetLattice:
		return "lattice"
	}
	panic("scene: unsupported generator preset")
}

// Look up a generator preset by its name.
func ParsePreset(name string) (GeneratorPreset, error) {
	switch name {
	case "orbit":
		return PresetOrbit, nil
	case "galaxy":
		return PresetGalaxy, nil
	case "lattice":
		return PresetLattice, nil
	}
	return 0, fmt.Errorf("scene: unknown generator preset %q", name)
}

// Generator is a deterministic procedural particle source. Every particle
// state is a pure function of (preset, seed, index, time) so a frame snapshot
// can be regenerated for any time value without integrating motion steps.
type Generator struct {
	Preset GeneratorPreset
	Count  int
	Seed   uint32
}

// Assemble a demo scene around a generator: the procedural particle source,
// a default light rig and a camera looking at the volume center.
func NewDemoScene(preset GeneratorPreset, count int, seed uint32) *Scene {
	sc := NewScene()
	sc.Generator = &Generator{Preset: preset, Count: count, Seed: seed}
	sc.Lights = DefaultLights()
	sc.Camera.Position = types.Vec3{0, 14, 44}
	sc.Camera.LookAt = types.Vec3{0, 0, 0}
	sc.Animate(0)
	return sc
}

// The default three-point light rig: a white key light plus warm and cool
// fills. AnimateLights moves the rig on slow circular tracks.
func DefaultLights() []Light {
	return []Light{
		{Color: types.Vec3{1, 1, 1}, Intensity: 50, Radius: 35},
		{Color: types.Vec3{1, 0.6, 0.3}, Intensity: 25, Radius: 25},
		{Color: types.Vec3{0.4, 0.6, 1}, Intensity: 18, Radius: 22},
	}
}

// Fill dst with the particle snapshot for the given animation time. The
// destination slice is reused when its capacity suffices so steady-state
// frames allocate nothing.
func (g *Generator) Particles(time float32, dst []Particle) []Particle {
	if cap(dst) < g.Count {
		dst = make([]Particle, g.Count)
	}
	dst = dst[:g.Count]

	switch g.Preset {
	case PresetOrbit:
		g.orbit(time, dst)
	case PresetGalaxy:
		g.galaxy(time, dst)
	case PresetLattice:
		g.lattice(time, dst)
	}
	return dst
}

// Reposition the scene lights on slow circular tracks around the volume
// center. Light tracks derive from the generator seed just like particles.
func (g *Generator) AnimateLights(lights []Light, time float32) {
	for i := range lights {
		h0 := mix32(g.Seed ^ mix32(uint32(i)+0x9e3779b9))
		h1 := mix32(h0)
		h2 := mix32(h1)
		h3 := mix32(h2)

		track := 18 + 8*unitFloat(h0)
		height := (unitFloat(h1) - 0.5) * 24
		speed := 0.15 + 0.2*unitFloat(h2)
		angle := unitFloat(h3)*2*math.Pi + speed*time

		lights[i].Position = types.Vec3{track * cos32(angle), height, track * sin32(angle)}
	}
}

// Particles on concentric circular orbits with per-particle inclination.
// Angular speed falls off with orbit radius to mimic Keplerian motion.
func (g *Generator) orbit(time float32, dst []Particle) {
	for i := range dst {
		h0 := g.particleHash(i)
		h1 := mix32(h0)
		h2 := mix32(h1)
		h3 := mix32(h2)

		track := 4 + 24*sqrt32(unitFloat(h0))
		incl := (unitFloat(h1) - 0.5) * math.Pi / 3
		speed := 8 / (track * sqrt32(track))
		angle := unitFloat(h2)*2*math.Pi + speed*time

		sinA, cosA := sin32(angle), cos32(angle)
		sinI, cosI := sin32(incl), cos32(incl)

		dst[i].Position = types.Vec3{track * cosA, track * sinA * sinI, track * sinA * cosI}
		dst[i].Velocity = types.Vec3{-track * sinA, track * cosA * sinI, track * cosA * cosI}.Mul(speed)
		dst[i].Radius = 0.08 + 0.3*unitFloat(h3)*unitFloat(h3)
	}
}

// A rotating two-armed spiral disk. Arm membership alternates by index, disk
// thickness decays away from the bulge.
func (g *Generator) galaxy(time float32, dst []Particle) {
	for i := range dst {
		h0 := g.particleHash(i)
		h1 := mix32(h0)
		h2 := mix32(h1)
		h3 := mix32(h2)

		track := 2 + 26*pow32(unitFloat(h0), 0.7)
		arm := float32(i%2) * math.Pi
		speed := 2 / sqrt32(track)
		angle := 2.5*log32(track) + arm + (unitFloat(h1)-0.5)*0.5 + speed*time
		height := (unitFloat(h2) - 0.5) * 6 * exp32(-track/12)

		sinA, cosA := sin32(angle), cos32(angle)

		dst[i].Position = types.Vec3{track * cosA, height, track * sinA}
		dst[i].Velocity = types.Vec3{-track * sinA, 0, track * cosA}.Mul(speed)
		dst[i].Radius = 0.08 + 0.25*unitFloat(h3)
	}
}

// A cubic grid with per-site jitter; each site oscillates around its rest
// position with its own frequency and phase.
func (g *Generator) lattice(time float32, dst []Particle) {
	side := int(math.Ceil(math.Cbrt(float64(len(dst)))))
	if side < 1 {
		side = 1
	}
	cell := VolumeSize * 0.75 / float32(side)
	origin := VolumeMin * 0.75

	for i := range dst {
		h0 := g.particleHash(i)
		h1 := mix32(h0)
		h2 := mix32(h1)
		h3 := mix32(h2)

		base := types.Vec3{
			origin + (float32(i%side)+0.5)*cell,
			origin + (float32((i/side)%side)+0.5)*cell,
			origin + (float32(i/(side*side))+0.5)*cell,
		}

		amp := 0.3 * cell * unitFloat(h0)
		freq := 0.5 + 1.5*unitFloat(h1)
		phase := unitFloat(h2) * 2 * math.Pi
		swing := sin32(freq*time + phase)

		dir := types.Vec3{
			unitFloat(h1) - 0.5,
			unitFloat(h2) - 0.5,
			unitFloat(h3) - 0.5,
		}.Normalize()

		dst[i].Position = base.Add(dir.Mul(amp * swing))
		dst[i].Velocity = dir.Mul(amp * freq * cos32(freq*time+phase))
		dst[i].Radius = 0.1 + 0.2*unitFloat(h3)
	}
}

// Stable per-particle hash seeding the parameter chain for one particle.
func (g *Generator) particleHash(index int) uint32 {
	return mix32(g.Seed ^ mix32(uint32(index)+1))
}

func sin32(v float32) float32  { return float32(math.Sin(float64(v))) }
func cos32(v float32) float32  { return float32(math.Cos(float64(v))) }
func sqrt32(v float32) float32 { return float32(math.Sqrt(float64(v))) }
func log32(v float32) float32  { return float32(math.Log(float64(v))) }
func exp32(v float32) float32  { return float32(math.Exp(float64(v))) }
func pow32(v, p float32) float32 {
	return float32(math.Pow(float64(v), float64(p)))
}

package integrator

import (
	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer/native/bvh"
	"github.com/achernar/stardust/types"
)

const (
	// Rays escaping further than this hit the sky.
	maxTraceDist = 1e4

	// Secondary rays start this far along the surface normal so they never
	// re-hit the surface that spawned them.
	surfaceBias = 1e-3
)

// The vertical background gradient, horizon to zenith. Kept dim so the
// particle lights dominate the exposure.
var (
	skyHorizon = types.Vec3{0.012, 0.014, 0.02}
	skyZenith  = types.Vec3{0.05, 0.07, 0.14}
)

// Frame bundles the scene snapshot and the per-frame parameters one
// integration dispatch reads. The tracer fills it before each dispatch;
// kernels treat it as read-only.
type Frame struct {
	Nodes     []bvh.Node
	Particles []scene.Particle
	Lights    []scene.Light

	// Camera eye position and the four frustum corner rays (top-left,
	// top-right, bottom-left, bottom-right).
	Eye     types.Vec3
	Corners [4]types.Vec3

	Width  uint32
	Height uint32

	SamplesPerPixel uint32
	MaxBounces      uint32
	Seed            uint32
	FrameIndex      uint32
}

// TracePixel is the kernel body of the integration stage. The invocation
// for pixel (x, y) integrates SamplesPerPixel jittered camera rays and
// writes their averaged linear radiance into out.
func (f *Frame) TracePixel(out []types.Vec3, x, y int) {
	if uint32(x) >= f.Width || uint32(y) >= f.Height {
		return
	}

	pixel := uint32(y)*f.Width + uint32(x)

	samples := f.SamplesPerPixel
	if samples == 0 {
		samples = 1
	}

	var sum types.Vec3
	for sample := uint32(0); sample < samples; sample++ {
		rng := NewRng(pixel, f.FrameIndex, sample, f.Seed)
		sum = sum.Add(f.samplePixel(x, y, &rng))
	}

	out[pixel] = sum.Mul(1 / float32(samples))
}

// Integrate a single jittered camera ray.
func (f *Frame) samplePixel(x, y int, rng *Rng) types.Vec3 {
	// Jittered normalized device coordinate; the primary ray interpolates
	// the frustum corner rays bilinearly.
	u := (float32(x) + rng.Next()) / float32(f.Width)
	v := (float32(y) + rng.Next()) / float32(f.Height)

	top := f.Corners[0].Lerp(f.Corners[1], u)
	bottom := f.Corners[2].Lerp(f.Corners[3], u)
	dir := top.Lerp(bottom, v).Normalize()

	ray := bvh.Ray{Origin: f.Eye, Dir: dir}
	hit := bvh.IntersectNearest(f.Nodes, f.Particles, ray, maxTraceDist)
	if hit.Particle == -1 {
		return SkyGradient(dir)
	}

	material := scene.MaterialFor(hit.Particle)
	view := dir.Mul(-1)

	radiance := material.Emissive
	radiance = radiance.Add(f.directLight(hit.Position, hit.Normal, view, &material))
	if f.MaxBounces > 0 {
		radiance = radiance.Add(f.bounce(hit.Position, hit.Normal, view, &material, rng))
	}
	return radiance
}

// directLight sums the Cook-Torrance response over every unoccluded scene
// light.
func (f *Frame) directLight(pos, n, view types.Vec3, material *scene.Material) types.Vec3 {
	var sum types.Vec3
	origin := pos.Add(n.Mul(surfaceBias))

	for i := range f.Lights {
		light := &f.Lights[i]

		toLight := light.Position.Sub(pos)
		dist := toLight.Len()
		if dist < surfaceBias {
			continue
		}
		l := toLight.Mul(1 / dist)

		if bvh.Occluded(f.Nodes, f.Particles, bvh.Ray{Origin: origin, Dir: l}, dist) {
			continue
		}

		sum = sum.Add(cookTorrance(n, view, l, material).MulVec(lightRadiance(light, dist)))
	}
	return sum
}

// bounce traces the single indirect ray. The specular lobe is chosen with
// probability equal to the material's metallic value, the diffuse lobe
// otherwise; the bounce target is shaded with a simplified unshadowed model
// that is cheap but still carries color between particles.
func (f *Frame) bounce(pos, n, view types.Vec3, material *scene.Material, rng *Rng) types.Vec3 {
	var dir types.Vec3
	var weight types.Vec3

	if rng.Next() < material.Metallic {
		half := GgxSample(n, material.Roughness, rng)
		dir = view.Mul(-1).Reflect(half)
		if dir.Dot(n) <= 0 {
			return types.Vec3{}
		}
		weight = fresnelSchlick(max32(half.Dot(view), 0), fresnelF0(material))
	} else {
		dir = CosineSample(n, rng)
		weight = material.Albedo
	}

	ray := bvh.Ray{Origin: pos.Add(n.Mul(surfaceBias)), Dir: dir}
	hit := bvh.IntersectNearest(f.Nodes, f.Particles, ray, maxTraceDist)
	if hit.Particle == -1 {
		return SkyGradient(dir).MulVec(weight)
	}

	bounceMat := scene.MaterialFor(hit.Particle)
	var lightSum types.Vec3
	for i := range f.Lights {
		light := &f.Lights[i]

		toLight := light.Position.Sub(hit.Position)
		dist := toLight.Len()
		if dist < surfaceBias {
			continue
		}
		nDotL := hit.Normal.Dot(toLight.Mul(1 / dist))
		if nDotL <= 0 {
			continue
		}
		lightSum = lightSum.Add(lightRadiance(light, dist).Mul(nDotL))
	}

	radiance := bounceMat.Emissive.Add(bounceMat.Albedo.MulVec(lightSum))
	return radiance.MulVec(weight)
}

// lightRadiance returns the light's radiance at distance dist: its color
// scaled by intensity·r²/(r²+d²), which stays finite at the light itself
// and falls off with the inverse square law far away.
func lightRadiance(light *scene.Light, dist float32) types.Vec3 {
	r2 := light.Radius * light.Radius
	return light.Color.Mul(light.Intensity * r2 / (r2 + dist*dist))
}

// SkyGradient returns the background radiance for an escaped ray direction.
func SkyGradient(dir types.Vec3) types.Vec3 {
	t := 0.5 * (dir[1] + 1)
	return skyHorizon.Lerp(skyZenith, t)
}

package native

import (
	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/tracer/native/bvh"
	"github.com/achernar/stardust/tracer/native/integrator"
	"github.com/achernar/stardust/types"
)

// bufferSet owns the tracer-side working buffers and stages the scalar
// parameters of the next dispatch. Kernel bodies close over the set and
// read it at invocation time; dispatches run back to back with a barrier
// between them, so restaging parameters between dispatches never races with
// running invocations.
type bufferSet struct {
	// Tree construction arena, rebuilt every frame.
	arena bvh.Arena

	// The scene snapshot the kernels trace. Uploading copies the host
	// slices so a concurrently animated scene cannot mutate an in-flight
	// frame.
	particles []scene.Particle
	lights    []scene.Light

	// The integration frame: scene views, camera block and per-frame
	// scalars.
	frame integrator.Frame

	// The shared output film, attached by the renderer.
	film *tracer.Film

	// Per-dispatch staged parameters.
	merge      bvh.MergeStep
	readPlane  []types.Vec3
	writePlane []types.Vec3
	blend      float32
	reset      bool
	exposure   float32
}

func newBufferSet() *bufferSet {
	return &bufferSet{}
}

// UploadFilmData attaches the shared film and adopts its dimensions.
func (bs *bufferSet) UploadFilmData(film *tracer.Film) {
	bs.film = film
	bs.frame.Width = film.Width
	bs.frame.Height = film.Height
}

// UploadSceneData copies the scene's particles and lights into the tracer
// buffers and resizes the construction arena to match. Light counts beyond
// the supported maximum are truncated.
func (bs *bufferSet) UploadSceneData(sc *scene.Scene) {
	bs.particles = append(bs.particles[:0], sc.Particles...)

	numLights := len(sc.Lights)
	if numLights > scene.MaxSceneLights {
		numLights = scene.MaxSceneLights
	}
	bs.lights = append(bs.lights[:0], sc.Lights[:numLights]...)

	bs.arena.Resize(len(bs.particles))

	// Rebind the frame views; Resize may have reallocated the arena.
	bs.frame.Nodes = bs.arena.Nodes
	bs.frame.Particles = bs.particles
	bs.frame.Lights = bs.lights

	if sc.Camera != nil {
		bs.UploadCameraData(sc.Camera)
	}
}

// UploadCameraData copies the camera eye position and frustrum corner rays
// into the integration frame.
func (bs *bufferSet) UploadCameraData(camera *scene.Camera) {
	bs.frame.Eye = camera.Position
	for i := 0; i < 4; i++ {
		bs.frame.Corners[i] = camera.Frustrum[i].Vec3()
	}
}

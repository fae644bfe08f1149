package native

import (
	"image"
	"image/png"
	"os"
	"time"

	"github.com/achernar/stardust/tracer"
)

// An alias for functions that can be used as part of the rendering pipeline.
type PipelineStage func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error)

// The list of pluggable stages that are used to render the scene.
type Pipeline struct {
	// Rebuild the spatial index over the uploaded particle set. The stage
	// runs the full construction sequence: key generation, sort, hierarchy
	// emission and bound propagation.
	Accelerator PipelineStage

	// Integrate radiance for the requested block of frame rows.
	Integrator PipelineStage

	// Blend the integrated radiance into the temporal history planes.
	Accumulator PipelineStage

	// A set of post-processing stages that are executed prior to
	// presenting the final frame.
	PostProcess []PipelineStage
}

// DefaultPipeline assembles the standard frame sequence.
func DefaultPipeline() *Pipeline {
	return &Pipeline{
		Accelerator: RebuildAccelerator(),
		Integrator:  MonteCarloIntegrator(),
		Accumulator: TemporalAccumulator(),
		PostProcess: []PipelineStage{
			TonemapSimpleReinhard(),
		},
	}
}

// RebuildAccelerator rebuilds the bounding volume hierarchy from scratch.
// Every construction step is a separate dispatch, so each stage observes
// the completed output of the previous one.
func RebuildAccelerator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		if tr.resources.buffers.arena.Count == 0 {
			return time.Since(start), nil
		}

		steps := []func() (time.Duration, error){
			tr.resources.GenerateKeys,
			tr.resources.SortLocalTiles,
			tr.resources.SortGlobalMerge,
			tr.resources.EmitLeaves,
			tr.resources.EmitHierarchy,
			tr.resources.PropagateBounds,
		}
		for _, step := range steps {
			if _, err := step(); err != nil {
				return time.Since(start), err
			}
		}
		return time.Since(start), nil
	}
}

// MonteCarloIntegrator traces the block with the single-bounce Monte Carlo
// integrator.
func MonteCarloIntegrator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		return tr.resources.IntegratePixels(blockReq)
	}
}

// TemporalAccumulator blends the block into the film's history planes.
func TemporalAccumulator() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		return tr.resources.AccumulateFrame(blockReq)
	}
}

// TonemapSimpleReinhard applies simple Reinhard tone-mapping into the
// film's RGBA plane using the request's exposure.
func TonemapSimpleReinhard() PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		return tr.resources.TonemapFrame(blockReq)
	}
}

// SaveFrameBuffer dumps a copy of the film's RGBA plane to a png file after
// each traced block. Useful as the final post-process stage of one-shot
// renders.
func SaveFrameBuffer(imgFile string) PipelineStage {
	return func(tr *Tracer, blockReq *tracer.BlockRequest) (time.Duration, error) {
		start := time.Now()

		f, err := os.Create(imgFile)
		if err != nil {
			return 0, err
		}
		defer f.Close()

		im := image.NewRGBA(image.Rect(0, 0, int(blockReq.FrameW), int(blockReq.FrameH)))
		copy(im.Pix, tr.resources.buffers.film.FrameBuffer)

		return time.Since(start), png.Encode(f, im)
	}
}

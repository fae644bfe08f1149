package native

import (
	"time"

	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/tracer"
	"github.com/achernar/stardust/tracer/native/bvh"
	"github.com/achernar/stardust/tracer/native/device"
	"github.com/achernar/stardust/tracer/native/integrator"
)

const (
	// Work group sizes: linear kernels dispatch in 256-wide groups and
	// screen-space kernels in 8x8 pixel tiles.
	groupSize1D = 256
	tileSize2D  = 8
)

// A container that stores the kernel handles and the working buffers of one
// tracer instance.
type deviceResources struct {
	// The tracer-side buffers the kernels operate on.
	buffers *bufferSet

	// The set of kernels.
	kernels []*device.Kernel
}

// Using the supplied device as a target, register the kernel program and
// resolve handles for all defined kernels.
func newDeviceResources(dev *device.Device) (*deviceResources, error) {
	if dev == nil {
		return nil, ErrInvalidDevice
	}

	dr := &deviceResources{
		buffers: newBufferSet(),
	}

	err := dev.Init(buildProgram(dr.buffers))
	if err != nil {
		return nil, err
	}

	dr.kernels = make([]*device.Kernel, numKernels)

	var kType kernelType
	for kType = 0; kType < numKernels; kType++ {
		dr.kernels[kType], err = dev.Kernel(kType.String())
		if err != nil {
			dr.Close()
			return nil, err
		}
	}

	return dr, nil
}

// Release all allocated resources.
func (dr *deviceResources) Close() {
	if dr.kernels != nil {
		for _, kernel := range dr.kernels {
			if kernel != nil {
				kernel.Release()
			}
		}
		dr.kernels = nil
	}
	dr.buffers = nil
}

// buildProgram assembles the kernel table registered with the device. The
// bodies close over the buffer set: buffer bindings and staged scalar
// parameters are read at invocation time.
func buildProgram(bs *bufferSet) device.Program {
	return device.Program{
		generateKeys.String(): device.Kernel1D(func(gid int) {
			bvh.WriteKey(bs.arena.Entries, bs.particles, gid, bs.arena.Count, scene.VolumeMin, scene.VolumeSize)
		}),
		sortLocalTiles.String(): device.Kernel1D(func(gid int) {
			bvh.SortTile(bs.arena.Entries, gid)
		}),
		sortGlobalMerge.String(): device.Kernel1D(func(gid int) {
			bvh.MergeElement(bs.arena.Entries, gid, bs.merge.Stage, bs.merge.Step)
		}),
		emitLeaves.String(): device.Kernel1D(func(gid int) {
			bvh.BuildLeaf(bs.arena.Nodes, bs.arena.ParentOf, bs.arena.Visit, bs.arena.Entries, bs.particles, gid, bs.arena.Count)
		}),
		emitHierarchy.String(): device.Kernel1D(func(gid int) {
			bvh.BuildInternal(bs.arena.Nodes, bs.arena.ParentOf, bs.arena.Visit, bs.arena.Entries, gid, bs.arena.Count)
		}),
		propagateBounds.String(): device.Kernel1D(func(gid int) {
			bvh.Propagate(bs.arena.Nodes, bs.arena.ParentOf, bs.arena.Visit, gid, bs.arena.Count)
		}),
		integratePixels.String(): device.Kernel2D(func(x, y int) {
			bs.frame.TracePixel(bs.film.Accumulator, x, y)
		}),
		accumulateFrame.String(): device.Kernel1D(func(gid int) {
			integrator.Accumulate(bs.readPlane, bs.writePlane, bs.film.Accumulator, gid, bs.blend, bs.reset)
		}),
		tonemapFrame.String(): device.Kernel1D(func(gid int) {
			integrator.Tonemap(bs.writePlane, bs.film.FrameBuffer, gid, bs.exposure)
		}),
	}
}

// Generate spatial keys for every particle and sentinel-pad the working
// range to its power-of-two size.
func (dr *deviceResources) GenerateKeys() (time.Duration, error) {
	kernel := dr.kernels[generateKeys]
	return kernel.Exec1D(0, len(dr.buffers.arena.Entries), groupSize1D)
}

// Run the tile-local phase of the bitonic sorter; one invocation per
// 256-entry tile.
func (dr *deviceResources) SortLocalTiles() (time.Duration, error) {
	kernel := dr.kernels[sortLocalTiles]
	numTiles := len(dr.buffers.arena.Entries) / bvh.SortTileSize
	return kernel.Exec1D(0, numTiles, 1)
}

// Run the global merge phase of the bitonic sorter: one dispatch per
// (stage, step) pair from the precomputed table, with a full barrier
// between dispatches.
func (dr *deviceResources) SortGlobalMerge() (time.Duration, error) {
	kernel := dr.kernels[sortGlobalMerge]
	numEntries := len(dr.buffers.arena.Entries)

	var total time.Duration
	for _, merge := range dr.buffers.arena.Merges {
		dr.buffers.merge = merge
		elapsed, err := kernel.Exec1D(0, numEntries, groupSize1D)
		total += elapsed
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Emit one leaf node per sorted particle.
func (dr *deviceResources) EmitLeaves() (time.Duration, error) {
	kernel := dr.kernels[emitLeaves]
	return kernel.Exec1D(0, dr.buffers.arena.Count, groupSize1D)
}

// Emit the internal hierarchy nodes in a single dispatch.
func (dr *deviceResources) EmitHierarchy() (time.Duration, error) {
	kernel := dr.kernels[emitHierarchy]
	count := dr.buffers.arena.Count
	if count < 2 {
		return 0, nil
	}
	return kernel.Exec1D(0, count-1, groupSize1D)
}

// Propagate leaf bounds up to the root.
func (dr *deviceResources) PropagateBounds() (time.Duration, error) {
	kernel := dr.kernels[propagateBounds]
	return kernel.Exec1D(0, dr.buffers.arena.Count, groupSize1D)
}

// Integrate radiance for the requested block of frame rows.
func (dr *deviceResources) IntegratePixels(blockReq *tracer.BlockRequest) (time.Duration, error) {
	kernel := dr.kernels[integratePixels]

	bs := dr.buffers
	bs.frame.SamplesPerPixel = blockReq.SamplesPerPixel
	bs.frame.MaxBounces = blockReq.NumBounces
	bs.frame.Seed = blockReq.Seed
	bs.frame.FrameIndex = blockReq.FrameIndex

	return kernel.Exec2D(
		0, int(blockReq.BlockY),
		int(blockReq.FrameW), int(blockReq.BlockH),
		tileSize2D, tileSize2D,
	)
}

// Blend the block's freshly integrated radiance into the history planes.
func (dr *deviceResources) AccumulateFrame(blockReq *tracer.BlockRequest) (time.Duration, error) {
	kernel := dr.kernels[accumulateFrame]

	bs := dr.buffers
	bs.readPlane = bs.film.History[blockReq.FrameIndex&1]
	bs.writePlane = bs.film.History[(blockReq.FrameIndex&1)^1]
	bs.reset = blockReq.Reset
	bs.blend = blockReq.Blend
	if bs.blend <= 0 {
		bs.blend = integrator.DefaultBlend
	}

	offset := int(blockReq.BlockY * blockReq.FrameW)
	return kernel.Exec1D(offset, int(blockReq.BlockH*blockReq.FrameW), groupSize1D)
}

// Tone-map the freshly written history plane into the RGBA frame buffer.
func (dr *deviceResources) TonemapFrame(blockReq *tracer.BlockRequest) (time.Duration, error) {
	kernel := dr.kernels[tonemapFrame]

	bs := dr.buffers
	bs.exposure = blockReq.Exposure
	if bs.exposure <= 0 {
		bs.exposure = 1
	}

	offset := int(blockReq.BlockY * blockReq.FrameW)
	return kernel.Exec1D(offset, int(blockReq.BlockH*blockReq.FrameW), groupSize1D)
}

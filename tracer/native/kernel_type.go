package native

import "fmt"

type kernelType uint8

// The list of kernels that implement the tracer.
const (
	// accelerator kernels
	generateKeys kernelType = iota
	sortLocalTiles
	sortGlobalMerge
	emitLeaves
	emitHierarchy
	propagateBounds
	// pt kernels
	integratePixels
	// accumulation/hdr kernels
	accumulateFrame
	tonemapFrame
	//
	numKernels
)

// Implements Stringer; map kernel type to the kernel name registered with
// the device program.
func (kt kernelType) String() string {
	switch kt {
	case generateKeys:
		return "generateKeys"
	case sortLocalTiles:
		return "sortLocalTiles"
	case sortGlobalMerge:
		return "sortGlobalMerge"
	case emitLeaves:
		return "emitLeaves"
	case emitHierarchy:
		return "emitHierarchy"
	case propagateBounds:
		return "propagateBounds"
	case integratePixels:
		return "integratePixels"
	case accumulateFrame:
		return "accumulateFrame"
	case tonemapFrame:
		return "tonemapFrame"
	default:
		panic(fmt.Sprintf("Unsupported kernel type: %d", kt))
	}
}

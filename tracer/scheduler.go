package tracer

import "math"

// The BlockScheduler interface is implemented by all block scheduling algorithms.
type BlockScheduler interface {
	// Split the frame into blocks of variable height and assign them to
	// the pool of tracers.
	//
	// This function returns the block height assignment for each tracer
	// in the input list.
	Schedule(tracers []Tracer, frameH uint32) []uint32
}

// The naive scheduler distributes rows proportionally to each tracer's
// speed estimate, ignoring any runtime feedback.
type naiveScheduler struct {
	blockAssignment []uint32
}

// Create a new naive scheduler instance.
func NaiveScheduler() BlockScheduler {
	return &naiveScheduler{}
}

// Split frame into blocks proportional to the speed estimate of each tracer.
func (sch *naiveScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
	}
	assignBySpeed(sch.blockAssignment, tracers, frameH)
	return sch.blockAssignment
}

// The perfect scheduler assumes that the volume of tracing work between two
// subsequent frames is approximately the same.
type perfectScheduler struct {
	blockAssignment []uint32
}

// Create a new perfect scheduler instance.
func PerfectScheduler() BlockScheduler {
	return &perfectScheduler{}
}

// Split frame into blocks of variable height and assign to the pool
// of tracers using feedback collected from previous frames.
//
// This function returns the block height assignment for each tracer in the
// input list. When previous frame information is available the scheduler
// uses the following formula for estimating the workload for tracer w and frame i+1:
// w_i, f_i+1 = (blockH,w_i / time,w_i) / Σ(blockH_i-1 / time,i-1)
func (sch *perfectScheduler) Schedule(tracers []Tracer, frameH uint32) []uint32 {
	// If this is the first time we try to schedule or the number of tracers
	// has changed we have no feedback to work with; fall back to the
	// speed-based assignment.
	if len(sch.blockAssignment) != len(tracers) {
		sch.blockAssignment = make([]uint32, len(tracers))
		assignBySpeed(sch.blockAssignment, tracers, frameH)
		return sch.blockAssignment
	}

	// Use last frame statistics
	var total float64 = 0.0
	for _, tr := range tracers {
		stats := tr.Stats()
		total += float64(stats.BlockH) / float64(stats.RenderTime)
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32 = 0
	for idx, tr := range tracers {
		stats := tr.Stats()
		sch.blockAssignment[idx] = uint32(math.Max(1.0, math.Floor(float64(stats.BlockH)/float64(stats.RenderTime)*scaler)))
		scheduledRows += sch.blockAssignment[idx]
	}

	// In case rows don't add up to the frame height append the missing ones
	// to the first tracer
	sch.blockAssignment[0] += frameH - scheduledRows

	return sch.blockAssignment
}

// Distribute frameH rows over the tracers proportionally to their speed
// estimates. Every tracer receives at least one row; leftover rows go to the
// first tracer.
func assignBySpeed(assignment []uint32, tracers []Tracer, frameH uint32) {
	var total float64 = 0.0
	for _, tr := range tracers {
		total += float64(tr.Speed())
	}

	scaler := float64(frameH) / total
	var scheduledRows uint32 = 0
	for idx, tr := range tracers {
		assignment[idx] = uint32(math.Max(1.0, math.Floor(float64(tr.Speed())*scaler)))
		scheduledRows += assignment[idx]
	}
	assignment[0] += frameH - scheduledRows
}

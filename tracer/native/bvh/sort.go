package bvh

import "github.com/achernar/stardust/scene"

// SortTileSize is the tile width of the sorter's local phase. It matches
// the linear work group size used by the dispatch layer.
const SortTileSize = 256

// SentinelKey pads the working array up to a power of two. Sentinels sort
// after every real key and are never dereferenced by later stages.
const SentinelKey uint32 = 0xFFFFFFFF

// KeyEntry pairs a 30-bit spatial key with the index of the particle it was
// derived from. The sorter permutes entries so that keys end up in
// non-decreasing order; entries with equal keys are never exchanged, so
// their relative order is fixed by the network layout alone and identical
// between runs.
type KeyEntry struct {
	Key   uint32
	Index int32
}

// PaddedCount returns the power-of-two working size, at least one full
// tile, required to sort count entries.
func PaddedCount(count int) int {
	size := SortTileSize
	for size < count {
		size <<= 1
	}
	return size
}

// MergeStep identifies one global dispatch of the bitonic network as a
// (stage, step) pair. The local phase covers every stage up to the tile
// size; the table enumerates the rest.
type MergeStep struct {
	Stage uint32
	Step  uint32
}

// MergeTable precomputes the dispatch sequence that completes the sort of a
// padded array after the tile-local phase: for each stage above the tile
// size, steps walk down from stage/2 to 1.
func MergeTable(paddedCount int) []MergeStep {
	var table []MergeStep
	for stage := uint32(SortTileSize << 1); stage <= uint32(paddedCount); stage <<= 1 {
		for step := stage >> 1; step >= 1; step >>= 1 {
			table = append(table, MergeStep{Stage: stage, Step: step})
		}
	}
	return table
}

// WriteKey is the kernel body of the key generation stage. Invocations
// below count quantize their particle's position into a key entry; the
// remaining invocations pad the power-of-two working range with sentinels.
func WriteKey(entries []KeyEntry, particles []scene.Particle, gid, count int, volumeMin, volumeSize float32) {
	if gid >= len(entries) {
		return
	}
	if gid >= count {
		entries[gid] = KeyEntry{Key: SentinelKey, Index: -1}
		return
	}
	entries[gid] = KeyEntry{
		Key:   MortonKey(particles[gid].Position, volumeMin, volumeSize),
		Index: int32(gid),
	}
}

// SortTile is the kernel body of the sorter's local phase. One invocation
// owns one 256-entry tile: the tile is staged into a tile-local copy, run
// through every bitonic stage up to the tile size and written back. The
// exchange direction derives from each element's global index so that
// adjacent tiles alternate order and later merge stages see a bitonic
// sequence.
func SortTile(entries []KeyEntry, tile int) {
	var local [SortTileSize]KeyEntry
	base := tile * SortTileSize
	copy(local[:], entries[base:base+SortTileSize])

	for stage := uint32(2); stage <= SortTileSize; stage <<= 1 {
		for step := stage >> 1; step >= 1; step >>= 1 {
			for i := 0; i < SortTileSize; i++ {
				partner := i ^ int(step)
				if partner <= i {
					continue
				}
				ascending := (uint32(base+i) & stage) == 0
				a, b := local[i].Key, local[partner].Key
				if (ascending && a > b) || (!ascending && a < b) {
					local[i], local[partner] = local[partner], local[i]
				}
			}
		}
	}

	copy(entries[base:base+SortTileSize], local[:])
}

// MergeElement is the kernel body of one global merge dispatch. The
// invocation at index i compare-exchanges with its partner i XOR step; the
// lower index of each pair performs the exchange and the upper one returns
// immediately. Comparisons are strict so equal keys keep their positions.
func MergeElement(entries []KeyEntry, i int, stage, step uint32) {
	partner := i ^ int(step)
	if partner <= i || partner >= len(entries) {
		return
	}
	ascending := (uint32(i) & stage) == 0
	a, b := entries[i].Key, entries[partner].Key
	if (ascending && a > b) || (!ascending && a < b) {
		entries[i], entries[partner] = entries[partner], entries[i]
	}
}

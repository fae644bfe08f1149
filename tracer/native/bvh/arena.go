package bvh

// Arena owns the working buffers of the builder. The tree is rebuilt from
// scratch every frame, so the arena is sized once for the particle count
// and then recycled: Resize only allocates when a buffer needs to grow,
// which makes steady-state frames allocation free.
type Arena struct {
	// Key/index pairs, padded to a power of two with sentinels.
	Entries []KeyEntry

	// The 2N-1 tree nodes: N-1 internal nodes followed by N leaves.
	Nodes []Node

	// Parent links for the propagation stage; the root holds RootSentinel.
	ParentOf []int32

	// Per-node arrival counters for the propagation stage.
	Visit []uint32

	// The global merge dispatches completing the sort of Entries.
	Merges []MergeStep

	// The number of live particles. Everything in Entries past this count
	// is sentinel padding.
	Count int

	padded int
}

// Resize prepares the arena for a build over count particles.
func (a *Arena) Resize(count int) {
	a.Count = count

	padded := PaddedCount(count)
	if cap(a.Entries) < padded {
		a.Entries = make([]KeyEntry, padded)
	}
	a.Entries = a.Entries[:padded]
	if a.padded != padded {
		a.Merges = MergeTable(padded)
		a.padded = padded
	}

	nodeCount := 0
	if count > 0 {
		nodeCount = 2*count - 1
	}
	if cap(a.Nodes) < nodeCount {
		a.Nodes = make([]Node, nodeCount)
		a.ParentOf = make([]int32, nodeCount)
		a.Visit = make([]uint32, nodeCount)
	}
	a.Nodes = a.Nodes[:nodeCount]
	a.ParentOf = a.ParentOf[:nodeCount]
	a.Visit = a.Visit[:nodeCount]
}

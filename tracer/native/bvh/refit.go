package bvh

import (
	"sync/atomic"

	"github.com/achernar/stardust/types"
)

// Propagate is the kernel body of the bound propagation stage. The
// invocation for sorted position pos climbs from that leaf towards the
// root, merging child bounds into each parent on the way. Every arrival at
// a parent increments its visit counter atomically; the arrival that sees
// the counter reach two knows both child subtrees are final, merges them
// and keeps climbing, while the other arrival stops. Each internal node is
// therefore written exactly once and the walk that reaches the root has
// merged the entire tree.
func Propagate(nodes []Node, parentOf []int32, visit []uint32, pos, count int) {
	if pos >= count {
		return
	}

	node := int32(LeafIndex(pos, count))
	for {
		parent := parentOf[node]
		if parent == RootSentinel {
			return
		}
		if atomic.AddUint32(&visit[parent], 1) != 2 {
			return
		}

		p := &nodes[parent]
		left := &nodes[p.Left]
		right := &nodes[p.Right]
		p.SetBBox(
			types.MinVec3(left.Min, right.Min),
			types.MaxVec3(left.Max, right.Max),
		)

		node = parent
	}
}

package bvh

import (
	"math/bits"

	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/types"
)

// RootSentinel marks the root's entry in the parent table. Bound
// propagation stops when it climbs to a node whose parent is the sentinel.
const RootSentinel int32 = -1

// Node is the 32-byte tree node layout consumed by the traversal kernels.
// Child fields address other nodes while non-negative. A leaf stores the
// particle it wraps in Left as -(particleIndex)-1 and sets Right to -1.
type Node struct {
	Min  types.Vec3
	Left int32

	Max   types.Vec3
	Right int32
}

// SetBBox sets the node bounding box.
func (n *Node) SetBBox(min, max types.Vec3) {
	n.Min = min
	n.Max = max
}

// SetChildNodes links the node to its left and right children.
func (n *Node) SetChildNodes(left, right int32) {
	n.Left = left
	n.Right = right
}

// SetParticle marks the node as a leaf wrapping the given particle.
func (n *Node) SetParticle(index int32) {
	n.Left = -index - 1
	n.Right = -1
}

// Leaf reports whether the node wraps a particle.
func (n *Node) Leaf() bool {
	return n.Left < 0
}

// Particle returns the index of the particle a leaf node wraps.
func (n *Node) Particle() int32 {
	return -n.Left - 1
}

// LeafIndex maps a sorted-order position to its node index. A tree over
// count particles stores its count-1 internal nodes first, root at index 0,
// and the count leaves at indices count-1 through 2*count-2.
func LeafIndex(pos, count int) int {
	return count - 1 + pos
}

// BuildLeaf is the kernel body of the leaf emission stage. The invocation
// for sorted position pos writes the leaf node for that position: bounds
// from the particle's bounding sphere, the leaf particle encoding, and a
// cleared visit counter for the propagation pass.
func BuildLeaf(nodes []Node, parentOf []int32, visit []uint32, entries []KeyEntry, particles []scene.Particle, pos, count int) {
	if pos >= count {
		return
	}

	index := LeafIndex(pos, count)
	particle := entries[pos].Index
	min, max := particles[particle].BBox()

	node := &nodes[index]
	node.SetBBox(min, max)
	node.SetParticle(particle)
	visit[index] = 0

	// A single-particle tree has no internal nodes so its only leaf is
	// also the root.
	if count == 1 {
		parentOf[index] = RootSentinel
	}
}

// BuildInternal is the kernel body of the hierarchy emission stage. The
// invocation for internal node i determines the range of sorted positions
// the node covers and the split inside that range directly from the sorted
// keys, then links the node to the two children on either side of the
// split. Every internal node is produced independently, so the whole
// hierarchy emerges from a single dispatch with no sequential passes.
//
// Bounds are left untouched here; the propagation stage fills them in once
// the leaves exist.
func BuildInternal(nodes []Node, parentOf []int32, visit []uint32, entries []KeyEntry, i, count int) {
	if i >= count-1 {
		return
	}
	if i == 0 {
		parentOf[0] = RootSentinel
	}
	visit[i] = 0

	// The common-prefix metric between two sorted positions: the number of
	// leading bits their keys share, extended by the shared leading bits
	// of the position indices themselves when the keys are equal. The
	// fallback keeps the metric strictly informative for duplicate keys,
	// so ranges never degenerate.
	delta := func(a, b int) int {
		if b < 0 || b >= count {
			return -1
		}
		ka, kb := entries[a].Key, entries[b].Key
		if ka == kb {
			return 32 + bits.LeadingZeros32(uint32(a)^uint32(b))
		}
		return bits.LeadingZeros32(ka ^ kb)
	}

	// Grow the node's range towards the neighbor sharing the longer
	// prefix.
	d := 1
	if delta(i, i+1) < delta(i, i-1) {
		d = -1
	}
	deltaMin := delta(i, i-d)

	// Exponential probe for an upper bound on the range length, then a
	// binary search for its exact value.
	lMax := 2
	for delta(i, i+lMax*d) > deltaMin {
		lMax <<= 1
	}
	l := 0
	for t := lMax >> 1; t >= 1; t >>= 1 {
		if delta(i, i+(l+t)*d) > deltaMin {
			l += t
		}
	}
	j := i + l*d

	// Find the split: the last position in the range that still shares
	// the node's own prefix length, searched with halving strides.
	deltaNode := delta(i, j)
	s := 0
	for t := l; ; {
		t = (t + 1) >> 1
		if delta(i, i+(s+t)*d) > deltaNode {
			s += t
		}
		if t <= 1 {
			break
		}
	}
	gamma := i + s*d
	if d < 0 {
		gamma--
	}

	first, last := i, j
	if d < 0 {
		first, last = j, i
	}

	left := int32(gamma)
	if first == gamma {
		left = int32(LeafIndex(gamma, count))
	}
	right := int32(gamma + 1)
	if last == gamma+1 {
		right = int32(LeafIndex(gamma+1, count))
	}

	nodes[i].SetChildNodes(left, right)
	parentOf[left] = int32(i)
	parentOf[right] = int32(i)
}

package bvh

import (
	"math"

	"github.com/achernar/stardust/scene"
	"github.com/achernar/stardust/types"
)

// StackSize is the fixed traversal stack depth. Pushes beyond it are
// silently dropped; the tree depth over a well distributed particle set
// stays far below this bound.
const StackSize = 32

// Minimum hit distance. Intersections closer than this are rejected so
// secondary rays never hit the surface they originate from.
const rayEpsilon = 1e-3

// Ray is a parametric ray. Dir does not need to be normalized; reported
// distances are then in units of its length.
type Ray struct {
	Origin types.Vec3
	Dir    types.Vec3
}

// Hit describes the nearest intersection found by a traversal. Particle is
// -1 when the ray escaped the tree without hitting anything.
type Hit struct {
	Distance float32
	Position types.Vec3
	Normal   types.Vec3
	Particle int32
}

// IntersectNearest walks the tree with an explicit fixed-depth stack and
// returns the closest ray/particle intersection with distance below
// maxDist. Interior nodes run a slab test against the running closest
// distance so subtrees behind an already-found hit are skipped.
func IntersectNearest(nodes []Node, particles []scene.Particle, ray Ray, maxDist float32) Hit {
	hit := Hit{Distance: maxDist, Particle: -1}
	if len(nodes) == 0 {
		return hit
	}

	invDir := types.Vec3{1 / ray.Dir[0], 1 / ray.Dir[1], 1 / ray.Dir[2]}

	var stack [StackSize]int32
	stack[0] = 0
	stackLen := 1

	for stackLen > 0 {
		stackLen--
		node := &nodes[stack[stackLen]]

		if !slabTest(node.Min, node.Max, ray.Origin, invDir, hit.Distance) {
			continue
		}

		if node.Leaf() {
			index := node.Particle()
			p := &particles[index]
			if dist, ok := raySphere(ray, p.Position, p.Radius); ok && dist < hit.Distance {
				hit.Distance = dist
				hit.Particle = index
			}
			continue
		}

		if stackLen < StackSize {
			stack[stackLen] = node.Left
			stackLen++
		}
		if stackLen < StackSize {
			stack[stackLen] = node.Right
			stackLen++
		}
	}

	if hit.Particle != -1 {
		hit.Position = ray.Origin.Add(ray.Dir.Mul(hit.Distance))
		hit.Normal = hit.Position.Sub(particles[hit.Particle].Position).Normalize()
	}
	return hit
}

// Occluded reports whether any particle blocks the ray before maxDist. It
// is the any-hit variant of the traversal: the walk exits on the first
// intersection strictly closer than maxDist without looking for the
// nearest one.
func Occluded(nodes []Node, particles []scene.Particle, ray Ray, maxDist float32) bool {
	if len(nodes) == 0 {
		return false
	}

	invDir := types.Vec3{1 / ray.Dir[0], 1 / ray.Dir[1], 1 / ray.Dir[2]}

	var stack [StackSize]int32
	stack[0] = 0
	stackLen := 1

	for stackLen > 0 {
		stackLen--
		node := &nodes[stack[stackLen]]

		if !slabTest(node.Min, node.Max, ray.Origin, invDir, maxDist) {
			continue
		}

		if node.Leaf() {
			p := &particles[node.Particle()]
			if dist, ok := raySphere(ray, p.Position, p.Radius); ok && dist < maxDist {
				return true
			}
			continue
		}

		if stackLen < StackSize {
			stack[stackLen] = node.Left
			stackLen++
		}
		if stackLen < StackSize {
			stack[stackLen] = node.Right
			stackLen++
		}
	}

	return false
}

// Slab test of a ray against an axis-aligned box, bounded by tMax.
func slabTest(min, max, origin, invDir types.Vec3, tMax float32) bool {
	tMin := float32(0)
	for axis := 0; axis < 3; axis++ {
		t1 := (min[axis] - origin[axis]) * invDir[axis]
		t2 := (max[axis] - origin[axis]) * invDir[axis]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return false
		}
	}
	return true
}

// Solve the ray/sphere quadratic and return the smallest root above the ray
// epsilon.
func raySphere(ray Ray, center types.Vec3, radius float32) (float32, bool) {
	oc := ray.Origin.Sub(center)
	a := ray.Dir.Dot(ray.Dir)
	halfB := oc.Dot(ray.Dir)
	c := oc.Dot(oc) - radius*radius

	disc := halfB*halfB - a*c
	if disc < 0 {
		return 0, false
	}

	sqrtDisc := float32(math.Sqrt(float64(disc)))
	dist := (-halfB - sqrtDisc) / a
	if dist < rayEpsilon {
		dist = (-halfB + sqrtDisc) / a
	}
	if dist < rayEpsilon {
		return 0, false
	}
	return dist, true
}

package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl32.Vec3 // Minimum corner
	Max mgl32.Vec3 // Maximum corner
}

// NewAABB creates a new AABB from min and max points
func NewAABB(min, max mgl32.Vec3) AABB {
	return AABB{Min: min, Max: max}
}

// CubeAABB returns the cube [-halfExtent, halfExtent]^3 centered at the origin.
func CubeAABB(halfExtent float32) AABB {
	return AABB{
		Min: mgl32.Vec3{-halfExtent, -halfExtent, -halfExtent},
		Max: mgl32.Vec3{halfExtent, halfExtent, halfExtent},
	}
}

// Intersect computes the parametric interval where the ray overlaps the box
// using the slab method. Returns the entry and exit distances and whether
// the ray hits the box at all. tNear may be negative when the ray origin is
// inside the box.
func (aabb AABB) Intersect(ray Ray) (tNear, tFar float32, ok bool) {
	tNear = math32.Inf(-1)
	tFar = math32.Inf(1)

	for axis := 0; axis < 3; axis++ {
		min := aabb.Min[axis]
		max := aabb.Max[axis]
		origin := ray.Origin[axis]
		direction := ray.Direction[axis]

		// Handle parallel rays (direction near zero)
		if math32.Abs(direction) < 1e-8 {
			// Ray is parallel to this axis
			if origin < min || origin > max {
				return 0, 0, false // Ray origin outside slab
			}
			continue
		}

		// Calculate intersection distances for this axis
		invDirection := 1.0 / direction
		t1 := (min - origin) * invDirection
		t2 := (max - origin) * invDirection

		// Ensure t1 <= t2 (swap if needed)
		if t1 > t2 {
			t1, t2 = t2, t1
		}

		// Update overall intersection interval
		tNear = math32.Max(tNear, t1)
		tFar = math32.Min(tFar, t2)

		// No intersection if tNear > tFar
		if tNear > tFar {
			return 0, 0, false
		}
	}

	return tNear, tFar, true
}

// Contains reports whether the point lies inside the box (inclusive)
func (aabb AABB) Contains(p mgl32.Vec3) bool {
	for axis := 0; axis < 3; axis++ {
		if p[axis] < aabb.Min[axis] || p[axis] > aabb.Max[axis] {
			return false
		}
	}
	return true
}

// Center returns the center point of the AABB
func (aabb AABB) Center() mgl32.Vec3 {
	return aabb.Min.Add(aabb.Max).Mul(0.5)
}

// Size returns the size (extent) of the AABB along each axis
func (aabb AABB) Size() mgl32.Vec3 {
	return aabb.Max.Sub(aabb.Min)
}

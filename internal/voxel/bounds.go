package voxel

import "math"

// Bounds is a half-open axis-aligned box: Min inclusive, Max exclusive.
type Bounds struct {
	Min, Max Vec3
}

// NewBounds normalizes two corners into a Bounds.
func NewBounds(a, b Vec3) Bounds {
	return Bounds{
		Min: Vec3{min32(a.X, b.X), min32(a.Y, b.Y), min32(a.Z, b.Z)},
		Max: Vec3{max32(a.X, b.X), max32(a.Y, b.Y), max32(a.Z, b.Z)},
	}
}

func (b Bounds) Contains(p Vec3) bool {
	return b.Min.X <= p.X && p.X < b.Max.X &&
		b.Min.Y <= p.Y && p.Y < b.Max.Y &&
		b.Min.Z <= p.Z && p.Z < b.Max.Z
}

// Size returns the box extent along each axis.
func (b Bounds) Size() Vec3 {
	return Vec3{b.Max.X - b.Min.X, b.Max.Y - b.Min.Y, b.Max.Z - b.Min.Z}
}

// Volume returns the number of block positions inside the box. Extents
// are computed in int64 and the product saturates at MaxInt64, so boxes
// spanning the whole int32 range report a huge volume instead of wrapping.
func (b Bounds) Volume() int64 {
	sx := int64(b.Max.X) - int64(b.Min.X)
	sy := int64(b.Max.Y) - int64(b.Min.Y)
	sz := int64(b.Max.Z) - int64(b.Min.Z)
	if sx <= 0 || sy <= 0 || sz <= 0 {
		return 0
	}
	return satMul3(sx, sy, sz)
}

// Intersect returns the overlap of two boxes; empty boxes have Volume 0.
func (b Bounds) Intersect(o Bounds) Bounds {
	return Bounds{
		Min: Vec3{max32(b.Min.X, o.Min.X), max32(b.Min.Y, o.Min.Y), max32(b.Min.Z, o.Min.Z)},
		Max: Vec3{min32(b.Max.X, o.Max.X), min32(b.Max.Y, o.Max.Y), min32(b.Max.Z, o.Max.Z)},
	}
}

// ChunkAnchors lists the anchors of every chunk-aligned cube overlapping b,
// in z-outer, y-middle, x-inner order. Counters run in int64 so a box
// ending within ChunkSize of MaxInt32 cannot wrap and loop forever.
func (b Bounds) ChunkAnchors() []Vec3 {
	if b.Volume() == 0 {
		return nil
	}
	lo := ChunkAnchor(b.Min)
	var anchors []Vec3
	for z := int64(lo.Z); z < int64(b.Max.Z); z += ChunkSize {
		for y := int64(lo.Y); y < int64(b.Max.Y); y += ChunkSize {
			for x := int64(lo.X); x < int64(b.Max.X); x += ChunkSize {
				anchors = append(anchors, Vec3{int32(x), int32(y), int32(z)})
			}
		}
	}
	return anchors
}

// ChunkCount reports how many anchors ChunkAnchors would return, without
// materializing them. Saturates at MaxInt64.
func (b Bounds) ChunkCount() int64 {
	if b.Volume() == 0 {
		return 0
	}
	lo := ChunkAnchor(b.Min)
	nx := (int64(b.Max.X) - int64(lo.X) + ChunkSize - 1) / ChunkSize
	ny := (int64(b.Max.Y) - int64(lo.Y) + ChunkSize - 1) / ChunkSize
	nz := (int64(b.Max.Z) - int64(lo.Z) + ChunkSize - 1) / ChunkSize
	return satMul3(nx, ny, nz)
}

// satMul3 multiplies three positive int64s, saturating at MaxInt64.
func satMul3(a, b, c int64) int64 {
	if a > math.MaxInt64/b {
		return math.MaxInt64
	}
	ab := a * b
	if ab > math.MaxInt64/c {
		return math.MaxInt64
	}
	return ab * c
}

func min32(a, b int32) int32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b int32) int32 {
	if a > b {
		return a
	}
	return b
}

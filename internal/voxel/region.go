package voxel

import "errors"

// MaxRegionVolume bounds how many block positions one Region may buffer.
const MaxRegionVolume = 1 << 24

var ErrRegionTooLarge = errors.New("voxel: region volume exceeds limit")

// Region is a dense edit buffer over a world-coordinate box. Streamed
// chunks are committed into it; BlockEmpty voxels pass through without
// touching the destination.
type Region struct {
	bounds Bounds
	blocks []BlockID
	filled int
}

// NewRegion allocates a buffer covering b. The volume is validated before
// allocation; boxes over MaxRegionVolume return ErrRegionTooLarge.
func NewRegion(b Bounds) (*Region, error) {
	v := b.Volume()
	if v > MaxRegionVolume {
		return nil, ErrRegionTooLarge
	}
	blocks := make([]BlockID, int(v))
	for i := range blocks {
		blocks[i] = BlockEmpty
	}
	return &Region{bounds: b, blocks: blocks}, nil
}

func (r *Region) Bounds() Bounds {
	return r.bounds
}

// At returns the block at world coordinates, reporting whether the position
// lies inside the region.
func (r *Region) At(p Vec3) (BlockID, bool) {
	if !r.bounds.Contains(p) {
		return BlockEmpty, false
	}
	return r.blocks[r.index(p)], true
}

// Filled returns how many positions hold a non-pass-through block.
func (r *Region) Filled() int {
	return r.filled
}

// Apply commits every non-pass-through voxel of c that falls inside the
// region, returning the number of blocks written.
func (r *Region) Apply(c *Chunk) int {
	overlap := r.bounds.Intersect(c.Bounds())
	if overlap.Volume() == 0 {
		return 0
	}
	written := 0
	for z := overlap.Min.Z; z < overlap.Max.Z; z++ {
		for y := overlap.Min.Y; y < overlap.Max.Y; y++ {
			for x := overlap.Min.X; x < overlap.Max.X; x++ {
				local := Index(int(x-c.Anchor.X), int(y-c.Anchor.Y), int(z-c.Anchor.Z))
				id := c.Blocks[local]
				if id == BlockEmpty {
					continue
				}
				i := r.index(Vec3{x, y, z})
				if r.blocks[i] == BlockEmpty {
					r.filled++
				}
				r.blocks[i] = id
				written++
			}
		}
	}
	return written
}

func (r *Region) index(p Vec3) int {
	s := r.bounds.Size()
	dx := int(p.X - r.bounds.Min.X)
	dy := int(p.Y - r.bounds.Min.Y)
	dz := int(p.Z - r.bounds.Min.Z)
	return (dz*int(s.Y)+dy)*int(s.X) + dx
}

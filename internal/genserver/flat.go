package genserver

import "terralink/internal/voxel"

// FlatFill generates a uniform slab: every voxel whose world Y lies in
// [MinHeight, MaxHeight) becomes the default block, everything else stays
// pass-through.
type FlatFill struct {
	minY  int32
	maxY  int32
	block voxel.BlockID
}

func NewFlatFill(p Params) Generator {
	return &FlatFill{minY: p.MinHeight, maxY: p.MaxHeight, block: p.DefaultBlock}
}

func (g *FlatFill) Generate(c *voxel.Chunk) {
	b := c.Bounds()
	lo := max32(g.minY, b.Min.Y)
	hi := min32(g.maxY, b.Max.Y)
	for y := lo; y < hi; y++ {
		ly := int(y - c.Anchor.Y)
		for z := 0; z < voxel.ChunkSize; z++ {
			for x := 0; x < voxel.ChunkSize; x++ {
				c.Blocks[voxel.Index(x, ly, z)] = g.block
			}
		}
	}
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

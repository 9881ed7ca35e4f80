package voxel

// ChunkSize is the edge length of a chunk in blocks.
const ChunkSize = 16

// ChunkVolume is the number of blocks in one chunk.
const ChunkVolume = ChunkSize * ChunkSize * ChunkSize

// BlockID is a block-type code.
type BlockID uint32

// BlockEmpty is the reserved pass-through code: a voxel carrying it leaves
// the destination unchanged when a chunk is committed.
const BlockEmpty BlockID = 0xFFFFFFFF

// Vec3 is an integer block position.
type Vec3 struct {
	X, Y, Z int32
}

func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// ChunkAnchor returns the minimum corner of the chunk-aligned cube
// containing p.
func ChunkAnchor(p Vec3) Vec3 {
	return Vec3{floorAlign(p.X), floorAlign(p.Y), floorAlign(p.Z)}
}

func floorAlign(n int32) int32 {
	if n >= 0 {
		return n - n%ChunkSize
	}
	m := n % ChunkSize
	if m == 0 {
		return n
	}
	return n - m - ChunkSize
}

// Index maps local chunk coordinates to the flat block array. Blocks are
// laid out z-outer, y-middle, x-inner: x varies fastest.
func Index(x, y, z int) int {
	return (z*ChunkSize+y)*ChunkSize + x
}

// Chunk is a 16x16x16 dense cube of block codes anchored at its minimum
// corner in world coordinates.
type Chunk struct {
	Anchor Vec3
	Blocks [ChunkVolume]BlockID
}

// NewChunk returns a chunk filled with BlockEmpty.
func NewChunk(anchor Vec3) *Chunk {
	c := &Chunk{Anchor: anchor}
	for i := range c.Blocks {
		c.Blocks[i] = BlockEmpty
	}
	return c
}

// Bounds returns the half-open world-coordinate box covered by the chunk.
func (c *Chunk) Bounds() Bounds {
	return Bounds{
		Min: c.Anchor,
		Max: c.Anchor.Add(Vec3{ChunkSize, ChunkSize, ChunkSize}),
	}
}

// At returns the block at local coordinates, reporting whether they are in
// range.
func (c *Chunk) At(x, y, z int) (BlockID, bool) {
	if !inChunk(x, y, z) {
		return BlockEmpty, false
	}
	return c.Blocks[Index(x, y, z)], true
}

// Set stores a block at local coordinates, reporting whether they are in
// range.
func (c *Chunk) Set(x, y, z int, id BlockID) bool {
	if !inChunk(x, y, z) {
		return false
	}
	c.Blocks[Index(x, y, z)] = id
	return true
}

func inChunk(x, y, z int) bool {
	return x >= 0 && x < ChunkSize &&
		y >= 0 && y < ChunkSize &&
		z >= 0 && z < ChunkSize
}

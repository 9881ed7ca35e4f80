package voxel

import (
	"math"
	"testing"
)

func TestIndexOrderXFastest(t *testing.T) {
	if Index(0, 0, 0) != 0 {
		t.Fatalf("origin index: got %d", Index(0, 0, 0))
	}
	if Index(1, 0, 0) != 1 {
		t.Fatalf("x step: got %d want 1", Index(1, 0, 0))
	}
	if Index(0, 1, 0) != ChunkSize {
		t.Fatalf("y step: got %d want %d", Index(0, 1, 0), ChunkSize)
	}
	if Index(0, 0, 1) != ChunkSize*ChunkSize {
		t.Fatalf("z step: got %d want %d", Index(0, 0, 1), ChunkSize*ChunkSize)
	}
	if Index(15, 15, 15) != ChunkVolume-1 {
		t.Fatalf("last index: got %d want %d", Index(15, 15, 15), ChunkVolume-1)
	}
}

func TestChunkAnchorFloorsNegatives(t *testing.T) {
	cases := []struct {
		in   Vec3
		want Vec3
	}{
		{Vec3{0, 0, 0}, Vec3{0, 0, 0}},
		{Vec3{15, 15, 15}, Vec3{0, 0, 0}},
		{Vec3{16, 17, 31}, Vec3{16, 16, 16}},
		{Vec3{-1, -16, -17}, Vec3{-16, -16, -32}},
		{Vec3{-33, 5, -48}, Vec3{-48, 0, -48}},
	}
	for _, tc := range cases {
		if got := ChunkAnchor(tc.in); got != tc.want {
			t.Fatalf("ChunkAnchor(%v): got %v want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewChunkIsAllPassThrough(t *testing.T) {
	c := NewChunk(Vec3{X: 16, Y: -32, Z: 0})
	for i := range c.Blocks {
		if c.Blocks[i] != BlockEmpty {
			t.Fatalf("block %d: got %d want pass-through", i, c.Blocks[i])
		}
	}
	b := c.Bounds()
	if b.Min != c.Anchor || b.Max != (Vec3{X: 32, Y: -16, Z: 16}) {
		t.Fatalf("bounds: got %+v", b)
	}
}

func TestChunkAtSetRange(t *testing.T) {
	c := NewChunk(Vec3{})
	if !c.Set(3, 9, 12, 7) {
		t.Fatal("in-range set rejected")
	}
	if id, ok := c.At(3, 9, 12); !ok || id != 7 {
		t.Fatalf("At(3,9,12): got %d,%v", id, ok)
	}
	if c.Set(16, 0, 0, 7) {
		t.Fatal("out-of-range set accepted")
	}
	if _, ok := c.At(-1, 0, 0); ok {
		t.Fatal("out-of-range read accepted")
	}
}

func TestBoundsChunkAnchors(t *testing.T) {
	b := NewBounds(Vec3{X: 4, Y: 0, Z: -4}, Vec3{X: 20, Y: 16, Z: 4})
	anchors := b.ChunkAnchors()
	want := []Vec3{
		{0, 0, -16},
		{16, 0, -16},
		{0, 0, 0},
		{16, 0, 0},
	}
	if len(anchors) != len(want) {
		t.Fatalf("anchors: got %v want %v", anchors, want)
	}
	for i := range want {
		if anchors[i] != want[i] {
			t.Fatalf("anchors: got %v want %v", anchors, want)
		}
	}
}

func TestBoundsChunkAnchorsAtInt32Edge(t *testing.T) {
	// A box ending at MaxInt32 must terminate instead of wrapping the
	// anchor counter past the int32 edge.
	b := NewBounds(
		Vec3{X: math.MaxInt32 - 7, Y: 0, Z: 0},
		Vec3{X: math.MaxInt32, Y: 1, Z: 1},
	)
	anchors := b.ChunkAnchors()
	if len(anchors) != 1 {
		t.Fatalf("anchors: got %v want exactly one", anchors)
	}
	if want := ChunkAnchor(b.Min); anchors[0] != want {
		t.Fatalf("anchor: got %v want %v", anchors[0], want)
	}
	if n := b.ChunkCount(); n != int64(len(anchors)) {
		t.Fatalf("ChunkCount: got %d want %d", n, len(anchors))
	}
}

func TestBoundsChunkCountMatchesAnchors(t *testing.T) {
	b := NewBounds(Vec3{X: 4, Y: 0, Z: -4}, Vec3{X: 20, Y: 16, Z: 4})
	if n := b.ChunkCount(); n != int64(len(b.ChunkAnchors())) {
		t.Fatalf("ChunkCount: got %d want %d", n, len(b.ChunkAnchors()))
	}
}

func TestBoundsVolumeSaturates(t *testing.T) {
	huge := Bounds{
		Min: Vec3{math.MinInt32, math.MinInt32, math.MinInt32},
		Max: Vec3{math.MaxInt32, math.MaxInt32, math.MaxInt32},
	}
	if v := huge.Volume(); v != math.MaxInt64 {
		t.Fatalf("volume: got %d want saturation at MaxInt64", v)
	}
	if n := huge.ChunkCount(); n != math.MaxInt64 {
		t.Fatalf("chunk count: got %d want saturation at MaxInt64", n)
	}
}

func TestBoundsVolumeAndIntersect(t *testing.T) {
	a := NewBounds(Vec3{0, 0, 0}, Vec3{10, 10, 10})
	if a.Volume() != 1000 {
		t.Fatalf("volume: got %d", a.Volume())
	}
	b := NewBounds(Vec3{5, 5, 5}, Vec3{15, 15, 15})
	overlap := a.Intersect(b)
	if overlap.Volume() != 125 {
		t.Fatalf("overlap volume: got %d", overlap.Volume())
	}
	disjoint := NewBounds(Vec3{100, 0, 0}, Vec3{110, 10, 10})
	if a.Intersect(disjoint).Volume() != 0 {
		t.Fatal("disjoint boxes must have empty intersection")
	}
}

package client

import (
	"sync"

	"terralink/internal/voxel"
)

// RegionSink commits streamed chunks into a dense region buffer. Safe for
// the Tick goroutine to feed while another goroutine waits on Done.
type RegionSink struct {
	mu     sync.Mutex
	region *voxel.Region
	err    error
	done   chan struct{}
}

// NewRegionSink allocates the backing region buffer; bounds over
// voxel.MaxRegionVolume are refused before any request is submitted.
func NewRegionSink(b voxel.Bounds) (*RegionSink, error) {
	region, err := voxel.NewRegion(b)
	if err != nil {
		return nil, err
	}
	return &RegionSink{
		region: region,
		done:   make(chan struct{}),
	}, nil
}

func (s *RegionSink) Deliver(c *voxel.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.region.Apply(c)
}

func (s *RegionSink) Finish() {
	close(s.done)
}

func (s *RegionSink) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

// Done is closed once the request resolved, successfully or not.
func (s *RegionSink) Done() <-chan struct{} {
	return s.done
}

func (s *RegionSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Region exposes the buffer. Read it only after Done.
func (s *RegionSink) Region() *voxel.Region {
	return s.region
}

// ChunkSink collects delivered chunks in arrival order. Suited to brush
// requests, where a single chunk is expected.
type ChunkSink struct {
	mu     sync.Mutex
	chunks []*voxel.Chunk
	err    error
	done   chan struct{}
}

func NewChunkSink() *ChunkSink {
	return &ChunkSink{done: make(chan struct{})}
}

func (s *ChunkSink) Deliver(c *voxel.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, c)
}

func (s *ChunkSink) Finish() {
	close(s.done)
}

func (s *ChunkSink) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

func (s *ChunkSink) Done() <-chan struct{} {
	return s.done
}

func (s *ChunkSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *ChunkSink) Chunks() []*voxel.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*voxel.Chunk(nil), s.chunks...)
}

// WaitSink resolves without carrying data. Generator queries use it: their
// payloads arrive through hooks and the sink only signals completion.
type WaitSink struct {
	mu   sync.Mutex
	err  error
	done chan struct{}
}

func NewWaitSink() *WaitSink {
	return &WaitSink{done: make(chan struct{})}
}

func (s *WaitSink) Deliver(*voxel.Chunk) {}

func (s *WaitSink) Finish() {
	close(s.done)
}

func (s *WaitSink) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}

func (s *WaitSink) Done() <-chan struct{} {
	return s.done
}

func (s *WaitSink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

package genserver

import (
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"terralink/internal/logging"
	"terralink/internal/protocol"
	"terralink/internal/transport"
	"terralink/internal/voxel"
)

// DefaultShutdownGrace bounds how long Stop waits for each peer to react
// to the termination notice before forcing its connection closed.
const DefaultShutdownGrace = 3 * time.Second

// maxRegionChunks bounds how many chunks one region request may demand.
// Oversized requests are rejected before any chunk is generated.
const maxRegionChunks = voxel.MaxRegionVolume / voxel.ChunkVolume

// Config tunes the service.
type Config struct {
	Transport     transport.Config
	ShutdownGrace time.Duration
	Logger        *zerolog.Logger
}

// Server answers generation requests over any number of connections.
// Each connection gets its own session goroutine; the registry is shared.
type Server struct {
	registry *Registry
	cfg      Config
	log      zerolog.Logger

	mu       sync.Mutex
	listener net.Listener
	conns    map[*transport.Conn]struct{}
	closed   bool

	wg sync.WaitGroup
}

func NewServer(registry *Registry, cfg Config) *Server {
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	log := logging.Component("genserver")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Server{
		registry: registry,
		cfg:      cfg,
		log:      log,
		conns:    make(map[*transport.Conn]struct{}),
	}
}

// Serve accepts connections until Stop closes the listener.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		l.Close()
		return nil
	}
	s.listener = l
	s.mu.Unlock()

	s.log.Info().Str("addr", l.Addr().String()).Msg("generation service listening")
	for {
		stream, err := l.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("genserver: accept: %w", err)
		}
		s.HandleStream(stream)
	}
}

// HandleStream runs one session over an established stream. Exposed so
// tests and embedders can serve pipes as well as listeners.
func (s *Server) HandleStream(stream io.ReadWriteCloser) {
	conn := transport.NewServer(stream, s.cfg.Transport)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Stop()
		return
	}
	s.conns[conn] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.session(conn)
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()
}

// Stop notifies every peer with a fatal termination error, waits for them
// to hang up, and then forces any stragglers closed.
func (s *Server) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.wg.Wait()
		return
	}
	s.closed = true
	if s.listener != nil {
		s.listener.Close()
	}
	conns := make([]*transport.Conn, 0, len(s.conns))
	for conn := range s.conns {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	notice := &protocol.ProtocolError{Fatal: true, Message: "generation service terminating"}
	for _, conn := range conns {
		if err := conn.Send(notice); err != nil {
			s.log.Debug().Err(err).Msg("termination notice not sent")
		}
	}
	for _, conn := range conns {
		select {
		case <-conn.Done():
		case <-time.After(s.cfg.ShutdownGrace):
			s.log.Warn().Msg("peer ignored termination notice, forcing close")
		}
		conn.Stop()
	}
	s.wg.Wait()
	s.log.Info().Msg("generation service stopped")
}

func (s *Server) session(conn *transport.Conn) {
	defer conn.Stop()
	for {
		pkt, err := conn.Receive()
		if err != nil {
			s.log.Debug().Err(err).Msg("session ended")
			return
		}
		switch p := pkt.(type) {
		case *protocol.GenerateRegion:
			s.handleRegion(conn, p)
		case *protocol.GenerateBrush:
			s.handleBrush(conn, p)
		case *protocol.RequestGenerators:
			s.handleListGenerators(conn, p)
		case *protocol.AddGenerator:
			s.handleAddGenerator(conn, p)
		default:
			s.log.Warn().Uint16("tag", uint16(pkt.Tag())).Msg("unhandled packet type")
		}
	}
}

// handleRegion streams one generated chunk per chunk-aligned cube
// overlapping the request box. Voxels outside the box are cleared to the
// pass-through sentinel so partial edge chunks never spill.
func (s *Server) handleRegion(conn *transport.Conn, p *protocol.GenerateRegion) {
	gen, ok := s.registry.Get(p.Generator)
	if !ok {
		s.rejectRequest(conn, p.RequestID, p.Generator)
		return
	}
	bounds := voxel.NewBounds(p.Min, p.Max)
	if n := bounds.ChunkCount(); n > maxRegionChunks {
		s.log.Warn().
			Stringer("request", p.RequestID).
			Int64("chunks", n).
			Msg("rejecting oversized region request")
		s.send(conn, &protocol.ProtocolError{
			RequestID: p.RequestID,
			Fatal:     false,
			Message:   fmt.Sprintf("region too large: %d chunks exceeds limit %d", n, maxRegionChunks),
		})
		return
	}
	anchors := bounds.ChunkAnchors()
	s.log.Info().
		Stringer("request", p.RequestID).
		Str("generator", p.Generator).
		Int("chunks", len(anchors)).
		Msg("generating region")

	s.send(conn, &protocol.AckRequest{
		RequestID: p.RequestID,
		Info:      fmt.Sprintf("generating %d chunks", len(anchors)),
	})
	for _, anchor := range anchors {
		chunk := voxel.NewChunk(anchor)
		gen.Generate(chunk)
		clipChunk(chunk, bounds)
		s.send(conn, &protocol.VoxelData{RequestID: p.RequestID, Chunk: chunk})
	}
	s.send(conn, &protocol.FinishRequest{RequestID: p.RequestID})
}

func (s *Server) handleBrush(conn *transport.Conn, p *protocol.GenerateBrush) {
	gen, ok := s.registry.Get(p.Generator)
	if !ok {
		s.rejectRequest(conn, p.RequestID, p.Generator)
		return
	}
	chunk := voxel.NewChunk(voxel.ChunkAnchor(p.Pos))
	gen.Generate(chunk)

	s.send(conn, &protocol.AckRequest{RequestID: p.RequestID})
	s.send(conn, &protocol.VoxelData{RequestID: p.RequestID, Chunk: chunk})
	s.send(conn, &protocol.FinishRequest{RequestID: p.RequestID})
}

func (s *Server) handleListGenerators(conn *transport.Conn, p *protocol.RequestGenerators) {
	s.send(conn, &protocol.ListGenerators{
		RequestID:  p.RequestID,
		Generators: s.registry.Names(),
	})
	s.send(conn, &protocol.FinishRequest{RequestID: p.RequestID})
}

func (s *Server) handleAddGenerator(conn *transport.Conn, p *protocol.AddGenerator) {
	id, err := s.registry.Add(p.Name, Params{
		MinHeight:    p.MinHeight,
		MaxHeight:    p.MaxHeight,
		DefaultBlock: p.DefaultBlock,
	})
	if err != nil {
		s.send(conn, &protocol.ProtocolError{
			RequestID: p.RequestID,
			Fatal:     false,
			Message:   err.Error(),
		})
		return
	}
	s.log.Info().
		Str("generator", p.Name).
		Uint32("id", uint32(id)).
		Msg("generator registered")
	s.send(conn, &protocol.GeneratorConfirmation{RequestID: p.RequestID, Generator: id})
	s.send(conn, &protocol.FinishRequest{RequestID: p.RequestID})
}

// rejectRequest answers a request naming an unregistered generator. The
// error is scoped to the request; the connection stays up.
func (s *Server) rejectRequest(conn *transport.Conn, id protocol.RequestID, generator string) {
	s.log.Warn().
		Stringer("request", id).
		Str("generator", generator).
		Msg("request for unknown generator")
	s.send(conn, &protocol.ProtocolError{
		RequestID: id,
		Fatal:     false,
		Message:   fmt.Sprintf("%v: %q", ErrUnknownGenerator, generator),
	})
}

func (s *Server) send(conn *transport.Conn, p protocol.Downstream) {
	if err := conn.Send(p); err != nil {
		s.log.Debug().Err(err).Uint16("tag", uint16(p.Tag())).Msg("send on dead connection")
	}
}

// clipChunk clears every voxel outside b to the pass-through sentinel.
func clipChunk(c *voxel.Chunk, b voxel.Bounds) {
	cb := c.Bounds()
	if b.Intersect(cb) == cb {
		return
	}
	for z := int32(0); z < voxel.ChunkSize; z++ {
		for y := int32(0); y < voxel.ChunkSize; y++ {
			for x := int32(0); x < voxel.ChunkSize; x++ {
				world := c.Anchor.Add(voxel.Vec3{X: x, Y: y, Z: z})
				if !b.Contains(world) {
					c.Blocks[voxel.Index(int(x), int(y), int(z))] = voxel.BlockEmpty
				}
			}
		}
	}
}

// Package client correlates generation requests with their streamed
// responses. It owns the request table; the transport owns the wire.
package client

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"terralink/internal/logging"
	"terralink/internal/observability"
	"terralink/internal/protocol"
	"terralink/internal/voxel"
)

// maxIDAttempts bounds the collision retry loop when drawing a fresh
// request id. The 63-bit space makes even one retry vanishingly rare.
const maxIDAttempts = 32

// maxDrainPerTick bounds how many packets one Tick dispatches, so a fast
// peer cannot pin the dispatch goroutine inside a single call.
const maxDrainPerTick = 64

var (
	ErrIDExhausted  = errors.New("client: request id space exhausted")
	ErrNilHandle    = errors.New("client: nil streaming request handle")
	ErrNoGenerator  = errors.New("client: generator name required")
	ErrEmptyBounds  = errors.New("client: region bounds are empty")
	ErrBadHeightmap = errors.New("client: min height must be below max height")
)

// StreamingRequest consumes the lifecycle of one in-flight request. Exactly
// one of Finish or Fail is called, after which the handle receives nothing.
type StreamingRequest interface {
	Deliver(*voxel.Chunk)
	Finish()
	Fail(error)
}

// Conn is the slice of the transport the client needs. *transport.Conn
// satisfies it.
type Conn interface {
	Send(protocol.Packet) error
	TryReceive() (protocol.Packet, bool)
	Stop()
	Done() <-chan struct{}
	Err() error
}

// Hooks observe non-chunk responses. All hooks run on the Tick goroutine;
// nil hooks are skipped.
type Hooks struct {
	Ack                func(id protocol.RequestID, info string)
	GeneratorList      func(id protocol.RequestID, names []string)
	GeneratorConfirmed func(id protocol.RequestID, generator protocol.GeneratorID)
}

// Options tunes a Client.
type Options struct {
	Hooks  Hooks
	Logger *zerolog.Logger

	// RandID overrides the id source, for tests.
	RandID func() uint64
}

// Client multiplexes generation requests over one transport connection.
// Submissions may come from any goroutine; Tick must be driven from a
// single goroutine.
type Client struct {
	conn  Conn
	hooks Hooks
	rand  func() uint64
	log   zerolog.Logger

	mu      sync.Mutex
	pending map[protocol.RequestID]StreamingRequest
	failed  bool
}

// New wraps an established connection. The caller keeps ownership of the
// connection's lifetime; Shutdown stops it.
func New(c Conn, opts Options) *Client {
	log := logging.Component("client")
	if opts.Logger != nil {
		log = *opts.Logger
	}
	randID := opts.RandID
	if randID == nil {
		randID = rand.Uint64
	}
	return &Client{
		conn:    c,
		hooks:   opts.Hooks,
		rand:    randID,
		log:     log,
		pending: make(map[protocol.RequestID]StreamingRequest),
	}
}

// GenerateRegion submits a region generation request. Chunks covering the
// box stream into handle until Finish.
func (c *Client) GenerateRegion(b voxel.Bounds, generator string, handle StreamingRequest) (protocol.RequestID, error) {
	if generator == "" {
		return 0, ErrNoGenerator
	}
	if b.Volume() == 0 {
		return 0, ErrEmptyBounds
	}
	return c.submit(handle, func(id protocol.RequestID) protocol.Upstream {
		return &protocol.GenerateRegion{
			RequestID: id,
			Min:       b.Min,
			Max:       b.Max,
			Generator: generator,
		}
	})
}

// GenerateBrush submits a single-chunk request for the chunk containing pos.
func (c *Client) GenerateBrush(pos voxel.Vec3, generator string, handle StreamingRequest) (protocol.RequestID, error) {
	if generator == "" {
		return 0, ErrNoGenerator
	}
	return c.submit(handle, func(id protocol.RequestID) protocol.Upstream {
		return &protocol.GenerateBrush{
			RequestID: id,
			Pos:       pos,
			Generator: generator,
		}
	})
}

// RequestGenerators asks for the service's registered generator names. The
// names arrive through the GeneratorList hook; handle resolves on Finish.
func (c *Client) RequestGenerators(handle StreamingRequest) (protocol.RequestID, error) {
	return c.submit(handle, func(id protocol.RequestID) protocol.Upstream {
		return &protocol.RequestGenerators{RequestID: id}
	})
}

// AddGenerator registers a parameterized generator instance on the service.
// The assigned id arrives through the GeneratorConfirmed hook.
func (c *Client) AddGenerator(name string, minHeight, maxHeight int32, defaultBlock voxel.BlockID, handle StreamingRequest) (protocol.RequestID, error) {
	if name == "" {
		return 0, ErrNoGenerator
	}
	if minHeight >= maxHeight {
		return 0, ErrBadHeightmap
	}
	return c.submit(handle, func(id protocol.RequestID) protocol.Upstream {
		return &protocol.AddGenerator{
			RequestID:    id,
			Name:         name,
			MinHeight:    minHeight,
			MaxHeight:    maxHeight,
			DefaultBlock: defaultBlock,
		}
	})
}

// submit registers the handle under a fresh id before the packet is
// enqueued, so a response racing the send always finds its entry.
func (c *Client) submit(handle StreamingRequest, build func(protocol.RequestID) protocol.Upstream) (protocol.RequestID, error) {
	if handle == nil {
		return 0, ErrNilHandle
	}

	c.mu.Lock()
	id, err := c.allocateLocked()
	if err != nil {
		c.mu.Unlock()
		return 0, err
	}
	c.pending[id] = handle
	observability.SetPendingRequests(len(c.pending))
	c.mu.Unlock()

	if err := c.conn.Send(build(id)); err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		observability.SetPendingRequests(len(c.pending))
		c.mu.Unlock()
		return 0, fmt.Errorf("client: submit request %s: %w", id, err)
	}
	c.log.Debug().Stringer("request", id).Msg("request submitted")
	return id, nil
}

func (c *Client) allocateLocked() (protocol.RequestID, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id := protocol.RequestID(c.rand()) & protocol.MaxRequestID
		if id == 0 {
			continue
		}
		if _, taken := c.pending[id]; taken {
			continue
		}
		return id, nil
	}
	return 0, ErrIDExhausted
}

// Tick drains buffered responses up to a bounded batch, dispatches each
// to its handle, and then checks transport liveness. Once the transport
// is done, all pending requests fail with the transport's error and later
// Ticks are no-ops.
func (c *Client) Tick() {
	for i := 0; i < maxDrainPerTick; i++ {
		pkt, ok := c.conn.TryReceive()
		if !ok {
			break
		}
		c.dispatch(pkt)
	}

	select {
	case <-c.conn.Done():
		c.failAll(c.conn.Err())
	default:
	}
}

// Shutdown stops the transport and fails everything still pending.
func (c *Client) Shutdown() {
	c.conn.Stop()
	c.failAll(c.conn.Err())
}

// Pending reports how many requests await their terminal packet.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Client) dispatch(pkt protocol.Packet) {
	switch p := pkt.(type) {
	case *protocol.VoxelData:
		if handle, ok := c.lookup(p.RequestID); ok {
			handle.Deliver(p.Chunk)
			observability.RecordChunkDelivered()
		} else {
			c.dropUnknown(p)
		}

	case *protocol.FinishRequest:
		if handle, ok := c.retire(p.RequestID); ok {
			handle.Finish()
		} else {
			c.dropUnknown(p)
		}

	case *protocol.AckRequest:
		if _, ok := c.lookup(p.RequestID); !ok {
			c.dropUnknown(p)
			return
		}
		if c.hooks.Ack != nil {
			c.hooks.Ack(p.RequestID, p.Info)
		}

	case *protocol.ListGenerators:
		if _, ok := c.lookup(p.RequestID); !ok {
			c.dropUnknown(p)
			return
		}
		if c.hooks.GeneratorList != nil {
			c.hooks.GeneratorList(p.RequestID, p.Generators)
		}

	case *protocol.GeneratorConfirmation:
		if _, ok := c.lookup(p.RequestID); !ok {
			c.dropUnknown(p)
			return
		}
		if c.hooks.GeneratorConfirmed != nil {
			c.hooks.GeneratorConfirmed(p.RequestID, p.Generator)
		}

	case *protocol.ProtocolError:
		c.serverError(p)

	default:
		c.log.Warn().Uint16("tag", uint16(pkt.Tag())).Msg("dropping unhandled packet type")
	}
}

// serverError resolves one request for non-fatal errors and tears the whole
// connection down for fatal ones.
func (c *Client) serverError(p *protocol.ProtocolError) {
	err := &protocol.ServerError{Fatal: p.Fatal, Message: p.Message}
	if p.Fatal {
		c.log.Error().Str("message", p.Message).Msg("fatal server error, closing connection")
		c.conn.Stop()
		c.failAll(err)
		return
	}

	handle, ok := c.retire(p.RequestID)
	if !ok {
		c.dropUnknown(p)
		return
	}
	c.log.Warn().
		Stringer("request", p.RequestID).
		Str("message", p.Message).
		Msg("request failed on server")
	handle.Fail(err)
}

func (c *Client) lookup(id protocol.RequestID) (StreamingRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handle, ok := c.pending[id]
	return handle, ok
}

func (c *Client) retire(id protocol.RequestID) (StreamingRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	handle, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
		observability.SetPendingRequests(len(c.pending))
	}
	return handle, ok
}

// dropUnknown covers responses for ids that were never issued or already
// resolved. Late packets after Finish land here; the connection lives on.
func (c *Client) dropUnknown(pkt protocol.Packet) {
	observability.RecordUnknownRequest()
	c.log.Debug().
		Stringer("request", pkt.Request()).
		Uint16("tag", uint16(pkt.Tag())).
		Msg("dropping packet for unknown request")
}

// failAll resolves every pending request with err exactly once.
func (c *Client) failAll(err error) {
	c.mu.Lock()
	if c.failed {
		c.mu.Unlock()
		return
	}
	c.failed = true
	handles := make([]StreamingRequest, 0, len(c.pending))
	for id, handle := range c.pending {
		handles = append(handles, handle)
		delete(c.pending, id)
	}
	observability.SetPendingRequests(0)
	c.mu.Unlock()

	if len(handles) == 0 {
		return
	}
	if err == nil {
		err = errors.New("client: connection closed")
	}
	c.log.Warn().Err(err).Int("pending", len(handles)).Msg("failing all pending requests")
	for _, handle := range handles {
		handle.Fail(err)
	}
}

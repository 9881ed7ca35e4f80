package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"terralink/internal/observability"
	"terralink/internal/protocol"
	"terralink/internal/protocol/frame"
)

// DefaultQueueDepth bounds the inbound and outbound packet queues.
const DefaultQueueDepth = 32

var (
	ErrStopped    = errors.New("transport: connection stopped")
	ErrPeerClosed = errors.New("transport: peer closed stream")
)

// Config tunes one connection.
type Config struct {
	QueueDepth int
	Limits     frame.Limits
	Codec      protocol.Codec
	Logger     zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.QueueDepth <= 0 {
		c.QueueDepth = DefaultQueueDepth
	}
	if c.Limits.MaxPayloadBytes == 0 {
		c.Limits = frame.DefaultLimits()
	}
	return c
}

// Conn owns one full-duplex stream. A reader worker decodes frames into
// the bounded inbound queue; a writer worker drains the bounded outbound
// queue onto the stream. Both queues apply true backpressure: a full queue
// blocks the producer rather than dropping packets.
type Conn struct {
	stream io.ReadWriteCloser
	cfg    Config
	decode func(payload []byte, hint uint32) (protocol.Packet, error)
	log    zerolog.Logger

	out  chan protocol.Packet
	in   chan protocol.Packet
	done chan struct{}

	stopOnce sync.Once
	wg       sync.WaitGroup

	errMu sync.Mutex
	errv  error
}

// NewClient wraps a stream whose inbound direction carries downstream
// (server-to-client) packets.
func NewClient(stream io.ReadWriteCloser, cfg Config) *Conn {
	cfg = cfg.withDefaults()
	codec := cfg.Codec
	return newConn(stream, cfg, func(payload []byte, hint uint32) (protocol.Packet, error) {
		return codec.DecodeDownstream(payload, hint)
	})
}

// NewServer wraps a stream whose inbound direction carries upstream
// (client-to-server) packets.
func NewServer(stream io.ReadWriteCloser, cfg Config) *Conn {
	cfg = cfg.withDefaults()
	codec := cfg.Codec
	return newConn(stream, cfg, func(payload []byte, hint uint32) (protocol.Packet, error) {
		return codec.DecodeUpstream(payload, hint)
	})
}

func newConn(stream io.ReadWriteCloser, cfg Config, decode func([]byte, uint32) (protocol.Packet, error)) *Conn {
	c := &Conn{
		stream: stream,
		cfg:    cfg,
		decode: decode,
		log:    cfg.Logger,
		out:    make(chan protocol.Packet, cfg.QueueDepth),
		in:     make(chan protocol.Packet, cfg.QueueDepth),
		done:   make(chan struct{}),
	}
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Send enqueues a packet for the writer worker. It blocks only when the
// outbound queue is full, never on network I/O.
func (c *Conn) Send(p protocol.Packet) error {
	select {
	case <-c.done:
		return ErrStopped
	default:
	}
	select {
	case c.out <- p:
		return nil
	case <-c.done:
		return ErrStopped
	}
}

// TryReceive pops one inbound packet without blocking.
func (c *Conn) TryReceive() (protocol.Packet, bool) {
	select {
	case p := <-c.in:
		return p, true
	default:
		return nil, false
	}
}

// Receive blocks for the next inbound packet, draining anything already
// buffered even after the transport dies.
func (c *Conn) Receive() (protocol.Packet, error) {
	select {
	case p := <-c.in:
		return p, nil
	case <-c.done:
		select {
		case p := <-c.in:
			return p, nil
		default:
			return nil, c.Err()
		}
	}
}

// Done is closed when the transport is no longer usable, whether stopped
// locally or failed by a transport-fatal condition.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err reports why the transport closed. It is nil while the transport is
// alive and ErrStopped after a local Stop.
func (c *Conn) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return c.errv
}

// Stop closes the underlying stream first, so workers blocked in stream
// I/O fail fast, then signals and joins both workers. Idempotent: repeat
// calls are no-ops. No frame is written after Stop begins.
func (c *Conn) Stop() {
	c.shutdown(ErrStopped)
	c.wg.Wait()
}

func (c *Conn) shutdown(err error) {
	c.stopOnce.Do(func() {
		c.errMu.Lock()
		c.errv = err
		c.errMu.Unlock()
		if cerr := c.stream.Close(); cerr != nil {
			c.log.Debug().Err(cerr).Msg("stream close")
		}
		close(c.done)
	})
}

func (c *Conn) readLoop() {
	defer c.wg.Done()
	br := bufio.NewReader(c.stream)
	for {
		f, err := frame.ReadFrame(br, c.cfg.Limits)
		if err != nil {
			c.readFailed(err)
			return
		}
		observability.RecordFrameRead(len(f.Payload))

		pkt, err := c.decode(f.Payload, f.Header.DecompressedHint)
		if err != nil {
			if protocol.IsDecodeError(err) {
				observability.RecordDecodeError()
				c.log.Warn().Err(err).Msg("dropping undecodable frame")
				continue
			}
			c.readFailed(err)
			return
		}

		select {
		case c.in <- pkt:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) readFailed(err error) {
	select {
	case <-c.done:
		// Already stopping; the read error is a consequence, not a cause.
		return
	default:
	}
	if errors.Is(err, io.EOF) {
		c.log.Info().Msg("peer closed stream")
		c.shutdown(ErrPeerClosed)
		return
	}
	c.log.Error().Err(err).Msg("transport read failed")
	c.shutdown(fmt.Errorf("transport: read: %w", err))
}

func (c *Conn) writeLoop() {
	defer c.wg.Done()
	bw := bufio.NewWriter(c.stream)
	for {
		select {
		case pkt := <-c.out:
			if err := c.writePacket(bw, pkt); err != nil {
				select {
				case <-c.done:
				default:
					c.log.Error().Err(err).Msg("transport write failed")
					c.shutdown(fmt.Errorf("transport: write: %w", err))
				}
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writePacket(bw *bufio.Writer, pkt protocol.Packet) error {
	payload, hint, err := c.cfg.Codec.Encode(pkt)
	if err != nil {
		// Encode failures are local bugs, not transport faults; drop the
		// packet and keep the connection alive.
		c.log.Error().Err(err).Msg("dropping unencodable packet")
		return nil
	}
	f := frame.Frame{
		Header:  frame.Header{DecompressedHint: hint},
		Payload: payload,
	}
	if err := frame.WriteFrame(bw, f, c.cfg.Limits); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	observability.RecordFrameWritten(len(payload))
	return nil
}

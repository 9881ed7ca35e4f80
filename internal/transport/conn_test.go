package transport

import (
	"bufio"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"terralink/internal/protocol"
	"terralink/internal/protocol/frame"
	"terralink/internal/testutil/testlog"
	"terralink/internal/voxel"
)

func pipePair(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	clientEnd, serverEnd := net.Pipe()
	client := NewClient(clientEnd, Config{})
	server := NewServer(serverEnd, Config{})
	t.Cleanup(func() {
		client.Stop()
		server.Stop()
	})
	return client, server
}

func TestSendReceiveBothDirections(t *testing.T) {
	testlog.Start(t)
	client, server := pipePair(t)

	req := &protocol.GenerateRegion{
		RequestID: 41,
		Min:       voxel.Vec3{X: 0, Y: 0, Z: 0},
		Max:       voxel.Vec3{X: 16, Y: 16, Z: 16},
		Generator: "flatworld",
	}
	require.NoError(t, client.Send(req))

	got, err := server.Receive()
	require.NoError(t, err)
	up, ok := got.(*protocol.GenerateRegion)
	require.True(t, ok, "expected *GenerateRegion, got %T", got)
	require.Equal(t, req, up)

	require.NoError(t, server.Send(&protocol.FinishRequest{RequestID: 41}))
	down, err := client.Receive()
	require.NoError(t, err)
	require.Equal(t, protocol.RequestID(41), down.Request())
	require.IsType(t, &protocol.FinishRequest{}, down)
}

func TestTryReceiveNonBlocking(t *testing.T) {
	testlog.Start(t)
	client, server := pipePair(t)

	pkt, ok := client.TryReceive()
	require.False(t, ok)
	require.Nil(t, pkt)

	require.NoError(t, server.Send(&protocol.AckRequest{RequestID: 9, Info: "accepted"}))
	require.Eventually(t, func() bool {
		pkt, ok = client.TryReceive()
		return ok
	}, time.Second, time.Millisecond)
	require.Equal(t, protocol.RequestID(9), pkt.Request())
}

// gatedStream blocks every Write until the test feeds a token, so the
// writer worker can be held mid-write deliberately.
type gatedStream struct {
	tokens chan struct{}
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes int
}

func newGatedStream() *gatedStream {
	return &gatedStream{
		tokens: make(chan struct{}),
		closed: make(chan struct{}),
	}
}

func (s *gatedStream) Read(p []byte) (int, error) {
	<-s.closed
	return 0, io.EOF
}

func (s *gatedStream) Write(p []byte) (int, error) {
	select {
	case <-s.tokens:
		s.mu.Lock()
		s.writes++
		s.mu.Unlock()
		return len(p), nil
	case <-s.closed:
		return 0, io.ErrClosedPipe
	}
}

func (s *gatedStream) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}

func (s *gatedStream) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func TestOutboundBackpressure(t *testing.T) {
	testlog.Start(t)
	stream := newGatedStream()
	conn := NewClient(stream, Config{QueueDepth: 1})
	defer conn.Stop()

	// First packet is picked up by the writer and parks in Write; second
	// fills the queue.
	require.NoError(t, conn.Send(&protocol.FinishRequest{RequestID: 1}))
	require.NoError(t, conn.Send(&protocol.FinishRequest{RequestID: 2}))

	blocked := make(chan error, 1)
	go func() {
		blocked <- conn.Send(&protocol.FinishRequest{RequestID: 3})
	}()

	select {
	case err := <-blocked:
		t.Fatalf("send past queue capacity did not block (err=%v)", err)
	case <-time.After(50 * time.Millisecond):
	}

	// Letting one write complete frees exactly one queue slot.
	stream.tokens <- struct{}{}
	select {
	case err := <-blocked:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("blocked send was not released by draining one element")
	}
}

func TestStopIsIdempotentAndSilencesSend(t *testing.T) {
	testlog.Start(t)
	stream := newGatedStream()
	conn := NewClient(stream, Config{})

	conn.Stop()
	conn.Stop()

	require.ErrorIs(t, conn.Send(&protocol.FinishRequest{RequestID: 1}), ErrStopped)
	require.ErrorIs(t, conn.Err(), ErrStopped)
	require.Zero(t, stream.writeCount(), "no frame may be written after stop begins")

	select {
	case <-conn.Done():
	default:
		t.Fatal("Done must be closed after Stop")
	}
}

func TestPeerCloseTerminatesWorkers(t *testing.T) {
	testlog.Start(t)
	clientEnd, serverEnd := net.Pipe()
	conn := NewClient(clientEnd, Config{})
	defer conn.Stop()

	require.NoError(t, serverEnd.Close())

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("reader did not observe peer close")
	}
	require.ErrorIs(t, conn.Err(), ErrPeerClosed)
}

func TestUndecodableFrameIsDroppedNotFatal(t *testing.T) {
	testlog.Start(t)
	clientEnd, serverEnd := net.Pipe()
	conn := NewClient(clientEnd, Config{})
	defer conn.Stop()
	defer serverEnd.Close()

	go func() {
		bw := bufio.NewWriter(serverEnd)
		// Garbage payload: not a zlib stream.
		garbage := frame.Frame{
			Header:  frame.Header{DecompressedHint: 16},
			Payload: []byte{0xde, 0xad, 0xbe, 0xef},
		}
		if err := frame.WriteFrame(bw, garbage, frame.DefaultLimits()); err != nil {
			return
		}
		codec := protocol.DefaultCodec()
		payload, hint, err := codec.Encode(&protocol.FinishRequest{RequestID: 7})
		if err != nil {
			return
		}
		good := frame.Frame{
			Header:  frame.Header{DecompressedHint: hint},
			Payload: payload,
		}
		if err := frame.WriteFrame(bw, good, frame.DefaultLimits()); err != nil {
			return
		}
		_ = bw.Flush()
	}()

	pkt, err := conn.Receive()
	require.NoError(t, err)
	require.Equal(t, protocol.RequestID(7), pkt.Request())

	select {
	case <-conn.Done():
		t.Fatal("decode error must not kill the connection")
	default:
	}
}

func TestShortFrameIsFatal(t *testing.T) {
	testlog.Start(t)
	clientEnd, serverEnd := net.Pipe()
	conn := NewClient(clientEnd, Config{})
	defer conn.Stop()

	go func() {
		// Header promises 64 payload bytes, then the stream dies.
		h := frame.Header{CompressedLen: 64, DecompressedHint: 64}
		_, _ = serverEnd.Write(frame.EncodeHeader(h))
		_, _ = serverEnd.Write([]byte{1, 2, 3})
		_ = serverEnd.Close()
	}()

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("short read did not terminate the transport")
	}
	require.Error(t, conn.Err())
	require.NotErrorIs(t, conn.Err(), ErrStopped)
}

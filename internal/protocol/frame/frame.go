package frame

import (
	"encoding/binary"
	"errors"
	"io"
)

// HeaderLen is the fixed wire header size.
const HeaderLen = 8

var (
	ErrShortHeader     = errors.New("frame: short header")
	ErrShortPayload    = errors.New("frame: short payload")
	ErrPayloadTooLarge = errors.New("frame: payload too large")
)

// Header is the fixed frame header: the compressed payload length governs
// how many bytes follow on the wire; the decompressed size is an advisory
// hint for the packet decoder and never bounds a read.
type Header struct {
	CompressedLen    uint32
	DecompressedHint uint32
}

// Frame is one complete length-prefixed wire message.
type Frame struct {
	Header  Header
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 8 * 1024 * 1024,
	}
}

// ReadFrame reads exactly one frame from r. A stream that ends cleanly on a
// frame boundary returns io.EOF; a stream that ends mid-header or
// mid-payload returns ErrShortHeader or ErrShortPayload. All errors from
// ReadFrame are fatal for the connection.
func ReadFrame(r io.Reader, limits Limits) (Frame, error) {
	var fixed [HeaderLen]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortHeader
		}
		return Frame{}, err
	}

	h := DecodeHeader(fixed[:])
	if h.CompressedLen > limits.MaxPayloadBytes {
		return Frame{}, ErrPayloadTooLarge
	}

	payload := make([]byte, h.CompressedLen)
	if h.CompressedLen > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Frame{}, ErrShortPayload
			}
			return Frame{}, err
		}
	}

	return Frame{Header: h, Payload: payload}, nil
}

// WriteFrame writes one frame to w. The header's compressed length is
// derived from the payload; the hint is taken from f.Header.
func WriteFrame(w io.Writer, f Frame, limits Limits) error {
	if uint64(len(f.Payload)) > uint64(limits.MaxPayloadBytes) {
		return ErrPayloadTooLarge
	}

	h := f.Header
	h.CompressedLen = uint32(len(f.Payload))

	if _, err := w.Write(EncodeHeader(h)); err != nil {
		return err
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return err
		}
	}
	return nil
}

func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderLen)
	binary.BigEndian.PutUint32(buf[0:4], h.CompressedLen)
	binary.BigEndian.PutUint32(buf[4:8], h.DecompressedHint)
	return buf
}

func DecodeHeader(b []byte) Header {
	return Header{
		CompressedLen:    binary.BigEndian.Uint32(b[0:4]),
		DecompressedHint: binary.BigEndian.Uint32(b[4:8]),
	}
}

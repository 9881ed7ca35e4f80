package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

const tagLen = 2

// maxInflatedBytes caps both the hint-driven pre-allocation and the
// actual decompressed size of one frame, so neither a lying hint nor a
// compression bomb can exhaust memory.
const maxInflatedBytes = 1 << 24

// Codec compresses encoded packets into frame payloads and back. The tag
// registry it dispatches over is the closed canonical table; payload
// parsing is owned by each packet type.
type Codec struct {
	Level int
}

func DefaultCodec() Codec {
	return Codec{Level: zlib.BestCompression}
}

var upstreamDecoders = map[Tag]func(*packetReader) (Packet, error){
	TagGenerateRegion:    decodeGenerateRegion,
	TagGenerateBrush:     decodeGenerateBrush,
	TagRequestGenerators: decodeRequestGenerators,
	TagAddGenerator:      decodeAddGenerator,
}

var downstreamDecoders = map[Tag]func(*packetReader) (Packet, error){
	TagVoxelData:             decodeVoxelData,
	TagFinishRequest:         decodeFinishRequest,
	TagAckRequest:            decodeAckRequest,
	TagListGenerators:        decodeListGenerators,
	TagGeneratorConfirmation: decodeGeneratorConfirmation,
	TagProtocolError:         decodeProtocolError,
}

// Encode serializes p, compresses it, and returns the frame payload plus
// the decompressed-size hint for the frame header.
func (c Codec) Encode(p Packet) (payload []byte, hint uint32, err error) {
	w := &packetWriter{}
	w.u16(uint16(p.Tag()))
	p.encodeBody(w)
	if w.err != nil {
		return nil, 0, fmt.Errorf("encode packet tag %d: %w", p.Tag(), w.err)
	}

	level := c.Level
	if level == 0 {
		level = zlib.BestCompression
	}

	var zbuf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&zbuf, level)
	if err != nil {
		return nil, 0, fmt.Errorf("encode packet tag %d: %w", p.Tag(), err)
	}
	if _, err := zw.Write(w.buf); err != nil {
		return nil, 0, fmt.Errorf("encode packet tag %d: %w", p.Tag(), err)
	}
	if err := zw.Close(); err != nil {
		return nil, 0, fmt.Errorf("encode packet tag %d: %w", p.Tag(), err)
	}

	return zbuf.Bytes(), uint32(len(w.buf)), nil
}

// DecodeDownstream decodes a frame payload into a server-to-client packet.
// Every failure is a *DecodeError: recoverable, per-frame.
func (c Codec) DecodeDownstream(payload []byte, hint uint32) (Downstream, error) {
	pkt, err := c.decode(payload, hint, downstreamDecoders)
	if err != nil {
		return nil, err
	}
	return pkt.(Downstream), nil
}

// DecodeUpstream decodes a frame payload into a client-to-server packet.
func (c Codec) DecodeUpstream(payload []byte, hint uint32) (Upstream, error) {
	pkt, err := c.decode(payload, hint, upstreamDecoders)
	if err != nil {
		return nil, err
	}
	return pkt.(Upstream), nil
}

func (c Codec) decode(payload []byte, hint uint32, decoders map[Tag]func(*packetReader) (Packet, error)) (Packet, error) {
	body, err := inflate(payload, hint)
	if err != nil {
		return nil, err
	}
	if len(body) < tagLen {
		return nil, &DecodeError{Err: ErrShortPacket}
	}

	tag := Tag(binary.BigEndian.Uint16(body[:tagLen]))
	decode, ok := decoders[tag]
	if !ok {
		return nil, &DecodeError{Tag: tag, Err: ErrUnknownTag}
	}

	pkt, err := decode(&packetReader{buf: body[tagLen:]})
	if err != nil {
		return nil, &DecodeError{Tag: tag, Err: err}
	}
	return pkt, nil
}

// inflate decompresses a frame payload. The hint only sizes the output
// buffer; the hard bound on decompressed size is maxInflatedBytes, and a
// frame inflating past it is a recoverable decode failure.
func inflate(payload []byte, hint uint32) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrCorruptPayload, err)}
	}
	defer zr.Close()

	var buf bytes.Buffer
	if hint > 0 && hint <= maxInflatedBytes {
		buf.Grow(int(hint))
	}
	if _, err := io.Copy(&buf, io.LimitReader(zr, maxInflatedBytes+1)); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", ErrCorruptPayload, err)}
	}
	if buf.Len() > maxInflatedBytes {
		return nil, &DecodeError{Err: ErrDecompressedTooLarge}
	}
	return buf.Bytes(), nil
}

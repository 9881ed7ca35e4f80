package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestReadWriteFrameRoundTrip(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef, 0x01}
	in := Frame{
		Header:  Header{DecompressedHint: 1234},
		Payload: payload,
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != HeaderLen+len(payload) {
		t.Fatalf("frame length: got=%d want=%d", buf.Len(), HeaderLen+len(payload))
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.CompressedLen != uint32(len(payload)) {
		t.Fatalf("compressed len: got=%d want=%d", out.Header.CompressedLen, len(payload))
	}
	if out.Header.DecompressedHint != 1234 {
		t.Fatalf("hint: got=%d want=1234", out.Header.DecompressedHint)
	}
	if !bytes.Equal(out.Payload, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestReadFrameCleanEOF(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader(nil), DefaultLimits())
	if !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestReadFrameShortHeader(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{1, 2, 3}), DefaultLimits())
	if !errors.Is(err, ErrShortHeader) {
		t.Fatalf("expected ErrShortHeader, got %v", err)
	}
}

func TestReadFrameShortPayload(t *testing.T) {
	h := Header{CompressedLen: 16, DecompressedHint: 16}
	buf := append(EncodeHeader(h), 1, 2, 3)
	_, err := ReadFrame(bytes.NewReader(buf), DefaultLimits())
	if !errors.Is(err, ErrShortPayload) {
		t.Fatalf("expected ErrShortPayload, got %v", err)
	}
}

func TestReadFramePayloadTooLarge(t *testing.T) {
	h := Header{CompressedLen: 1 << 20}
	buf := EncodeHeader(h)
	_, err := ReadFrame(bytes.NewReader(buf), Limits{MaxPayloadBytes: 1024})
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestReadFrameEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, Frame{}, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if len(out.Payload) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(out.Payload))
	}
}

func TestHeaderLayoutIsBigEndian(t *testing.T) {
	buf := EncodeHeader(Header{CompressedLen: 0x01020304, DecompressedHint: 0x0a0b0c0d})
	want := []byte{0x01, 0x02, 0x03, 0x04, 0x0a, 0x0b, 0x0c, 0x0d}
	if !bytes.Equal(buf, want) {
		t.Fatalf("header bytes: got=%x want=%x", buf, want)
	}
}

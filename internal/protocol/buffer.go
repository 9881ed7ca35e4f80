package protocol

import (
	"encoding/binary"

	"terralink/internal/voxel"
)

// packetWriter appends big-endian fields to a packet body. The first error
// sticks; callers check err once after writing every field.
type packetWriter struct {
	buf []byte
	err error
}

func (w *packetWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *packetWriter) u16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *packetWriter) u32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *packetWriter) u64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

func (w *packetWriter) i32(v int32) {
	w.u32(uint32(v))
}

func (w *packetWriter) boolean(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *packetWriter) str(s string) {
	if len(s) > int(^uint16(0)) {
		if w.err == nil {
			w.err = ErrStringTooLong
		}
		return
	}
	w.u16(uint16(len(s)))
	w.buf = append(w.buf, s...)
}

func (w *packetWriter) vec3(v voxel.Vec3) {
	w.i32(v.X)
	w.i32(v.Y)
	w.i32(v.Z)
}

// packetReader consumes big-endian fields from a packet body. Underflow
// sets a sticky ErrShortPacket; done() also rejects trailing bytes.
type packetReader struct {
	buf []byte
	off int
	err error
}

func (r *packetReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.off < n {
		r.err = ErrShortPacket
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *packetReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *packetReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *packetReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *packetReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *packetReader) i32() int32 {
	return int32(r.u32())
}

func (r *packetReader) boolean() bool {
	return r.u8() != 0
}

func (r *packetReader) str() string {
	n := int(r.u16())
	b := r.take(n)
	if b == nil {
		return ""
	}
	return string(b)
}

func (r *packetReader) vec3() voxel.Vec3 {
	return voxel.Vec3{X: r.i32(), Y: r.i32(), Z: r.i32()}
}

func (r *packetReader) done() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.buf) {
		return ErrTrailingBytes
	}
	return nil
}

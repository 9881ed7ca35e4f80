package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownTag     = errors.New("protocol: unknown packet tag")
	ErrShortPacket    = errors.New("protocol: packet too short")
	ErrTrailingBytes  = errors.New("protocol: trailing bytes after packet body")
	ErrCorruptPayload = errors.New("protocol: corrupt compressed payload")
	ErrStringTooLong  = errors.New("protocol: string exceeds length prefix")
	ErrListTooLong    = errors.New("protocol: list exceeds length prefix")

	ErrDecompressedTooLarge = errors.New("protocol: decompressed payload exceeds limit")
)

// DecodeError wraps any per-frame decoding failure. Decode errors are
// recoverable: the frame is dropped and the connection stays alive.
type DecodeError struct {
	Tag Tag
	Err error
}

func (e *DecodeError) Error() string {
	if e.Tag == 0 {
		return fmt.Sprintf("decode packet: %v", e.Err)
	}
	return fmt.Sprintf("decode packet tag %d: %v", e.Tag, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsDecodeError reports whether err is a recoverable per-frame decode
// failure rather than a transport fault.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

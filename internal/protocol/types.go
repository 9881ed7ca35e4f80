package protocol

import "strconv"

// RequestID correlates a request to its streamed responses. Values are
// connection-local, drawn randomly from the 63-bit space; zero is reserved
// for "no request".
type RequestID uint64

// MaxRequestID bounds the id space; the high bit is never set so ids
// survive signed 64-bit representations on the peer.
const MaxRequestID RequestID = 1<<63 - 1

func (id RequestID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// GeneratorID identifies a server-side generator instance. Opaque to the
// client beyond round-tripping it.
type GeneratorID uint32

// Tag identifies a concrete packet type on the wire.
type Tag uint16

// Canonical tag table, shared verbatim by both ends of the connection.
const (
	TagGenerateRegion        Tag = 1
	TagGenerateBrush         Tag = 2
	TagFinishRequest         Tag = 3
	TagVoxelData             Tag = 4
	TagAckRequest            Tag = 5
	TagRequestGenerators     Tag = 6
	TagListGenerators        Tag = 7
	TagAddGenerator          Tag = 8
	TagProtocolError         Tag = 9
	TagGeneratorConfirmation Tag = 10
)

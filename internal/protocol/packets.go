package protocol

import (
	"fmt"

	"terralink/internal/voxel"
)

// Packet is one typed wire message. Packets are immutable value objects;
// the codec copies them to and from the wire, never shares buffers.
type Packet interface {
	Tag() Tag
	Request() RequestID
	encodeBody(w *packetWriter)
}

// Upstream is a client-to-server packet. The set is closed: decoding
// dispatches over the canonical tag table only.
type Upstream interface {
	Packet
	isUpstream()
}

// Downstream is a server-to-client packet.
type Downstream interface {
	Packet
	isDownstream()
}

// GenerateRegion requests terrain for an axis-aligned box, streamed back
// as voxel-data chunks.
type GenerateRegion struct {
	RequestID RequestID
	Min, Max  voxel.Vec3
	Generator string
}

func (*GenerateRegion) Tag() Tag             { return TagGenerateRegion }
func (p *GenerateRegion) Request() RequestID { return p.RequestID }
func (*GenerateRegion) isUpstream() {}

func (p *GenerateRegion) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
	w.vec3(p.Min)
	w.vec3(p.Max)
	w.str(p.Generator)
}

func decodeGenerateRegion(r *packetReader) (Packet, error) {
	p := &GenerateRegion{
		RequestID: RequestID(r.u64()),
		Min:       r.vec3(),
		Max:       r.vec3(),
		Generator: r.str(),
	}
	return p, r.done()
}

// GenerateBrush requests terrain for the single chunk containing a point.
type GenerateBrush struct {
	RequestID RequestID
	Pos       voxel.Vec3
	Generator string
}

func (*GenerateBrush) Tag() Tag             { return TagGenerateBrush }
func (p *GenerateBrush) Request() RequestID { return p.RequestID }
func (*GenerateBrush) isUpstream() {}

func (p *GenerateBrush) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
	w.vec3(p.Pos)
	w.str(p.Generator)
}

func decodeGenerateBrush(r *packetReader) (Packet, error) {
	p := &GenerateBrush{
		RequestID: RequestID(r.u64()),
		Pos:       r.vec3(),
		Generator: r.str(),
	}
	return p, r.done()
}

// RequestGenerators asks the service for its registered generator names.
type RequestGenerators struct {
	RequestID RequestID
}

func (*RequestGenerators) Tag() Tag             { return TagRequestGenerators }
func (p *RequestGenerators) Request() RequestID { return p.RequestID }
func (*RequestGenerators) isUpstream() {}

func (p *RequestGenerators) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
}

func decodeRequestGenerators(r *packetReader) (Packet, error) {
	p := &RequestGenerators{RequestID: RequestID(r.u64())}
	return p, r.done()
}

// AddGenerator registers a parameterized generator instance on the service.
type AddGenerator struct {
	RequestID    RequestID
	Name         string
	MinHeight    int32
	MaxHeight    int32
	DefaultBlock voxel.BlockID
}

func (*AddGenerator) Tag() Tag             { return TagAddGenerator }
func (p *AddGenerator) Request() RequestID { return p.RequestID }
func (*AddGenerator) isUpstream() {}

func (p *AddGenerator) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
	w.str(p.Name)
	w.i32(p.MinHeight)
	w.i32(p.MaxHeight)
	w.u32(uint32(p.DefaultBlock))
}

func decodeAddGenerator(r *packetReader) (Packet, error) {
	p := &AddGenerator{
		RequestID:    RequestID(r.u64()),
		Name:         r.str(),
		MinHeight:    r.i32(),
		MaxHeight:    r.i32(),
		DefaultBlock: voxel.BlockID(r.u32()),
	}
	return p, r.done()
}

// VoxelData carries one chunk of an in-flight request's result.
type VoxelData struct {
	RequestID RequestID
	Chunk     *voxel.Chunk
}

func (*VoxelData) Tag() Tag             { return TagVoxelData }
func (p *VoxelData) Request() RequestID { return p.RequestID }
func (*VoxelData) isDownstream() {}

func (p *VoxelData) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
	w.vec3(p.Chunk.Anchor)
	// Blocks are already stored x-fastest, z-outer; the flat array order
	// is the wire order.
	for i := range p.Chunk.Blocks {
		w.u32(uint32(p.Chunk.Blocks[i]))
	}
}

func decodeVoxelData(r *packetReader) (Packet, error) {
	p := &VoxelData{RequestID: RequestID(r.u64())}
	c := &voxel.Chunk{Anchor: r.vec3()}
	for i := range c.Blocks {
		c.Blocks[i] = voxel.BlockID(r.u32())
	}
	p.Chunk = c
	return p, r.done()
}

// FinishRequest is the terminal packet: no more chunks for this request.
type FinishRequest struct {
	RequestID RequestID
}

func (*FinishRequest) Tag() Tag             { return TagFinishRequest }
func (p *FinishRequest) Request() RequestID { return p.RequestID }
func (*FinishRequest) isDownstream() {}

func (p *FinishRequest) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
}

func decodeFinishRequest(r *packetReader) (Packet, error) {
	p := &FinishRequest{RequestID: RequestID(r.u64())}
	return p, r.done()
}

// AckRequest is informational: the service has accepted a request.
type AckRequest struct {
	RequestID RequestID
	Info      string
}

func (*AckRequest) Tag() Tag             { return TagAckRequest }
func (p *AckRequest) Request() RequestID { return p.RequestID }
func (*AckRequest) isDownstream() {}

func (p *AckRequest) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
	w.str(p.Info)
}

func decodeAckRequest(r *packetReader) (Packet, error) {
	p := &AckRequest{
		RequestID: RequestID(r.u64()),
		Info:      r.str(),
	}
	return p, r.done()
}

// ListGenerators answers RequestGenerators with the registered names.
type ListGenerators struct {
	RequestID  RequestID
	Generators []string
}

func (*ListGenerators) Tag() Tag             { return TagListGenerators }
func (p *ListGenerators) Request() RequestID { return p.RequestID }
func (*ListGenerators) isDownstream() {}

func (p *ListGenerators) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
	if len(p.Generators) > int(^uint16(0)) {
		if w.err == nil {
			w.err = ErrListTooLong
		}
		return
	}
	w.u16(uint16(len(p.Generators)))
	for _, name := range p.Generators {
		w.str(name)
	}
}

func decodeListGenerators(r *packetReader) (Packet, error) {
	p := &ListGenerators{RequestID: RequestID(r.u64())}
	n := int(r.u16())
	for i := 0; i < n && r.err == nil; i++ {
		p.Generators = append(p.Generators, r.str())
	}
	return p, r.done()
}

// GeneratorConfirmation answers AddGenerator with the server-assigned id.
type GeneratorConfirmation struct {
	RequestID RequestID
	Generator GeneratorID
}

func (*GeneratorConfirmation) Tag() Tag             { return TagGeneratorConfirmation }
func (p *GeneratorConfirmation) Request() RequestID { return p.RequestID }
func (*GeneratorConfirmation) isDownstream() {}

func (p *GeneratorConfirmation) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
	w.u32(uint32(p.Generator))
}

func decodeGeneratorConfirmation(r *packetReader) (Packet, error) {
	p := &GeneratorConfirmation{
		RequestID: RequestID(r.u64()),
		Generator: GeneratorID(r.u32()),
	}
	return p, r.done()
}

// ProtocolError reports a server-side failure. A zero RequestID means the
// error is not tied to a single request. Fatal errors terminate the
// connection; non-fatal errors resolve only the referenced request.
type ProtocolError struct {
	RequestID RequestID
	Fatal     bool
	Message   string
}

func (*ProtocolError) Tag() Tag             { return TagProtocolError }
func (p *ProtocolError) Request() RequestID { return p.RequestID }
func (*ProtocolError) isDownstream() {}

func (p *ProtocolError) encodeBody(w *packetWriter) {
	w.u64(uint64(p.RequestID))
	w.boolean(p.Fatal)
	w.str(p.Message)
}

func decodeProtocolError(r *packetReader) (Packet, error) {
	p := &ProtocolError{
		RequestID: RequestID(r.u64()),
		Fatal:     r.boolean(),
		Message:   r.str(),
	}
	return p, r.done()
}

// ServerError is the client-side error value a ProtocolError resolves to.
type ServerError struct {
	Fatal   bool
	Message string
}

func (e *ServerError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("protocol: fatal server error: %s", e.Message)
	}
	return fmt.Sprintf("protocol: server error: %s", e.Message)
}

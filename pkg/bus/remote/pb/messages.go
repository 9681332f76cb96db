// Package pb defines the messages exchanged with a remote CAN adapter.
package pb

import "github.com/golang/protobuf/proto"

// Kind values of Envelope.
const (
	KindTransmit   uint32 = 1
	KindTxComplete uint32 = 2
	KindReceived   uint32 = 3
	KindFilter     uint32 = 4
)

// Envelope wraps every packet on the wire.
type Envelope struct {
	Kind   uint32  `protobuf:"varint,1,opt,name=kind,proto3" json:"kind,omitempty"`
	Slot   uint32  `protobuf:"varint,2,opt,name=slot,proto3" json:"slot,omitempty"`
	Frame  *Frame  `protobuf:"bytes,3,opt,name=frame,proto3" json:"frame,omitempty"`
	Filter *Filter `protobuf:"bytes,4,opt,name=filter,proto3" json:"filter,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Envelope) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Envelope) Reset() { *m = Envelope{} }

// String implements proto.Message.
func (m *Envelope) String() string { return proto.CompactTextString(m) }

// Frame is a frame on the bus.
type Frame struct {
	Id       uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Extended bool   `protobuf:"varint,2,opt,name=extended,proto3" json:"extended,omitempty"`
	Remote   bool   `protobuf:"varint,3,opt,name=remote,proto3" json:"remote,omitempty"`
	Data     []byte `protobuf:"bytes,4,opt,name=data,proto3" json:"data,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Frame) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Frame) Reset() { *m = Frame{} }

// String implements proto.Message.
func (m *Frame) String() string { return proto.CompactTextString(m) }

// Filter configures the receive mob of the adapter.
type Filter struct {
	Id       uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Mask     uint32 `protobuf:"varint,2,opt,name=mask,proto3" json:"mask,omitempty"`
	Extended bool   `protobuf:"varint,3,opt,name=extended,proto3" json:"extended,omitempty"`
}

// ProtoMessage implements proto.Message.
func (m *Filter) ProtoMessage() {}

// Reset implements proto.Message.
func (m *Filter) Reset() { *m = Filter{} }

// String implements proto.Message.
func (m *Filter) String() string { return proto.CompactTextString(m) }

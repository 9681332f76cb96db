package remote

import (
	"fmt"

	"github.com/golang/protobuf/proto"

	"github.com/robotalks/cantester/pkg/bus/remote/pb"
	"github.com/robotalks/cantester/pkg/can"
)

// UnknownKindError is returned when an envelope carries an unexpected kind.
type UnknownKindError struct {
	Kind uint32
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown envelope kind %d", e.Kind)
}

// EncodeFrame converts a frame to its wire form.
func EncodeFrame(f can.Frame) *pb.Frame {
	return &pb.Frame{
		Id:       f.ID,
		Extended: f.IDType == can.Extended,
		Remote:   f.Kind == can.Remote,
		Data:     f.Payload(),
	}
}

// DecodeFrame converts a wire frame. Payload beyond 8 bytes is dropped.
func DecodeFrame(m *pb.Frame) can.Frame {
	var f can.Frame
	if m == nil {
		return f
	}
	f.ID = m.Id
	if m.Extended {
		f.IDType = can.Extended
	}
	if m.Remote {
		f.Kind = can.Remote
	} else {
		f.SetPayload(m.Data)
	}
	return f
}

func encode(env *pb.Envelope) ([]byte, error) {
	return proto.Marshal(env)
}

func decode(pkt []byte) (*pb.Envelope, error) {
	var env pb.Envelope
	if err := proto.Unmarshal(pkt, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return &env, nil
}

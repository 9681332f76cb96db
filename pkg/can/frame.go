package can

// MaxDataLen is the maximum payload length of a classical CAN frame.
const MaxDataLen = 8

// Direction tells where a frame originated.
type Direction uint8

const (
	// Input means the frame was received from the bus.
	Input Direction = iota
	// Output means the frame was scheduled locally.
	Output
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	if d == Input {
		return "Input"
	}
	return "Output"
}

// IDType is the identifier address space.
type IDType uint8

const (
	// Standard is the 11-bit identifier space (CAN 2.0A).
	Standard IDType = iota
	// Extended is the 29-bit identifier space (CAN 2.0B).
	Extended
)

// String implements fmt.Stringer.
func (t IDType) String() string {
	if t == Standard {
		return "Standard"
	}
	return "Extended"
}

// Max returns the largest identifier of the address space.
func (t IDType) Max() uint32 {
	if t == Standard {
		return 0x7ff
	}
	return 0x1fffffff
}

// Kind is the frame kind.
type Kind uint8

const (
	// Data frames carry a payload of 0-8 bytes.
	Data Kind = iota
	// Remote frames request a payload and carry none.
	Remote
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	if k == Data {
		return "Data"
	}
	return "Remote"
}

// Frame describes one CAN frame, either scheduled for transmission or
// captured from the bus.
type Frame struct {
	// Time is in ms since the scheduler started: the fire time for
	// Output frames and the capture time for Input frames.
	Time      uint32
	Direction Direction
	IDType    IDType
	Kind      Kind
	// ID is not range checked against IDType.
	ID   uint32
	Len  uint8
	Data [MaxDataLen]byte
}

// Payload returns the meaningful payload bytes. Remote frames have none.
func (f *Frame) Payload() []byte {
	if f.Kind == Remote {
		return nil
	}
	l := f.Len
	if l > MaxDataLen {
		l = MaxDataLen
	}
	return f.Data[:l]
}

// SetPayload copies at most MaxDataLen bytes into the frame and updates Len.
func (f *Frame) SetPayload(p []byte) {
	f.Len = uint8(copy(f.Data[:], p))
}

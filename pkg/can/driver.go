package can

// TxCompleteFunc is called by a driver exactly once per submitted frame,
// when the message object has been transmitted. It may be called from any
// goroutine.
type TxCompleteFunc func(slot int)

// RxHandler is notified of every frame accepted by the receiver.
// It may be called from any goroutine and must not block.
type RxHandler interface {
	FrameReceived(slot int, id uint32, kind Kind)
}

// FrameReceivedFunc is func form of RxHandler.
type FrameReceivedFunc func(slot int, id uint32, kind Kind)

// FrameReceived implements RxHandler.
func (f FrameReceivedFunc) FrameReceived(slot int, id uint32, kind Kind) {
	f(slot, id, kind)
}

// Driver is the capability of a CAN controller consumed by the tester.
type Driver interface {
	// Submit loads the frame into message object slot and requests
	// transmission. done is invoked once the frame left the controller.
	Submit(slot int, frame Frame, done TxCompleteFunc) error
	// ConfigureReceiver installs a persistent receive listener. Frames
	// whose id matches filter under mask are reported to h. The receiver
	// is re-armed by the driver after h returns.
	ConfigureReceiver(filter, mask uint32, idType IDType, h RxHandler) error
	// ReadPayload copies out at most max payload bytes of the frame held
	// in slot. It is only valid while handling the notification of slot.
	ReadPayload(slot int, max int) ([]byte, error)
}

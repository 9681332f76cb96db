// Package can defines the frame descriptor shared by the scheduler,
// the receive ring and the schedule codec, and the narrow capability
// interface of a CAN controller driver.
package can

// A frame descriptor is the unit of work for transmission and the unit
// of capture for reception. Drivers notify the tester asynchronously
// (transmit complete, frame received); handlers installed by the tester
// are expected to be short and never block.

package protocol

import (
	"errors"
	"fmt"
)

// Packet validation errors.
var (
	// ErrInvalidPacketHeader indicates the 4-byte packet header is malformed
	ErrInvalidPacketHeader = errors.New("invalid packet header")

	// ErrInvalidPacketLength indicates the declared payload length is
	// inconsistent with the received bytes
	ErrInvalidPacketLength = errors.New("invalid packet length")
)

// UnexpectedResponseError indicates a response with the wrong opcode or
// echoed parameters for the operation in flight.
type UnexpectedResponseError struct {
	// Operation is the request that was answered
	Operation string

	// Response is the offending payload
	Response []byte
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("%s: unexpected response [% 02X]", e.Operation, e.Response)
}

// PayloadLengthError indicates a structurally valid response whose data
// section has the wrong length.
type PayloadLengthError struct {
	// Operation is the request that was answered
	Operation string

	// Got is the received data length
	Got int

	// Want is the expected data length
	Want int
}

func (e *PayloadLengthError) Error() string {
	return fmt.Sprintf("%s: payload length %d, expected %d", e.Operation, e.Got, e.Want)
}

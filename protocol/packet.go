package protocol

import "fmt"

// BuildPacket wraps an application payload in the 4-byte protocol header.
//
// Packet structure:
//
//	[0xFF][0x01][LEN][0x00][PAYLOAD...]
//
// LEN is the payload length plus one.
func BuildPacket(payload []byte) []byte {
	packet := make([]byte, 0, PacketHeaderSize+len(payload))
	packet = append(packet, RequestMarker, ResponseMarker, byte(len(payload)+1), 0x00)
	packet = append(packet, payload...)
	return packet
}

// ParsePacket validates an inbound packet header and returns the payload.
//
// Packet structure:
//
//	[0x01][0xFF][LEN][0x00][PAYLOAD...]
//
// LEN must be at least 1, and the packet must contain at least LEN-1
// payload bytes after the header. Trailing bytes beyond the declared
// length are ignored.
func ParsePacket(packet []byte) ([]byte, error) {
	if len(packet) < PacketHeaderSize {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d",
			ErrInvalidPacketLength, len(packet), PacketHeaderSize)
	}

	if packet[0] != ResponseMarker || packet[1] != RequestMarker || packet[3] != 0x00 {
		return nil, fmt.Errorf("%w: [% 02X]", ErrInvalidPacketHeader, packet[:PacketHeaderSize])
	}

	length := int(packet[2])
	if length < 1 {
		return nil, fmt.Errorf("%w: declared length 0", ErrInvalidPacketLength)
	}
	if PacketHeaderSize+length-1 > len(packet) {
		return nil, fmt.Errorf("%w: declared %d payload bytes, packet holds %d",
			ErrInvalidPacketLength, length-1, len(packet)-PacketHeaderSize)
	}

	return packet[PacketHeaderSize : PacketHeaderSize+length-1], nil
}

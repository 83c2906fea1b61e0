// Package protocol implements the Shearwater dive-computer transfer
// protocol: SLIP link framing, the packet layer, request builders,
// response parsers, and the two decompression stages used by the
// multi-block download.
//
// # Wire format
//
// Every exchange is a request/response pair. The application payload is
// wrapped in a 4-byte packet header, SLIP-encoded, and fragmented into
// link frames of at most 32 bytes:
//
//	Frame:   [N_FRAMES][FRAME_INDEX][SLIP_BYTES...]
//	Packet:  [0xFF][0x01][LEN][0x00][PAYLOAD...]   (request)
//	         [0x01][0xFF][LEN][0x00][PAYLOAD...]   (response)
//
// LEN is the payload length plus one. The SLIP stream of one packet ends
// with a single END byte (0xC0) in the final frame.
//
// # Request builders
//
// Use the Build* functions to create request payloads:
//
//	payload := protocol.BuildReadCmd(protocol.IDSerialNumber)
//	payload := protocol.BuildDownloadInitCmd(addr, size, true)
//	// ... etc
//
// # Response parsers
//
// Use the Parse* functions to validate responses and extract their data:
//
//	data, err := protocol.ParseReadResponse(payload, id, 8, false)
//	maxBlock, err := protocol.ParseDownloadInitResponse(payload)
//
// # Download decompression
//
// Compressed downloads arrive as per-block LRE streams followed by a
// whole-region XOR pass:
//
//	chunk, final := protocol.DecodeLRE(block)
//	out = append(out, chunk...)
//	// after the final block:
//	protocol.UnslideXOR(out)
package protocol

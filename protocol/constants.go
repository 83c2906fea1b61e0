package protocol

// SLIP framing constants per RFC 1055.
const (
	// SlipEnd terminates a SLIP-encoded packet (0xC0)
	SlipEnd = 0xC0

	// SlipEsc introduces an escape sequence (0xDB)
	SlipEsc = 0xDB

	// SlipEscEnd follows SlipEsc to encode a literal 0xC0
	SlipEscEnd = 0xDC

	// SlipEscEsc follows SlipEsc to encode a literal 0xDB
	SlipEscEsc = 0xDD
)

// Link-frame layout. Every write to the device is at most FrameSize bytes:
// a 2-byte header [total frames, frame index] followed by up to
// FrameContentSize bytes of the SLIP stream.
const (
	// FrameSize is the maximum size of one link frame on the wire
	FrameSize = 32

	// FrameHeaderSize is the size of the link-frame header
	FrameHeaderSize = 2

	// FrameContentSize is the maximum SLIP content per link frame
	FrameContentSize = FrameSize - FrameHeaderSize
)

// Packet header layout. A request packet carries
// [0xFF, 0x01, L, 0x00] before the payload; a response carries
// [0x01, 0xFF, L, 0x00]. L is the payload length plus one.
const (
	// PacketHeaderSize is the size of the protocol packet header
	PacketHeaderSize = 4

	// RequestMarker is the first header byte of an outgoing packet
	RequestMarker = 0xFF

	// ResponseMarker is the first header byte of an incoming packet
	ResponseMarker = 0x01
)

// Command opcodes.
const (
	// CmdReadData is the Read-by-Data-Identifier request (0x22)
	CmdReadData = 0x22

	// CmdDownloadInit starts a multi-block memory download (0x35)
	CmdDownloadInit = 0x35

	// CmdBlockRequest requests the next download block (0x36)
	CmdBlockRequest = 0x36

	// CmdQuit ends a download (0x37)
	CmdQuit = 0x37

	// CmdCloseSession is the first byte of the end-session request
	CmdCloseSession = 0x2E
)

// Response opcodes.
const (
	// RspReadData answers CmdReadData (0x62)
	RspReadData = 0x62

	// RspDownloadInit acknowledges CmdDownloadInit (0x75)
	RspDownloadInit = 0x75

	// RspBlock carries one download block (0x76)
	RspBlock = 0x76

	// RspQuit acknowledges CmdQuit (0x77)
	RspQuit = 0x77

	// RspError is the device error/NAK opcode (0x7F)
	RspError = 0x7F
)

// DownloadCompressedFlag is set in the init request when the device should
// send the region through its LRE compressor.
const DownloadCompressedFlag = 0x10

// Well-known Read-by-Data-Identifier IDs.
const (
	// IDSerialNumber returns the 8-byte ASCII serial number
	IDSerialNumber = 0x8010

	// IDFirmwareVersion returns the firmware version string (up to 12 bytes)
	IDFirmwareVersion = 0x8011

	// IDLogBaseAddress returns 9 bytes; bytes 1..4 hold the dive-log base
	// address big-endian
	IDLogBaseAddress = 0x8021

	// IDHardwareType returns the 2-byte hardware model code
	IDHardwareType = 0x8050
)

// Device memory regions.
const (
	// ManifestAddress is the start of the dive manifest ring buffer
	ManifestAddress = 0xE0000000

	// ManifestSize is the size of the manifest region in bytes
	ManifestSize = 0x600
)

// MaxZeroRun caps a single LRE zero-run expansion.
const MaxZeroRun = 65536

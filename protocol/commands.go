package protocol

// BuildReadCmd constructs a Read-by-Data-Identifier request payload.
//
// Payload structure:
//
//	[0x22][ID_HI][ID_LO]
func BuildReadCmd(id uint16) []byte {
	return []byte{CmdReadData, byte(id >> 8), byte(id)}
}

// BuildDownloadInitCmd constructs the download init request payload.
//
// Payload structure:
//
//	[0x35][FLAGS][0x34][ADDR(4, BE)][SIZE(3, BE)]
//
// FLAGS carries DownloadCompressedFlag when the device should stream the
// region through its compressor.
func BuildDownloadInitCmd(address uint32, size uint32, compressed bool) []byte {
	var flags byte
	if compressed {
		flags = DownloadCompressedFlag
	}
	return []byte{
		CmdDownloadInit, flags, 0x34,
		byte(address >> 24), byte(address >> 16), byte(address >> 8), byte(address),
		byte(size >> 16), byte(size >> 8), byte(size),
	}
}

// BuildBlockRequestCmd constructs a block request payload.
//
// Payload structure:
//
//	[0x36][BLOCK_INDEX]
//
// The block index starts at 1 for the first block and wraps modulo 256.
func BuildBlockRequestCmd(index byte) []byte {
	return []byte{CmdBlockRequest, index}
}

// BuildQuitCmd constructs the download quit request payload.
func BuildQuitCmd() []byte {
	return []byte{CmdQuit}
}

// BuildCloseSessionCmd constructs the end-session request payload. The
// device does not answer it.
func BuildCloseSessionCmd() []byte {
	return []byte{CmdCloseSession, 0x90, 0x20, 0x00}
}

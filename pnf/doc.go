// Package pnf decodes Shearwater's Petrel Native Format dive logs.
//
// # Log format
//
// A log is a stream of 32-byte records. The first byte of each record is
// its type:
//
//	0x01        profile sample
//	0x10..0x17  opening (header) records
//	0x20..0x27  closing (footer) records
//	0x30        info record
//	0xE1        sample extension
//	0xFF        final record
//
// All multi-byte header and sample fields are big-endian.
//
// # Usage
//
// Decode a downloaded log:
//
//	dive, err := pnf.Parse(data)
//	if err != nil {
//	    // errors.Is(err, pnf.ErrNoDive) for logs with no decodable dive
//	}
//	fmt.Printf("%s  %.1fm  %s\n", dive.StartTime, dive.MaxDepth, dive.Duration)
//
// Decode the dive manifest region:
//
//	candidates := pnf.ParseManifest(manifestBytes)
//
// # Device quirks
//
// Per-model behaviour is folded in during parsing: the Teric reverses
// transmitter serial bytes and is the only family that records a UTC
// offset (from log version 9), and the transmitter-pressure sample offset
// moved in log version 15. The latter can be pinned per firmware family
// with WithTankPressureOffset.
package pnf

// Package transport drives the BLE serial link to a Shearwater dive
// computer.
//
// A Transport owns one Link for the life of a connected session. It runs
// a background goroutine that drains inbound notifications into a chunk
// queue, and exposes a single blocking operation:
//
//	response, err := tr.Transfer(ctx, request, expectedBytes)
//
// Transfer wraps the request in the packet header, SLIP-encodes it,
// writes the resulting link frames, and, unless the exchange is
// write-only, reassembles the response packet from the notification
// stream, with a hard deadline on the whole read.
//
// Exchanges are strictly serialised: the device correlates nothing, so
// exactly one request may be outstanding at a time.
package transport

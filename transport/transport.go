package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/divehub/go-shearwater/protocol"
)

// Stream errors.
var (
	// ErrTimeout indicates no complete response packet arrived in time
	ErrTimeout = errors.New("response timeout")

	// ErrDisconnected indicates the link dropped during an operation
	ErrDisconnected = errors.New("link disconnected")
)

// DefaultReadTimeout is the deadline for assembling one response packet.
const DefaultReadTimeout = 5 * time.Second

// Transport owns a Link for the duration of one connected session and
// serialises request/response exchanges over it. A background goroutine
// drains inbound notifications into a chunk queue from construction until
// Shutdown; Transfer pulls from that queue.
//
// Only one Transfer may be in flight at a time. The transport enforces
// this with an internal lock, but callers should not rely on queueing
// behaviour: the protocol has no request correlation, so overlapping
// exchanges would interleave their responses.
type Transport struct {
	link        Link
	readTimeout time.Duration

	mu    sync.Mutex
	queue [][]byte
	wake  chan struct{}
	done  chan struct{}

	xfer      sync.Mutex
	closeOnce sync.Once
}

// New creates a Transport over the given link and starts its notification
// reader. A readTimeout of zero selects DefaultReadTimeout.
func New(link Link, readTimeout time.Duration) *Transport {
	if link == nil {
		panic("link cannot be nil")
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	t := &Transport{
		link:        link,
		readTimeout: readTimeout,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go t.drain()

	return t
}

// drain consumes inbound notifications for the life of the transport.
func (t *Transport) drain() {
	notifications := t.link.Notifications()
	for {
		select {
		case chunk, ok := <-notifications:
			if !ok {
				return
			}
			t.mu.Lock()
			t.queue = append(t.queue, chunk)
			t.mu.Unlock()
			select {
			case t.wake <- struct{}{}:
			default:
			}
		case <-t.done:
			return
		}
	}
}

// Connected reports whether the underlying link is still up.
func (t *Transport) Connected() bool {
	return t.link.Connected()
}

// Transfer sends one request payload and returns the response payload.
// With expected == 0 the request is write-only and Transfer returns
// immediately after the frames are written.
//
// The inbound queue is cleared before the request goes out, so stale
// notifications from an aborted exchange cannot be misread as the
// response.
func (t *Transport) Transfer(ctx context.Context, request []byte, expected int) ([]byte, error) {
	t.xfer.Lock()
	defer t.xfer.Unlock()

	if !t.link.Connected() {
		return nil, ErrDisconnected
	}

	t.mu.Lock()
	t.queue = nil
	t.mu.Unlock()
	select {
	case <-t.wake:
	default:
	}

	packet := protocol.BuildPacket(request)
	for i, frame := range protocol.EncodeFrames(packet) {
		if err := t.link.Write(frame); err != nil {
			return nil, fmt.Errorf("write frame %d: %w", i, err)
		}
	}

	if expected == 0 {
		return nil, nil
	}

	slipPacket, err := t.readSlipPacket(ctx)
	if err != nil {
		return nil, err
	}

	return protocol.ParsePacket(slipPacket)
}

// readSlipPacket assembles one SLIP packet from the inbound queue,
// sleeping on the wake channel while the queue is empty. The deadline
// covers the whole assembly, not each chunk.
func (t *Transport) readSlipPacket(ctx context.Context) ([]byte, error) {
	deadline := time.NewTimer(t.readTimeout)
	defer deadline.Stop()

	var dec protocol.SlipDecoder
	for {
		for {
			t.mu.Lock()
			if len(t.queue) == 0 {
				t.mu.Unlock()
				break
			}
			chunk := t.queue[0]
			t.queue = t.queue[1:]
			t.mu.Unlock()

			if packet, done := dec.Feed(chunk); done {
				return packet, nil
			}
		}

		if !t.link.Connected() {
			return nil, ErrDisconnected
		}

		select {
		case <-t.wake:
		case <-deadline.C:
			return nil, ErrTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.done:
			return nil, ErrDisconnected
		}
	}
}

// Shutdown stops the notification reader and closes the link. The
// transport cannot be used afterwards.
func (t *Transport) Shutdown() error {
	t.closeOnce.Do(func() { close(t.done) })
	return t.link.Close()
}

package transport

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/divehub/go-shearwater/protocol"
)

// fakeLink is an in-memory Link with a scriptable write hook.
type fakeLink struct {
	mu           sync.Mutex
	writes       [][]byte
	notify       chan []byte
	disconnected bool
	closed       bool
	onWrite      func(l *fakeLink, frame []byte)
}

func newFakeLink() *fakeLink {
	return &fakeLink{notify: make(chan []byte, 64)}
}

func (l *fakeLink) Write(p []byte) error {
	l.mu.Lock()
	frame := append([]byte(nil), p...)
	l.writes = append(l.writes, frame)
	hook := l.onWrite
	l.mu.Unlock()

	if hook != nil {
		hook(l, frame)
	}
	return nil
}

func (l *fakeLink) Notifications() <-chan []byte { return l.notify }

func (l *fakeLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.disconnected
}

func (l *fakeLink) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *fakeLink) disconnect() {
	l.mu.Lock()
	l.disconnected = true
	l.mu.Unlock()
}

// respond pushes a response payload to the notify channel as SLIP-encoded
// link frames with the device-side packet header.
func (l *fakeLink) respond(payload []byte) {
	packet := protocol.BuildPacket(payload)
	packet[0], packet[1] = packet[1], packet[0]
	for _, frame := range protocol.EncodeFrames(packet) {
		l.notify <- frame
	}
}

func TestTransferWriteOnly(t *testing.T) {
	link := newFakeLink()
	tr := New(link, 0)
	defer tr.Shutdown()

	resp, err := tr.Transfer(context.Background(), protocol.BuildCloseSessionCmd(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp != nil {
		t.Errorf("response = [% 02X], want nil", resp)
	}

	link.mu.Lock()
	defer link.mu.Unlock()
	if len(link.writes) != 1 {
		t.Fatalf("writes = %d, want 1", len(link.writes))
	}
	want := []byte{1, 0, 0xFF, 0x01, 0x05, 0x00, 0x2E, 0x90, 0x20, 0x00, protocol.SlipEnd}
	if !bytes.Equal(link.writes[0], want) {
		t.Errorf("frame = [% 02X], want [% 02X]", link.writes[0], want)
	}
}

func TestTransferRoundTrip(t *testing.T) {
	link := newFakeLink()
	link.onWrite = func(l *fakeLink, frame []byte) {
		l.respond([]byte{0x62, 0x80, 0x10, 'S', 'W', '9', '7', '0', '0', '0', '1'})
	}
	tr := New(link, 0)
	defer tr.Shutdown()

	resp, err := tr.Transfer(context.Background(), protocol.BuildReadCmd(protocol.IDSerialNumber), 11)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{0x62, 0x80, 0x10, 'S', 'W', '9', '7', '0', '0', '0', '1'}
	if !bytes.Equal(resp, want) {
		t.Errorf("response = [% 02X], want [% 02X]", resp, want)
	}
}

func TestTransferResponseAcrossChunks(t *testing.T) {
	link := newFakeLink()
	link.onWrite = func(l *fakeLink, frame []byte) {
		// 40-byte payload forces the SLIP stream across two link frames.
		payload := make([]byte, 40)
		payload[0] = 0x76
		payload[1] = 0x01
		for i := 2; i < len(payload); i++ {
			payload[i] = byte(i)
		}
		l.respond(payload)
	}
	tr := New(link, 0)
	defer tr.Shutdown()

	resp, err := tr.Transfer(context.Background(), protocol.BuildBlockRequestCmd(1), 40)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp) != 40 || resp[0] != 0x76 || resp[39] != 39 {
		t.Errorf("response = [% 02X]", resp)
	}
}

func TestTransferTimeout(t *testing.T) {
	link := newFakeLink()
	tr := New(link, 50*time.Millisecond)
	defer tr.Shutdown()

	_, err := tr.Transfer(context.Background(), protocol.BuildQuitCmd(), 2)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestTransferDisconnectedBeforeWrite(t *testing.T) {
	link := newFakeLink()
	link.disconnect()
	tr := New(link, 0)
	defer tr.Shutdown()

	_, err := tr.Transfer(context.Background(), protocol.BuildQuitCmd(), 2)
	if !errors.Is(err, ErrDisconnected) {
		t.Errorf("err = %v, want ErrDisconnected", err)
	}
}

func TestTransferDisconnectedDuringRead(t *testing.T) {
	link := newFakeLink()
	link.onWrite = func(l *fakeLink, frame []byte) {
		// Partial response, then the link drops. The extra chunk wakes
		// the reader so it notices.
		l.notify <- []byte{2, 0, 0x01, 0xFF}
		l.disconnect()
		l.notify <- []byte{2, 1, 0x02}
	}
	tr := New(link, time.Second)
	defer tr.Shutdown()

	_, err := tr.Transfer(context.Background(), protocol.BuildQuitCmd(), 2)
	if !errors.Is(err, ErrDisconnected) {
		t.Errorf("err = %v, want ErrDisconnected", err)
	}
}

func TestTransferContextCancelled(t *testing.T) {
	link := newFakeLink()
	tr := New(link, time.Minute)
	defer tr.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := tr.Transfer(ctx, protocol.BuildQuitCmd(), 2)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTransferClearsStaleChunks(t *testing.T) {
	link := newFakeLink()
	tr := New(link, 0)
	defer tr.Shutdown()

	// Leftovers from an aborted exchange.
	link.notify <- []byte{1, 0, 0xDE, 0xAD, protocol.SlipEnd}
	time.Sleep(20 * time.Millisecond) // let the drain goroutine queue it

	link.mu.Lock()
	link.onWrite = func(l *fakeLink, frame []byte) {
		l.respond([]byte{0x77, 0x00})
	}
	link.mu.Unlock()

	resp, err := tr.Transfer(context.Background(), protocol.BuildQuitCmd(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(resp, []byte{0x77, 0x00}) {
		t.Errorf("response = [% 02X], want [77 00]", resp)
	}
}

func TestShutdownClosesLink(t *testing.T) {
	link := newFakeLink()
	tr := New(link, 0)

	if err := tr.Shutdown(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	link.mu.Lock()
	defer link.mu.Unlock()
	if !link.closed {
		t.Error("link not closed")
	}
}

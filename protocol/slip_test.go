package protocol

import (
	"bytes"
	"testing"
)

func TestEncodeFramesEscaping(t *testing.T) {
	frames := EncodeFrames([]byte{SlipEnd, SlipEsc, 0x00, 0xFF})

	if len(frames) != 1 {
		t.Fatalf("frame count = %d, want 1", len(frames))
	}

	want := []byte{1, 0, SlipEsc, SlipEscEnd, SlipEsc, SlipEscEsc, 0x00, 0xFF, SlipEnd}
	if !bytes.Equal(frames[0], want) {
		t.Errorf("frame = [% 02X], want [% 02X]", frames[0], want)
	}
}

func TestEncodeFramesFragmentation(t *testing.T) {
	tests := []struct {
		name       string
		packetLen  int
		wantFrames int
	}{
		{name: "empty packet is one frame", packetLen: 0, wantFrames: 1},
		{name: "29 bytes fit one frame with END", packetLen: 29, wantFrames: 1},
		{name: "30 bytes spill END into second frame", packetLen: 30, wantFrames: 2},
		{name: "59 bytes need two frames", packetLen: 59, wantFrames: 2},
		{name: "60 bytes need three frames", packetLen: 60, wantFrames: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet := make([]byte, tt.packetLen)
			for i := range packet {
				packet[i] = byte(i + 1) // no escapable bytes
			}

			frames := EncodeFrames(packet)
			if len(frames) != tt.wantFrames {
				t.Fatalf("frame count = %d, want %d", len(frames), tt.wantFrames)
			}

			for i, frame := range frames {
				if len(frame) > FrameSize {
					t.Errorf("frame %d is %d bytes, max is %d", i, len(frame), FrameSize)
				}
				if frame[0] != byte(tt.wantFrames) {
					t.Errorf("frame %d header count = %d, want %d", i, frame[0], tt.wantFrames)
				}
				if frame[1] != byte(i) {
					t.Errorf("frame %d header index = %d, want %d", i, frame[1], i)
				}

				// END must appear only as the very last byte of the stream.
				content := frame[FrameHeaderSize:]
				last := i == len(frames)-1
				for j, b := range content {
					if b == SlipEnd && !(last && j == len(content)-1) {
						t.Errorf("frame %d has unescaped END at content offset %d", i, j)
					}
				}
				if last && content[len(content)-1] != SlipEnd {
					t.Errorf("last frame does not end with END")
				}
			}
		})
	}
}

func TestSlipDecoderRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		packet []byte
	}{
		{name: "plain bytes", packet: []byte{0x01, 0x02, 0x03}},
		{name: "all special bytes", packet: []byte{SlipEnd, SlipEsc, SlipEnd, SlipEsc}},
		{name: "single byte", packet: []byte{0x42}},
		{name: "spans multiple frames", packet: bytes.Repeat([]byte{SlipEsc}, 40)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var dec SlipDecoder
			var got []byte
			var done bool

			for _, frame := range EncodeFrames(tt.packet) {
				if done {
					t.Fatal("decoder completed before final frame")
				}
				got, done = dec.Feed(frame)
			}

			if !done {
				t.Fatal("decoder did not complete")
			}
			if !bytes.Equal(got, tt.packet) {
				t.Errorf("decoded = [% 02X], want [% 02X]", got, tt.packet)
			}
		})
	}
}

func TestSlipDecoderIgnoresLeadingEnd(t *testing.T) {
	var dec SlipDecoder

	if _, done := dec.Feed([]byte{1, 0, SlipEnd, SlipEnd}); done {
		t.Fatal("decoder completed on empty packet")
	}

	got, done := dec.Feed([]byte{1, 0, 0xAA, 0xBB, SlipEnd})
	if !done {
		t.Fatal("decoder did not complete")
	}
	if !bytes.Equal(got, []byte{0xAA, 0xBB}) {
		t.Errorf("decoded = [% 02X], want [AA BB]", got)
	}
}

func TestSlipDecoderEscapeAcrossChunks(t *testing.T) {
	var dec SlipDecoder

	// ESC at the end of one chunk, its argument at the start of the next.
	if _, done := dec.Feed([]byte{2, 0, 0x10, SlipEsc}); done {
		t.Fatal("decoder completed mid-escape")
	}

	got, done := dec.Feed([]byte{2, 1, SlipEscEnd, SlipEnd})
	if !done {
		t.Fatal("decoder did not complete")
	}
	if !bytes.Equal(got, []byte{0x10, SlipEnd}) {
		t.Errorf("decoded = [% 02X], want [10 C0]", got)
	}
}

func TestSlipDecoderSkipsShortChunks(t *testing.T) {
	var dec SlipDecoder

	if _, done := dec.Feed([]byte{1}); done {
		t.Fatal("decoder completed on header-only chunk")
	}
	if _, done := dec.Feed(nil); done {
		t.Fatal("decoder completed on empty chunk")
	}
}

package pnf

import "testing"

// manifestEntry builds one 0x20-byte manifest record.
func manifestEntry(head uint16, fp [4]byte, addr uint32) []byte {
	b := make([]byte, ManifestRecordSize)
	putU16(b, 0, head)
	copy(b[4:8], fp[:])
	putU32(b, 20, addr)
	return b
}

func TestParseManifest(t *testing.T) {
	buf := logOf(
		manifestEntry(0xA5C4, [4]byte{0xAA, 0x11, 0xBB, 0x22}, 0x00001000),
		manifestEntry(0x5A23, [4]byte{0xDE, 0xAD, 0xDE, 0xAD}, 0x00009999),
		manifestEntry(0xA5C4, [4]byte{0xCC, 0x33, 0xDD, 0x44}, 0x00002000),
		make([]byte, ManifestRecordSize), // zero header ends the scan
		manifestEntry(0xA5C4, [4]byte{0xEE, 0x55, 0xFF, 0x66}, 0x00003000),
	)

	candidates := ParseManifest(buf)

	if len(candidates) != 2 {
		t.Fatalf("candidates = %d, want 2", len(candidates))
	}

	want := []Candidate{
		{Ordinal: 1, Fingerprint: [4]byte{0xAA, 0x11, 0xBB, 0x22}, Address: 0x1000},
		{Ordinal: 2, Fingerprint: [4]byte{0xCC, 0x33, 0xDD, 0x44}, Address: 0x2000},
	}
	for i, w := range want {
		if candidates[i] != w {
			t.Errorf("candidate %d = %+v, want %+v", i, candidates[i], w)
		}
	}
}

func TestParseManifestDenseOrdinals(t *testing.T) {
	var buf []byte
	for i := 0; i < 10; i++ {
		head := uint16(0xA5C4)
		if i%3 == 1 {
			head = 0x5A23
		}
		buf = append(buf, manifestEntry(head, [4]byte{byte(i)}, uint32(i)*0x100)...)
	}

	candidates := ParseManifest(buf)
	for i, c := range candidates {
		if c.Ordinal != i+1 {
			t.Errorf("candidate %d ordinal = %d, want %d", i, c.Ordinal, i+1)
		}
	}
	if len(candidates) != 7 {
		t.Errorf("candidates = %d, want 7", len(candidates))
	}
}

func TestParseManifestEmptyAndShort(t *testing.T) {
	if got := ParseManifest(nil); len(got) != 0 {
		t.Errorf("nil buffer yielded %d candidates", len(got))
	}
	if got := ParseManifest(make([]byte, ManifestRecordSize-1)); len(got) != 0 {
		t.Errorf("short buffer yielded %d candidates", len(got))
	}
}

func TestHardwareModelName(t *testing.T) {
	tests := []struct {
		code uint16
		want string
	}{
		{0x0101, "Predator"},
		{0x0404, "Petrel"},
		{0x0909, "Petrel"},
		{0x0F0F, "Teric"},
		{0x1512, "Peregrine"},
		{0xBEEF, "Shearwater (0xBEEF)"},
	}
	for _, tt := range tests {
		if got := HardwareModelName(tt.code); got != tt.want {
			t.Errorf("HardwareModelName(0x%04X) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

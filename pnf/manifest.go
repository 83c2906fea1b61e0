package pnf

// Manifest record layout.
const (
	// ManifestRecordSize is the size of one manifest entry
	ManifestRecordSize = 0x20

	// manifestHeaderDeleted marks a deleted dive entry
	manifestHeaderDeleted = 0x5A23

	// manifestHeaderActive marks a live dive entry
	manifestHeaderActive = 0xA5C4
)

// Candidate is one manifest entry: a dive the device holds and where to
// download it from.
type Candidate struct {
	// Ordinal is the 1-based position in scan order. The device stores
	// entries newest-first, so ordinal 1 is the most recent dive.
	Ordinal int

	// Fingerprint is the device-assigned dive identifier
	Fingerprint [4]byte

	// Address is the dive's log address relative to the device's log
	// base address
	Address uint32
}

// ParseManifest walks the manifest region and returns the dives it
// indexes, in physical scan order. Deleted entries are skipped; the scan
// stops at the first record that is neither a live nor a deleted entry.
func ParseManifest(data []byte) []Candidate {
	var candidates []Candidate

	for off := 0; off+ManifestRecordSize <= len(data); off += ManifestRecordSize {
		rec := record(data[off : off+ManifestRecordSize])

		head, ok := rec.u16(0)
		if !ok {
			break
		}

		switch head {
		case manifestHeaderDeleted:
			continue
		case manifestHeaderActive:
			c := Candidate{Ordinal: len(candidates) + 1}
			if fp, ok := rec.bytes(4, 4); ok {
				copy(c.Fingerprint[:], fp)
			}
			c.Address, _ = rec.u32(20)
			candidates = append(candidates, c)
		default:
			return candidates
		}
	}

	return candidates
}

package pnf

import (
	"errors"
	"fmt"
	"time"
)

// RecordSize is the size of every log record block.
const RecordSize = 32

// Record type bytes.
const (
	// recSample is a profile sample
	recSample = 0x01

	// recOpeningFirst..recOpeningLast are the dive header records
	recOpeningFirst = 0x10
	recOpeningLast  = 0x17

	// recClosingFirst..recClosingLast are the dive footer records
	recClosingFirst = 0x20
	recClosingLast  = 0x27

	// recInfo is a free-form info record
	recInfo = 0x30

	// recSampleExt extends the preceding sample
	recSampleExt = 0xE1

	// recFinal closes the log
	recFinal = 0xFF
)

// defaultSampleInterval applies until Opening5 overrides it.
const defaultSampleInterval = 10 * time.Second

// psiPerRawUnit and barPerPSI convert the packed transmitter pressure.
const (
	psiPerRawUnit = 2
	barPerPSI     = 0.0689476
)

// feetToMetres converts imperial depth fields.
const feetToMetres = 0.3048

// Parse errors.
var (
	// ErrShortLog indicates the input is smaller than one record
	ErrShortLog = errors.New("log shorter than one record")

	// ErrNoDive indicates the blocks held no decodable dive
	ErrNoDive = errors.New("no dive in log")
)

// Option adjusts parsing for firmware quirks.
type Option func(*parseConfig)

type parseConfig struct {
	// tankPressureOffset overrides the sample offset of the transmitter
	// pressure field; 0 selects it from the log version
	tankPressureOffset int
}

// WithTankPressureOffset pins the sample offset of the transmitter
// pressure field instead of deriving it from the log version. The derived
// offset (27, or 28 for log versions above 14) is a per-firmware-family
// heuristic; use this when a device is known to differ.
func WithTankPressureOffset(offset int) Option {
	return func(c *parseConfig) {
		if offset > 0 {
			c.tankPressureOffset = offset
		}
	}
}

// timedRecord is a sample block with its accumulated time offset.
type timedRecord struct {
	at  time.Duration
	rec record
}

// header carries everything decoded from the opening, closing, and final
// records.
type header struct {
	fingerprint     [4]byte
	startTime       uint32
	imperial        bool
	gfLow, gfHigh   byte
	mode            DiveMode
	logVersion      byte
	gasesEnabled    uint16
	aiEnabled       bool
	decoModel       string
	waterDensity    *float64
	cal             [3]*float64
	surfacePressure *float64
	o2, he          [10]byte
	model           byte
	tzOffset        *time.Duration
	maxDepth        *float64
	duration        *time.Duration
}

// Parse decodes one Petrel Native Format dive log. The input is a stream
// of 32-byte records; anything shorter than a single record is rejected,
// and a trailing partial record is ignored.
//
// Parse returns ErrNoDive when the blocks contain no start time or no
// samples.
func Parse(data []byte, opts ...Option) (*Dive, error) {
	var cfg parseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(data) < RecordSize {
		return nil, ErrShortLog
	}

	// Pass 1: sort the blocks into header slots and timed samples.
	var opening, closing [8]record
	var final record
	var samples []timedRecord

	interval := defaultSampleInterval
	var elapsed time.Duration

	for off := 0; off+RecordSize <= len(data); off += RecordSize {
		blk := record(data[off : off+RecordSize])
		t, _ := blk.u8(0)

		switch {
		case t == recSample:
			elapsed += interval
			samples = append(samples, timedRecord{at: elapsed, rec: blk})
		case t >= recOpeningFirst && t <= recOpeningLast:
			opening[t-recOpeningFirst] = blk
			if t == 0x15 {
				if ms, ok := blk.u16(23); ok && ms > 0 {
					interval = time.Duration(ms) * time.Millisecond
				}
			}
		case t >= recClosingFirst && t <= recClosingLast:
			closing[t-recClosingFirst] = blk
		case t == recFinal:
			final = blk
		default:
			// recInfo, recSampleExt, and unknown types carry nothing
			// the profile needs.
		}
	}

	// Pass 2: decode the headers.
	hdr := decodeHeader(opening, closing, final)

	if hdr.startTime == 0 || len(samples) == 0 {
		return nil, fmt.Errorf("%w: start time %d, %d samples",
			ErrNoDive, hdr.startTime, len(samples))
	}

	dive := &Dive{
		Fingerprint:     hdr.fingerprint,
		StartTime:       time.Unix(int64(hdr.startTime), 0).UTC(),
		GFLow:           hdr.gfLow,
		GFHigh:          hdr.gfHigh,
		Mode:            hdr.mode,
		DecoModel:       hdr.decoModel,
		WaterDensity:    hdr.waterDensity,
		SurfacePressure: hdr.surfacePressure,
		TimezoneOffset:  hdr.tzOffset,
		Model:           hdr.model,
		LogVersion:      hdr.logVersion,
		Imperial:        hdr.imperial,
		AIEnabled:       hdr.aiEnabled,
		GasMixes:        assembleGasMixes(hdr),
		Tanks:           assembleTanks(opening, hdr.model),
	}

	// Pass 3: decode the samples.
	dive.Samples = decodeSamples(samples, hdr, cfg, dive.StartTime)

	// Fallbacks and derived values.
	if hdr.duration != nil {
		dive.Duration = *hdr.duration
	} else {
		dive.Duration = dive.Samples[len(dive.Samples)-1].TimeOffset
	}

	if hdr.maxDepth != nil {
		dive.MaxDepth = *hdr.maxDepth
	} else {
		for _, s := range dive.Samples {
			if s.Depth > dive.MaxDepth {
				dive.MaxDepth = s.Depth
			}
		}
	}

	dive.AvgDepth = averageDepth(dive.Samples)

	return dive, nil
}

// decodeHeader extracts every header field the records provide. Missing
// records leave their fields at the zero value, except the enabled-gas
// mask, which defaults to 0x1F; Parse decides what is fatal.
func decodeHeader(opening, closing [8]record, final record) header {
	hdr := header{gasesEnabled: 0x1F}

	if o0 := opening[0]; o0 != nil {
		if fp, ok := o0.bytes(12, 4); ok {
			copy(hdr.fingerprint[:], fp)
		}
		if v, ok := o0.u32(12); ok {
			hdr.startTime = v
		}
		if v, ok := o0.u8(8); ok {
			hdr.imperial = v == 1
		}
		hdr.gfLow, _ = o0.u8(4)
		hdr.gfHigh, _ = o0.u8(5)

		if raw, ok := o0.bytes(20, 10); ok {
			copy(hdr.o2[:], raw)
		}
		hdr.he[0], _ = o0.u8(30)
		hdr.he[1], _ = o0.u8(31)
	}

	if o1 := opening[1]; o1 != nil {
		if raw, ok := o1.bytes(1, 8); ok {
			copy(hdr.he[2:], raw)
		}
		if v, ok := o1.u16(16); ok && v > 0 {
			bar := float64(v) / 1000
			hdr.surfacePressure = &bar
		}
	}

	if o2 := opening[2]; o2 != nil {
		if v, ok := o2.u8(18); ok {
			hdr.decoModel = decoModelName(v)
		}
		if hdr.startTime == 0 {
			if v, ok := o2.u32(20); ok {
				hdr.startTime = v
			}
		}
	}

	if o3 := opening[3]; o3 != nil {
		if v, ok := o3.u16(3); ok && v > 0 {
			density := float64(v)
			hdr.waterDensity = &density
		}
		if mask, ok := o3.u8(6); ok {
			for i := 0; i < 3; i++ {
				if mask&(1<<i) == 0 {
					continue
				}
				if v, ok := o3.u16(7 + 2*i); ok {
					cal := float64(v) / 100000
					hdr.cal[i] = &cal
				}
			}
		}
	}

	if o4 := opening[4]; o4 != nil {
		if v, ok := o4.u8(1); ok {
			hdr.mode = diveModeFromByte(v)
		}
		hdr.logVersion, _ = o4.u8(16)
		if v, ok := o4.u16(17); ok {
			hdr.gasesEnabled = v
		}
		if v, ok := o4.u8(28); ok {
			hdr.aiEnabled = v != 0
		}
	}

	if final != nil {
		hdr.model, _ = final.u8(13)
	}

	// The Teric is the only family whose clock carries a UTC offset, and
	// only from log version 9.
	if hdr.model == TericLogModel && hdr.logVersion >= 9 {
		if o5 := opening[5]; o5 != nil {
			if utcMin, ok := o5.i32(26); ok {
				dstHours, _ := o5.u8(30)
				offset := time.Duration(utcMin)*time.Minute +
					time.Duration(dstHours)*time.Hour
				hdr.tzOffset = &offset
			}
		}
	}

	if c0 := closing[0]; c0 != nil {
		if v, ok := c0.u16(4); ok && v > 0 {
			depth := float64(v)
			if hdr.imperial {
				depth *= feetToMetres
			}
			depth /= 10
			hdr.maxDepth = &depth
		}
		if v, ok := c0.u24(6); ok && v > 0 {
			d := time.Duration(v) * time.Second
			hdr.duration = &d
		}
	}

	return hdr
}

// assembleGasMixes turns the enabled gas slots into mixes. Slots 5..9 are
// diluents and only count on rebreather dives; slots with neither oxygen
// nor helium are unused.
func assembleGasMixes(hdr header) []GasMix {
	var mixes []GasMix
	for i := 0; i < 10; i++ {
		if hdr.gasesEnabled&(1<<i) == 0 {
			continue
		}
		diluent := i >= 5
		if diluent && !hdr.mode.IsRebreather() {
			continue
		}
		if hdr.o2[i] == 0 && hdr.he[i] == 0 {
			continue
		}
		mixes = append(mixes, GasMix{
			O2:      float64(hdr.o2[i]) / 100,
			He:      float64(hdr.he[i]) / 100,
			Diluent: diluent,
		})
	}
	return mixes
}

// tankSerialOffsets locates the three-byte transmitter serials in the
// opening records.
var tankSerialOffsets = []struct {
	record int
	offset int
}{
	{5, 1},
	{5, 10},
	{6, 25},
	{7, 4},
}

// assembleTanks extracts paired transmitter serials. The Teric stores the
// serial bytes reversed; unpaired slots read all zero and are skipped.
func assembleTanks(opening [8]record, model byte) []Tank {
	var tanks []Tank
	for _, loc := range tankSerialOffsets {
		rec := opening[loc.record]
		if rec == nil {
			continue
		}
		raw, ok := rec.bytes(loc.offset, 3)
		if !ok {
			continue
		}

		b := [3]byte{raw[0], raw[1], raw[2]}
		if model == TericLogModel {
			b[0], b[2] = b[2], b[0]
		}
		serial := fmt.Sprintf("%02X%02X%02X", b[0], b[1], b[2])
		if serial == "000000" {
			continue
		}

		tanks = append(tanks, Tank{
			Name:   fmt.Sprintf("Tank %d", len(tanks)+1),
			Serial: serial,
			Usage:  TankUsageUnknown,
		})
	}
	return tanks
}

// decodeSamples decodes the timed sample blocks into profile samples.
func decodeSamples(records []timedRecord, hdr header, cfg parseConfig, start time.Time) []Sample {
	pressureOffset := cfg.tankPressureOffset
	if pressureOffset == 0 {
		pressureOffset = 27
		if hdr.logVersion > 14 {
			pressureOffset = 28
		}
	}

	samples := make([]Sample, 0, len(records))

	var lastO2, lastHe byte
	var lastOC *bool
	var currentMix *GasMix

	for _, tr := range records {
		blk := tr.rec

		status, _ := blk.u8(12)
		isOC := status&0x10 != 0
		isExternal := status&0x02 == 0

		s := Sample{
			TimeOffset:   tr.at,
			Time:         start.Add(tr.at),
			ExternalPPO2: isExternal,
			Mode:         ModeCCR,
		}
		if isOC {
			s.Mode = ModeOCTec
		}

		if v, ok := blk.u16(1); ok {
			depth := float64(v) * 0.1
			if hdr.imperial {
				depth *= feetToMetres
			}
			s.Depth = depth
		}

		if raw, ok := blk.i8(14); ok {
			t := float64(raw)
			if raw < 0 {
				// Sub-zero temperatures wrap negative with a +102
				// offset; the result never rises above zero.
				t += 102
				if t > 0 {
					t = 0
				}
			}
			if hdr.imperial {
				t = (t - 32) * 5 / 9
			}
			s.Temperature = &t
		}

		if hdr.aiEnabled {
			if raw, ok := blk.u16(pressureOffset); ok && raw < 0xFFF0 {
				bar := float64(raw&0x0FFF) * psiPerRawUnit * barPerPSI
				s.TankPressure = &bar
			}
		}

		if v, ok := blk.u8(7); ok {
			ppo2 := float64(v) / 100
			s.PPO2 = &ppo2
		}

		if !isOC && isExternal {
			sensorBytes := [3]int{13, 15, 16}
			for i, off := range sensorBytes {
				if hdr.cal[i] == nil {
					continue
				}
				if v, ok := blk.u8(off); ok {
					ppo2 := float64(v) * *hdr.cal[i]
					s.Sensors[i] = &ppo2
				}
			}
		}

		if v, ok := blk.u8(19); ok {
			setpoint := float64(v) / 100
			s.Setpoint = &setpoint
		}
		if v, ok := blk.u8(23); ok {
			cns := float64(v) / 100
			s.CNS = &cns
		}

		decoMin, _ := blk.u8(10)
		if stopRaw, ok := blk.u16(3); ok && stopRaw > 0 {
			stopDepth := float64(stopRaw)
			if hdr.imperial {
				stopDepth *= feetToMetres
			}
			ceiling := stopDepth
			stopTime := time.Duration(decoMin) * time.Minute
			s.DecoStopDepth = &stopDepth
			s.DecoCeiling = &ceiling
			s.DecoStopTime = &stopTime
		} else {
			// 99 is the device's NDL display ceiling.
			n := decoMin
			if n > 99 {
				n = 99
			}
			ndl := time.Duration(n) * time.Minute
			s.NDL = &ndl
		}

		if v, ok := blk.u16(5); ok && v > 0 {
			tts := time.Duration(v) * time.Minute
			s.TTS = &tts
		}

		gasO2, _ := blk.u8(8)
		gasHe, _ := blk.u8(9)
		if gasO2 != 0 || gasHe != 0 {
			changed := gasO2 != lastO2 || gasHe != lastHe ||
				(lastOC != nil && *lastOC != isOC)
			if changed {
				mix := GasMix{
					O2:      float64(gasO2) / 100,
					He:      float64(gasHe) / 100,
					Diluent: !isOC,
				}
				eventType := EventGasChange
				if !isOC {
					eventType = EventDiluentChange
				}
				s.Events = append(s.Events, Event{Type: eventType, Mix: &mix})
				currentMix = &mix
				lastO2, lastHe = gasO2, gasHe
			}
			s.Mix = currentMix
		}
		oc := isOC
		lastOC = &oc

		samples = append(samples, s)
	}

	return samples
}

// averageDepth is the time-weighted mean of the sample depths.
func averageDepth(samples []Sample) float64 {
	var sum float64
	var total time.Duration
	prev := time.Duration(0)
	for _, s := range samples {
		dt := s.TimeOffset - prev
		sum += s.Depth * dt.Seconds()
		total += dt
		prev = s.TimeOffset
	}
	if total == 0 {
		return 0
	}
	return sum / total.Seconds()
}

package pnf

import "fmt"

// TericLogModel is the final-record model byte of the Teric family, which
// gates timezone decoding and tank-serial byte order.
const TericLogModel = 8

// HardwareModelName maps the 2-byte hardware code (data identifier
// 0x8050) to a display name.
func HardwareModelName(code uint16) string {
	switch code {
	case 0x0101:
		return "Predator"
	case 0x0404, 0x0909:
		return "Petrel"
	case 0x0B0B:
		return "Nerd"
	case 0x0D0D:
		return "Perdix"
	case 0x0E0D:
		return "Perdix AI"
	case 0x0F0F:
		return "Teric"
	case 0x1212:
		return "Nerd 2"
	case 0x1512:
		return "Peregrine"
	case 0x1712:
		return "Petrel 3"
	case 0x1812:
		return "Perdix 2"
	case 0x1A12:
		return "Tern"
	default:
		return fmt.Sprintf("Shearwater (0x%04X)", code)
	}
}

// logModelName maps the final-record model byte to a display name.
func logModelName(model byte) string {
	switch model {
	case 2:
		return "Petrel"
	case 3:
		return "Nerd"
	case 4:
		return "Perdix"
	case 5:
		return "Perdix AI"
	case 6:
		return "Nerd 2"
	case TericLogModel:
		return "Teric"
	case 9:
		return "Peregrine"
	case 10:
		return "Petrel 3"
	case 11:
		return "Perdix 2"
	case 13:
		return "Tern"
	default:
		return fmt.Sprintf("Shearwater (%d)", model)
	}
}

// decoModelName maps the Opening2 deco-model byte to a display name.
func decoModelName(code byte) string {
	switch code {
	case 0:
		return "Buhlmann ZHL-16C"
	case 1:
		return "VPM-B"
	case 2:
		return "VPM-B/GFS"
	case 3:
		return "DCIEM"
	default:
		return fmt.Sprintf("Unknown (%d)", code)
	}
}

// diveModeFromByte maps the Opening4 mode byte to a DiveMode.
func diveModeFromByte(b byte) DiveMode {
	switch b {
	case 0, 5:
		return ModeCCR
	case 1:
		return ModeOCTec
	case 2:
		return ModeGauge
	case 3:
		return ModePPO2
	case 4:
		return ModeSemiClosed
	case 6:
		return ModeOCRec
	case 7:
		return ModeFreedive
	case 12:
		return ModeAvelo
	default:
		return ModeUnknown
	}
}

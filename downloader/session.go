package downloader

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/divehub/go-shearwater/pnf"
	"github.com/divehub/go-shearwater/protocol"
	"github.com/divehub/go-shearwater/transport"
)

// diveDownloadSize is the size requested for a single dive log. The
// device ends the compressed stream itself, so the request just has to be
// large enough.
const diveDownloadSize = 0xFFFFFF

// DeviceInfo identifies the connected dive computer.
type DeviceInfo struct {
	// Serial is the device serial number
	Serial string

	// Firmware is the firmware version string
	Firmware string

	// Hardware is the raw 2-byte hardware code
	Hardware uint16

	// Model is the display name for the hardware code
	Model string
}

// DiveLog is one downloaded dive. Dive is nil when the log bytes could
// not be parsed; Raw always holds what the device sent so nothing is
// lost.
type DiveLog struct {
	// Candidate is the manifest entry this log was downloaded for
	Candidate pnf.Candidate

	// Raw is the decompressed log as received
	Raw []byte

	// Dive is the decoded dive, or nil on parse failure
	Dive *pnf.Dive
}

// Session drives one connected Shearwater dive computer: device
// identification, manifest download, and dive-log download. It owns the
// transport for the life of the connection.
//
// A Session serialises its own protocol operations; callers must not
// invoke them concurrently.
type Session struct {
	tr     *transport.Transport
	config Config

	base      uint32
	baseKnown bool
}

// New creates a Session over the given link.
//
// Example:
//
//	sess := downloader.New(link,
//	    downloader.WithLogger(myLogger),
//	    downloader.WithProgressCallback(progressFunc),
//	)
//	defer sess.Close()
func New(link transport.Link, opts ...Option) *Session {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Session{
		tr:     transport.New(link, cfg.TransferTimeout),
		config: cfg,
	}
}

// ReadDeviceInfo reads the device's serial number, firmware version, and
// hardware code.
func (s *Session) ReadDeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	serialBytes, err := s.readID(ctx, protocol.IDSerialNumber, 8, false)
	if err != nil {
		return nil, fmt.Errorf("read serial: %w", err)
	}

	firmwareBytes, err := s.readID(ctx, protocol.IDFirmwareVersion, 12, true)
	if err != nil {
		return nil, fmt.Errorf("read firmware: %w", err)
	}

	hardwareBytes, err := s.readID(ctx, protocol.IDHardwareType, 2, false)
	if err != nil {
		return nil, fmt.Errorf("read hardware type: %w", err)
	}
	hardware := uint16(hardwareBytes[0])<<8 | uint16(hardwareBytes[1])

	info := &DeviceInfo{
		Serial:   asciiOrHex(serialBytes),
		Firmware: strings.TrimRight(string(firmwareBytes), "\x00"),
		Hardware: hardware,
		Model:    pnf.HardwareModelName(hardware),
	}

	s.logDebug("device identified",
		"serial", info.Serial,
		"firmware", info.Firmware,
		"model", info.Model,
	)

	return info, nil
}

// DownloadManifest reads the dive manifest and returns the dives the
// device holds, newest first.
func (s *Session) DownloadManifest(ctx context.Context) ([]pnf.Candidate, error) {
	if err := s.ensureBaseAddress(ctx); err != nil {
		return nil, err
	}

	data, err := s.download(ctx, protocol.ManifestAddress, protocol.ManifestSize, false, nil)
	if err != nil {
		return nil, fmt.Errorf("download manifest: %w", err)
	}

	candidates := pnf.ParseManifest(data)
	s.logDebug("manifest scanned", "dives", len(candidates))
	return candidates, nil
}

// DownloadDives downloads and decodes the given candidates in order. A
// log that downloads but fails to parse is still returned, with its raw
// bytes and a nil Dive; a failed download aborts the batch and returns
// the logs completed so far along with the error.
func (s *Session) DownloadDives(ctx context.Context, candidates []pnf.Candidate) ([]DiveLog, error) {
	if err := s.ensureBaseAddress(ctx); err != nil {
		return nil, err
	}

	logs := make([]DiveLog, 0, len(candidates))
	for i, candidate := range candidates {
		// Give the device a breather between dives.
		time.Sleep(s.config.DivePause)

		index := i + 1
		raw, err := s.download(ctx, s.base+candidate.Address, diveDownloadSize, true, func(received int) {
			s.reportProgress(Progress{
				CurrentLog: index,
				TotalLogs:  len(candidates),
				Bytes:      received,
			})
		})
		if err != nil {
			return logs, fmt.Errorf("download dive %d: %w", index, err)
		}

		diveLog := DiveLog{Candidate: candidate, Raw: raw}

		dive, err := pnf.Parse(raw, s.parseOptions()...)
		if err != nil {
			// Keep the raw log; one corrupt dive must not sink the batch.
			s.logError("parse dive log",
				"ordinal", candidate.Ordinal,
				"bytes", len(raw),
				"error", err.Error(),
			)
		} else {
			if dive.TimezoneOffset != nil {
				// The device clock runs in local time but is logged as
				// if UTC; subtracting the offset yields true UTC.
				dive.StartTime = dive.StartTime.Add(-*dive.TimezoneOffset)
			}
			diveLog.Dive = dive
		}

		logs = append(logs, diveLog)
		s.reportProgress(Progress{
			CurrentLog: index,
			TotalLogs:  len(candidates),
			Bytes:      len(raw),
		})
	}

	return logs, nil
}

// Close ends the device session and shuts down the transport. The
// end-session request is best-effort: the device does not answer it, and
// a dropped link must not block teardown.
func (s *Session) Close() error {
	if _, err := s.tr.Transfer(context.Background(), protocol.BuildCloseSessionCmd(), 0); err != nil {
		s.logDebug("end session", "error", err.Error())
	}
	return s.tr.Shutdown()
}

// readID performs one Read-by-Data-Identifier exchange.
func (s *Session) readID(ctx context.Context, id uint16, expected int, allowShorter bool) ([]byte, error) {
	response, err := s.tr.Transfer(ctx, protocol.BuildReadCmd(id), expected+3)
	if err != nil {
		return nil, err
	}
	return protocol.ParseReadResponse(response, id, expected, allowShorter)
}

// ensureBaseAddress reads and normalises the dive-log base address once
// per session.
func (s *Session) ensureBaseAddress(ctx context.Context) error {
	if s.baseKnown {
		return nil
	}

	data, err := s.readID(ctx, protocol.IDLogBaseAddress, 9, false)
	if err != nil {
		return fmt.Errorf("read log base address: %w", err)
	}

	base := uint32(data[1])<<24 | uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4])
	switch base {
	case 0xDD000000, 0xC0000000, 0x90000000:
		base = 0xC0000000
	}

	s.base = base
	s.baseKnown = true
	s.logDebug("log base address", "address", fmt.Sprintf("0x%08X", base))
	return nil
}

// download runs the block-wise download sub-protocol for one memory
// region. onBlock, when set, receives the accumulated output size after
// each block.
func (s *Session) download(ctx context.Context, address uint32, size uint32, compressed bool, onBlock func(int)) ([]byte, error) {
	maxBlock, err := s.downloadInit(ctx, address, size, compressed)
	if err != nil {
		return nil, err
	}

	// Let the device stage the region.
	time.Sleep(s.config.DevicePause)

	var out []byte
	index := byte(1)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		response, err := s.tr.Transfer(ctx, protocol.BuildBlockRequestCmd(index), maxBlock+2)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", index, err)
		}
		block, err := protocol.ParseBlockResponse(response, index)
		if err != nil {
			return nil, err
		}

		done := false
		if compressed {
			chunk, final := protocol.DecodeLRE(block)
			out = append(out, chunk...)
			done = final
		} else {
			out = append(out, block...)
			done = uint32(len(out)) >= size
		}

		if onBlock != nil {
			onBlock(len(out))
		}
		if done {
			break
		}

		index++ // wraps modulo 256
	}

	if compressed {
		protocol.UnslideXOR(out)
	} else if uint32(len(out)) > size {
		out = out[:size]
	}

	s.downloadQuit(ctx)

	return out, nil
}

// downloadInit sends the init request, recovering once from a NAK by
// quitting, pausing, and retrying. Returns the device's maximum block
// payload size.
func (s *Session) downloadInit(ctx context.Context, address uint32, size uint32, compressed bool) (int, error) {
	request := protocol.BuildDownloadInitCmd(address, size, compressed)

	response, err := s.tr.Transfer(ctx, request, 3)
	if err != nil {
		return 0, fmt.Errorf("download init: %w", err)
	}

	if protocol.IsNak(response) {
		// The device is likely still inside an interrupted download.
		// Quit it, let it settle, and try once more.
		s.logDebug("download init rejected, resyncing", "address", fmt.Sprintf("0x%08X", address))
		if _, err := s.tr.Transfer(ctx, protocol.BuildQuitCmd(), 2); err != nil {
			s.logDebug("resync quit", "error", err.Error())
		}
		time.Sleep(s.config.DevicePause)

		response, err = s.tr.Transfer(ctx, request, 3)
		if err != nil {
			return 0, fmt.Errorf("download init retry: %w", err)
		}
	}

	return protocol.ParseDownloadInitResponse(response)
}

// downloadQuit confirms the end of a download. Failures are logged and
// swallowed: the data is already on the host.
func (s *Session) downloadQuit(ctx context.Context) {
	response, err := s.tr.Transfer(ctx, protocol.BuildQuitCmd(), 2)
	if err != nil {
		s.logInfo("download quit", "error", err.Error())
		return
	}
	if err := protocol.ParseQuitResponse(response); err != nil {
		s.logInfo("download quit", "error", err.Error())
	}
}

// parseOptions translates session configuration into parser options.
func (s *Session) parseOptions() []pnf.Option {
	if s.config.TankPressureOffset > 0 {
		return []pnf.Option{pnf.WithTankPressureOffset(s.config.TankPressureOffset)}
	}
	return nil
}

// asciiOrHex renders identifier bytes as ASCII when they are printable,
// falling back to their hex form.
func asciiOrHex(data []byte) string {
	for _, b := range data {
		if b < 0x20 || b > 0x7E {
			return hex.EncodeToString(data)
		}
	}
	return string(data)
}

// reportProgress calls the progress callback if configured.
func (s *Session) reportProgress(progress Progress) {
	if s.config.ProgressCallback != nil {
		s.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (s *Session) logDebug(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (s *Session) logInfo(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Info(msg, keysAndValues...)
	}
}

// logError logs an error message if a logger is configured.
func (s *Session) logError(msg string, keysAndValues ...interface{}) {
	if s.config.Logger != nil {
		s.config.Logger.Error(msg, keysAndValues...)
	}
}

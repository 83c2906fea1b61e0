package downloader

import "time"

// Config holds the session configuration.
type Config struct {
	// ProgressCallback is called during downloads (optional)
	ProgressCallback ProgressCallback

	// Logger is used for logging operations (optional)
	Logger Logger

	// TransferTimeout is the deadline for each response packet
	TransferTimeout time.Duration

	// DevicePause is the settle delay after a download init and after a
	// NAK recovery
	DevicePause time.Duration

	// DivePause is the delay between consecutive dive downloads
	DivePause time.Duration

	// TankPressureOffset pins the transmitter-pressure sample offset
	// instead of deriving it from the log version (0 = derive)
	TankPressureOffset int
}

// defaultConfig returns the default configuration. The pacing values
// match what the devices tolerate.
func defaultConfig() Config {
	return Config{
		TransferTimeout: 5 * time.Second,
		DevicePause:     100 * time.Millisecond,
		DivePause:       200 * time.Millisecond,
	}
}

// Option is a functional option for configuring the Session.
type Option func(*Config)

// WithProgressCallback sets a callback to track download progress.
//
// Example:
//
//	sess := downloader.New(link,
//	    downloader.WithProgressCallback(func(p downloader.Progress) {
//	        fmt.Printf("log %d/%d: %d bytes\n", p.CurrentLog, p.TotalLogs, p.Bytes)
//	    }),
//	)
func WithProgressCallback(callback ProgressCallback) Option {
	return func(c *Config) {
		c.ProgressCallback = callback
	}
}

// WithLogger sets a logger for session operations.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithTransferTimeout sets the per-response deadline.
func WithTransferTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.TransferTimeout = timeout
		}
	}
}

// WithDevicePause sets the settle delay used after download init and NAK
// recovery. Intended for tests; real devices need the default.
func WithDevicePause(pause time.Duration) Option {
	return func(c *Config) {
		if pause >= 0 {
			c.DevicePause = pause
		}
	}
}

// WithDivePause sets the delay between consecutive dive downloads.
func WithDivePause(pause time.Duration) Option {
	return func(c *Config) {
		if pause >= 0 {
			c.DivePause = pause
		}
	}
}

// WithTankPressureOffset pins the transmitter-pressure sample offset for
// parsed dives. See pnf.WithTankPressureOffset.
func WithTankPressureOffset(offset int) Option {
	return func(c *Config) {
		if offset > 0 {
			c.TankPressureOffset = offset
		}
	}
}

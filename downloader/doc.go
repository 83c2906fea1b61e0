// Package downloader orchestrates dive-log downloads from Shearwater
// dive computers over a connected BLE link.
//
// # Usage
//
// Hand a Session the link (see the ble package for a concrete one) and
// walk the device:
//
//	sess := downloader.New(link,
//	    downloader.WithProgressCallback(progressFunc),
//	)
//	defer sess.Close()
//
//	info, err := sess.ReadDeviceInfo(ctx)
//	candidates, err := sess.DownloadManifest(ctx)
//	logs, err := sess.DownloadDives(ctx, candidates)
//
// Candidates come back newest first. Callers implementing incremental
// sync persist the fingerprint of the last downloaded dive and slice the
// candidate list before calling DownloadDives.
//
// # Error behaviour
//
// Protocol violations, timeouts, and disconnects abort the operation
// that hit them; DownloadDives returns the logs completed before the
// failure. A log that downloads intact but does not parse is returned
// with its raw bytes and a nil Dive. Download-quit confirmations are
// logged and never fatal. A download-init NAK is recovered once by
// quitting, pausing, and retrying.
//
// All operations take a context and stop at the next block boundary when
// it is cancelled. Operations on one Session must not run concurrently;
// sessions to different devices are independent.
package downloader

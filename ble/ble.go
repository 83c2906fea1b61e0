// Package ble connects the downloader to real hardware through
// tinygo.org/x/bluetooth. It implements transport.Link over the
// Shearwater BLE serial service.
package ble

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"
)

// Shearwater BLE serial service. A single characteristic carries both
// writes and notifications.
const (
	// ServiceUUIDString identifies the Shearwater serial service
	ServiceUUIDString = "fe25c237-0ece-443c-b0aa-e02033e7029d"

	// CharacteristicUUIDString identifies the serial characteristic
	CharacteristicUUIDString = "27b7570b-359e-45a3-91bb-cf7e70049bd2"
)

// ErrServiceNotFound indicates the peripheral does not expose the
// Shearwater serial service.
var ErrServiceNotFound = errors.New("shearwater serial service not found")

// notifyBuffer bounds how many unread notification chunks are held while
// the transport catches up.
const notifyBuffer = 256

// Device is a connected Shearwater dive computer. It satisfies
// transport.Link.
type Device struct {
	dev  *bluetooth.Device
	char bluetooth.DeviceCharacteristic

	notify chan []byte
	done   chan struct{}

	mu        sync.Mutex
	connected bool
	closeOnce sync.Once
}

// Connect dials the peripheral at the given address, discovers the
// serial service, and enables notifications. The adapter must already be
// enabled.
//
// Example:
//
//	adapter := bluetooth.DefaultAdapter
//	_ = adapter.Enable()
//	dev, err := ble.Connect(adapter, result.Address)
func Connect(adapter *bluetooth.Adapter, address bluetooth.Address) (*Device, error) {
	dev, err := adapter.Connect(address, bluetooth.ConnectionParams{})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", address.String(), err)
	}

	d := &Device{
		dev:    dev,
		notify: make(chan []byte, notifyBuffer),
		done:   make(chan struct{}),
	}

	serviceUUID, err := bluetooth.ParseUUID(ServiceUUIDString)
	if err != nil {
		return nil, err
	}
	charUUID, err := bluetooth.ParseUUID(CharacteristicUUIDString)
	if err != nil {
		return nil, err
	}

	services, err := dev.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil || len(services) == 0 {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("%w: %v", ErrServiceNotFound, err)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{charUUID})
	if err != nil || len(chars) == 0 {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("%w: characteristic missing: %v", ErrServiceNotFound, err)
	}
	d.char = chars[0]

	if err := d.char.EnableNotifications(d.handleNotification); err != nil {
		_ = dev.Disconnect()
		return nil, fmt.Errorf("enable notifications: %w", err)
	}

	// The OS stacks report disconnects through the adapter; fold that
	// into the device's connected flag.
	adapter.SetConnectHandler(func(peer bluetooth.Address, connected bool) {
		if peer == address && !connected {
			d.markDisconnected()
		}
	})

	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()

	return d, nil
}

// handleNotification copies one inbound chunk into the notification
// channel. The callback buffer belongs to the BLE stack and is reused.
func (d *Device) handleNotification(buf []byte) {
	chunk := make([]byte, len(buf))
	copy(chunk, buf)
	select {
	case d.notify <- chunk:
	case <-d.done:
	}
}

// Write sends one link frame on the serial characteristic. The
// Shearwater service takes write-without-response.
func (d *Device) Write(p []byte) error {
	if !d.Connected() {
		return errors.New("device disconnected")
	}
	if _, err := d.char.WriteWithoutResponse(p); err != nil {
		return fmt.Errorf("write characteristic: %w", err)
	}
	return nil
}

// Notifications returns the stream of inbound notification chunks.
func (d *Device) Notifications() <-chan []byte { return d.notify }

// Connected reports whether the peripheral is still connected.
func (d *Device) Connected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) markDisconnected() {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
}

// Close disconnects from the peripheral.
func (d *Device) Close() error {
	var err error
	d.closeOnce.Do(func() {
		close(d.done)
		d.markDisconnected()
		err = d.dev.Disconnect()
	})
	return err
}

// ScanResult is one discovered dive computer.
type ScanResult struct {
	// Address is the peripheral address, usable with Connect
	Address bluetooth.Address

	// Name is the advertised local name
	Name string

	// RSSI is the signal strength at discovery time
	RSSI int16
}

// Scan discovers nearby Shearwater dive computers for the given
// duration. Devices are matched on their advertised local name; every
// model advertises its family name ("Perdix", "Teric", ...).
func Scan(adapter *bluetooth.Adapter, timeout time.Duration) ([]ScanResult, error) {
	var (
		mu      sync.Mutex
		found   []ScanResult
		seen    = make(map[string]bool)
		names   = []string{"Predator", "Petrel", "Nerd", "Perdix", "Teric", "Peregrine", "Tern"}
		stopped = make(chan struct{})
	)

	go func() {
		time.Sleep(timeout)
		_ = adapter.StopScan()
		close(stopped)
	}()

	err := adapter.Scan(func(a *bluetooth.Adapter, result bluetooth.ScanResult) {
		name := result.LocalName()
		match := false
		for _, n := range names {
			if strings.HasPrefix(name, n) {
				match = true
				break
			}
		}
		if !match {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		key := result.Address.String()
		if seen[key] {
			return
		}
		seen[key] = true
		found = append(found, ScanResult{
			Address: result.Address,
			Name:    name,
			RSSI:    result.RSSI,
		})
	})
	<-stopped

	if err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return found, nil
}

//go:build usb

// Package usb sketches a libusb-backed transport.Device for a real
// Overbridge-class device. It documents the seam spec §1 calls out as an
// external collaborator ("USB transport... out of scope") rather than
// implementing isochronous transfers: doing so needs cgo and a libusb
// binding neither the teacher nor the rest of the retrieval pack carries,
// so nothing here is wired into cmd/bridge/main.go by default — the "usb"
// build tag keeps it out of normal builds entirely.
package usb

import (
	"context"
	"fmt"
	"time"

	"github.com/agalue/obridge/internal/transport"
)

// Config holds what a real implementation would need to open the device's
// isochronous endpoints, mirroring spec §6's bus/address/blocks-per-transfer
// options.
type Config struct {
	Bus, Address      int
	BlocksPerTransfer int
	XfrTimeout        time.Duration
	SampleRate        uint32
	FrameBytes        int
}

// Device is an unimplemented transport.Device: every method returns an
// error. A real implementation would hold a *libusb.Device_handle-style
// handle, submit isochronous transfer batches sized BlocksPerTransfer, and
// feed completed transfer payloads to the bridge's o2h/h2o rings exactly as
// internal/transport.Pump does for transport.Device today.
type Device struct {
	cfg Config
}

// Open returns an unimplemented Device for cfg. It always succeeds so the
// seam can be wired up and exercised (and fail loudly on first use) without
// a libusb binding present.
func Open(cfg Config) (*Device, error) {
	return &Device{cfg: cfg}, nil
}

func (d *Device) SampleRate() uint32 { return d.cfg.SampleRate }
func (d *Device) FrameSize() int     { return d.cfg.FrameBytes }

func (d *Device) ReadO2H(ctx context.Context, buf []byte) (int, error) {
	return 0, fmt.Errorf("usb: isochronous transport not implemented (bus=%d address=%d)", d.cfg.Bus, d.cfg.Address)
}

func (d *Device) WriteH2O(ctx context.Context, buf []byte) (int, error) {
	return 0, fmt.Errorf("usb: isochronous transport not implemented (bus=%d address=%d)", d.cfg.Bus, d.cfg.Address)
}

func (d *Device) ReadO2HMIDI(ctx context.Context, buf []byte) (int, error) {
	return 0, fmt.Errorf("usb: MIDI transport not implemented (bus=%d address=%d)", d.cfg.Bus, d.cfg.Address)
}

func (d *Device) WriteH2OMIDI(ctx context.Context, buf []byte) (int, error) {
	return 0, fmt.Errorf("usb: MIDI transport not implemented (bus=%d address=%d)", d.cfg.Bus, d.cfg.Address)
}

func (d *Device) Close() error { return nil }

var _ transport.Device = (*Device)(nil)

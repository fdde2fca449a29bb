// Package transport defines the boundary between the bridge core and the
// device-facing isochronous transport, left external per spec §1's "USB
// transport is out of scope" — internal/transport/sim provides a simulated
// device for tests, internal/transport/usb sketches a libusb-backed
// implementation behind a build tag.
package transport

import "context"

// Device is the device-facing half of the bridge: a goroutine reads device
// audio/MIDI off it into the bridge's o2h rings, and writes host-originated
// audio/MIDI from the bridge's h2o rings onto it. Every method blocks until
// data is available, an error occurs, or ctx is cancelled.
type Device interface {
	// ReadO2H reads one cycle's worth of raw interleaved device audio
	// frames into buf (len(buf) must be a multiple of the device's frame
	// size) and returns the number of bytes read.
	ReadO2H(ctx context.Context, buf []byte) (int, error)

	// WriteH2O writes raw interleaved host-originated audio frames to the
	// device.
	WriteH2O(ctx context.Context, buf []byte) (int, error)

	// ReadO2HMIDI reads zero or more raw 4-byte device MIDI packets into
	// buf and returns the number of bytes read (always a multiple of 4).
	ReadO2HMIDI(ctx context.Context, buf []byte) (int, error)

	// WriteH2OMIDI writes raw 4-byte device MIDI packets to the device.
	WriteH2OMIDI(ctx context.Context, buf []byte) (int, error)

	// SampleRate reports the device's fixed sample clock.
	SampleRate() uint32

	// FrameSize reports the device's audio frame size in bytes
	// (channels * 4, float32 samples).
	FrameSize() int

	// Close releases the transport's resources.
	Close() error
}

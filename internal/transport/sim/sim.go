// Package sim provides a simulated transport.Device generating silent audio
// at a configurable device clock, for tests and for exercising the bridge
// without real hardware. It has no original-source analogue (USB transport
// is named out of scope in spec §1); its generate-at-a-fixed-rate shape is
// grounded on the teacher's own callback-driven device model in
// internal/audio/capture.go, adapted from a push callback to a pull/blocking
// Device so it can sit behind the transport.Device interface.
package sim

import (
	"context"
	"sync"
	"time"
)

// Device is a simulated audio/MIDI device. It produces silent audio frames
// at sampleRate and never produces MIDI packets on its own; tests can feed
// MIDI via InjectO2HMIDI.
type Device struct {
	sampleRate uint32
	channels   int
	frameBytes int

	mu        sync.Mutex
	midiQueue []byte

	h2oMu      sync.Mutex
	h2oCapture []byte // everything ever written via WriteH2O, for test assertions

	closed chan struct{}
}

// New creates a simulated device with the given device-side sample rate and
// channel count (shared by both audio directions, matching a single
// Overbridge-class device's fixed I/O channel layout).
func New(sampleRate uint32, channels int) *Device {
	return &Device{
		sampleRate: sampleRate,
		channels:   channels,
		frameBytes: channels * 4,
		closed:     make(chan struct{}),
	}
}

func (d *Device) SampleRate() uint32 { return d.sampleRate }
func (d *Device) FrameSize() int     { return d.frameBytes }

// ReadO2H fills buf with silence, pacing itself to the device's sample rate
// so tests that rely on wall-clock-paced cycles behave realistically; ctx
// cancellation returns immediately with ctx.Err().
func (d *Device) ReadO2H(ctx context.Context, buf []byte) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	frames := len(buf) / d.frameBytes
	wait := time.Duration(frames) * time.Second / time.Duration(d.sampleRate)
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-d.closed:
		return 0, context.Canceled
	case <-time.After(wait):
		return len(buf), nil
	}
}

// WriteH2O accepts host-originated audio and appends a copy to h2oCapture
// for tests to assert against.
func (d *Device) WriteH2O(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	d.h2oMu.Lock()
	d.h2oCapture = append(d.h2oCapture, buf...)
	d.h2oMu.Unlock()
	return len(buf), nil
}

// CapturedH2O returns everything written via WriteH2O so far, for test
// assertions.
func (d *Device) CapturedH2O() []byte {
	d.h2oMu.Lock()
	defer d.h2oMu.Unlock()
	out := make([]byte, len(d.h2oCapture))
	copy(out, d.h2oCapture)
	return out
}

// InjectO2HMIDI queues a raw 4-byte device MIDI packet for the next
// ReadO2HMIDI call to return.
func (d *Device) InjectO2HMIDI(packet [4]byte) {
	d.mu.Lock()
	d.midiQueue = append(d.midiQueue, packet[:]...)
	d.mu.Unlock()
}

// ReadO2HMIDI drains whatever packets were queued via InjectO2HMIDI,
// returning immediately (even with zero bytes) rather than blocking, since
// MIDI arrival is bursty by nature.
func (d *Device) ReadO2HMIDI(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(buf, d.midiQueue)
	d.midiQueue = d.midiQueue[n:]
	return n, nil
}

// WriteH2OMIDI discards its input: the simulated device has no MIDI sink to
// observe it arrive, this is a no-op that only checks for cancellation.
func (d *Device) WriteH2OMIDI(ctx context.Context, buf []byte) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}
	return len(buf), nil
}

// Close releases any ReadO2H callers blocked waiting on the next pacing
// tick.
func (d *Device) Close() error {
	select {
	case <-d.closed:
	default:
		close(d.closed)
	}
	return nil
}

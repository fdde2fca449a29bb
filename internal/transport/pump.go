package transport

import (
	"context"
	"sync"
	"time"

	"github.com/agalue/obridge/internal/bridge"
	"github.com/agalue/obridge/internal/logging"
	"github.com/agalue/obridge/internal/midi"
)

// Pump runs the device-facing side of the bridge: one goroutine moving
// device audio/MIDI into the o2h rings, one moving bridge-produced h2o
// audio/MIDI out to the device. It calls b.NotifyTransportWait() once
// before starting, the Go equivalent of the original C's USB transport
// thread informing the resampler it has found the device and is ready to
// stream (spec §4.4's WAIT state). Pump blocks until ctx is cancelled.
func Pump(ctx context.Context, dev Device, b *bridge.Bridge, log *logging.Logger) {
	b.NotifyTransportWait()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); pumpO2H(ctx, dev, b, log) }()
	go func() { defer wg.Done(); pumpH2O(ctx, dev, b, log) }()
	wg.Wait()
}

// Handle supervises a running Pump, standing in for the engine handle
// ow_resampler_stop/ow_resampler_wait delegate to in
// original_source/src/resampler.c (ow_engine_stop/ow_engine_wait) — spec
// §6's exit semantics, reworked from a thread-join object into a
// context.CancelFunc plus a done channel.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartPump launches Pump in its own goroutine, derived from parent, and
// returns a Handle the caller can Stop/Wait on.
func StartPump(parent context.Context, dev Device, b *bridge.Bridge, log *logging.Logger) *Handle {
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		Pump(ctx, dev, b, log)
	}()
	return h
}

// Stop asks the pump to stop, mirroring ow_resampler_stop/ow_engine_stop.
// It returns immediately; call Wait or WaitTimeout to block for exit.
func (h *Handle) Stop() {
	h.cancel()
}

// Wait blocks until the pump's goroutines have returned, mirroring
// ow_resampler_wait/ow_engine_wait.
func (h *Handle) Wait() {
	<-h.done
}

// WaitTimeout blocks until the pump stops or d elapses, reporting whether
// it stopped in time.
func (h *Handle) WaitTimeout(d time.Duration) bool {
	select {
	case <-h.done:
		return true
	case <-time.After(d):
		return false
	}
}

func pumpO2H(ctx context.Context, dev Device, b *bridge.Bridge, log *logging.Logger) {
	frameBytes := b.O2HFrameSize()
	midiBuf := make([]byte, 256)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk := make([]byte, b.Bufsize()*frameBytes)
		n, err := dev.ReadO2H(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf(logging.LevelInfo, "transport: o2h read error: %v", err)
			continue
		}
		if n > 0 {
			if written := b.O2HRing().Write(chunk[:n]); written < n {
				log.Printf(logging.LevelInfo, "transport: o2h ring overflow, dropped %d bytes", n-written)
			}
		}

		mn, err := dev.ReadO2HMIDI(ctx, midiBuf)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf(logging.LevelInfo, "transport: o2h MIDI read error: %v", err)
			continue
		}
		if mn > 0 {
			if written := b.O2HMIDIRing().Write(midiBuf[:mn]); written < mn {
				log.Printf(logging.LevelInfo, "transport: o2h MIDI ring overflow, dropped %d bytes", mn-written)
			}
		}
	}
}

func pumpH2O(ctx context.Context, dev Device, b *bridge.Bridge, log *logging.Logger) {
	frameBytes := b.H2OFrameSize()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		drainedAny := false

		if avail := b.H2ORing().FreeReadBytes(); avail >= frameBytes {
			n := (avail / frameBytes) * frameBytes
			buf := make([]byte, n)
			got := b.H2ORing().Read(buf, n)
			if _, err := dev.WriteH2O(ctx, buf[:got]); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf(logging.LevelInfo, "transport: h2o write error: %v", err)
			}
			drainedAny = true
		}

		if n := (b.H2OMIDIRing().FreeReadBytes() / midi.RecordSize) * midi.RecordSize; n > 0 {
			recs := make([]byte, n)
			got := b.H2OMIDIRing().Read(recs, n)
			buf := make([]byte, 0, got/midi.RecordSize*4)
			for off := 0; off+midi.RecordSize <= got; off += midi.RecordSize {
				p := midi.DecodePacket(recs[off:])
				buf = append(buf, p.Header, p.Data[0], p.Data[1], p.Data[2])
			}
			if _, err := dev.WriteH2OMIDI(ctx, buf); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf(logging.LevelInfo, "transport: h2o MIDI write error: %v", err)
			}
			drainedAny = true
		}

		if !drainedAny {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
			}
		}
	}
}

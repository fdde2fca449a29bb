// Package orchestrator wires a host.Binding's per-cycle process callback to
// a bridge.Bridge, reproducing jclient_process_cb's exact call order: MIDI
// device->host translation, then MIDI host->device translation, then
// ComputeRatios, then (unless skipped) the o2h and h2o audio copies.
package orchestrator

import (
	"fmt"

	"github.com/agalue/obridge/internal/bridge"
	"github.com/agalue/obridge/internal/host"
	"github.com/agalue/obridge/internal/logging"
	"github.com/agalue/obridge/internal/midi"
)

// Cycle holds everything the per-cycle callback needs: the bridge core,
// the host binding it runs on, and the host ports it moves audio/MIDI
// through.
type Cycle struct {
	bridge *bridge.Bridge
	h      host.Binding
	log    *logging.Logger

	playback host.Port
	capture  host.Port
	midiIn   host.MIDIPort
	midiOut  host.MIDIPort

	hostEvents []midi.HostEvent
}

// New registers the process, xrun, buffer size, sample rate, port connect
// and shutdown callbacks on h, plus the audio/MIDI ports b needs, then
// returns a Cycle ready for h.Activate(). No latency, freewheel,
// graph-order or client-registration callback is registered.
func New(b *bridge.Bridge, h host.Binding, log *logging.Logger) (*Cycle, error) {
	playback, err := h.RegisterAudioPort("playback", host.PortOutput)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: register playback port: %w", err)
	}
	capture, err := h.RegisterAudioPort("capture", host.PortInput)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: register capture port: %w", err)
	}
	midiIn, midiOut, err := h.RegisterMIDIPorts("midi_in", "midi_out")
	if err != nil {
		return nil, fmt.Errorf("orchestrator: register MIDI ports: %w", err)
	}

	c := &Cycle{
		bridge:   b,
		h:        h,
		log:      log,
		playback: playback,
		capture:  capture,
		midiIn:   midiIn,
		midiOut:  midiOut,
	}

	if err := h.RegisterProcessCallback(c.Process); err != nil {
		return nil, fmt.Errorf("orchestrator: register process callback: %w", err)
	}
	if err := h.RegisterXRunCallback(func() int {
		b.IncXruns()
		return 0
	}); err != nil {
		return nil, fmt.Errorf("orchestrator: register xrun callback: %w", err)
	}
	if err := h.RegisterBufferSizeCallback(func(nFrames int) int {
		b.SetBufferSize(nFrames)
		return 0
	}); err != nil {
		return nil, fmt.Errorf("orchestrator: register buffer size callback: %w", err)
	}
	if err := h.RegisterSampleRateCallback(func(rate uint32) int {
		b.SetSampleRate(rate)
		return 0
	}); err != nil {
		return nil, fmt.Errorf("orchestrator: register sample rate callback: %w", err)
	}
	if err := h.RegisterPortConnectCallback(func(a, bID int, connect bool) {
		// A host binding with a real port graph would track per-port
		// connection counts here and call b.PortsChanged(inputConns,
		// outputConns) itself; malgohost never invokes this callback at
		// all (see its doc comment), so this path is unreachable there
		// today. Its fixed-topology duplex device is instead marked
		// connected once, directly, by cmd/bridge/main.go after Activate.
		c.log.Printf(logging.LevelDebug, "orchestrator: port connect changed (ports %d, %d, connect=%v)", a, bID, connect)
	}); err != nil {
		return nil, fmt.Errorf("orchestrator: register port connect callback: %w", err)
	}

	h.RegisterShutdownCallback(func() {
		c.log.Printf(logging.LevelInfo, "orchestrator: host binding is shutting down")
	})

	return c, nil
}

// Process is the real-time per-cycle callback, registered directly as the
// host binding's process callback. It never returns an error: fatal
// conditions are reported through bridge.Bridge's Status(), never by
// unwinding through this callback (spec §7).
func (c *Cycle) Process(nFrames int) int {
	now := c.h.Now()
	lastFrame := int64(c.h.LastFrameTime())

	timeToFrames := func(us int64) int64 { return int64(c.h.TimeToFrames(us)) }
	emit := func(ev midi.HostEvent) bool {
		return c.midiOut.WriteEvent(int(ev.FrameOffset), ev.Data) == nil
	}
	c.bridge.TranslateDeviceMIDI(timeToFrames, lastFrame, emit, c.logf)
	c.bridge.PollLostMIDIEvents(0, c.logf) // malgohost's software MIDI ports never drop events

	c.hostEvents = c.hostEvents[:0]
	for _, ev := range c.midiIn.Events() {
		c.hostEvents = append(c.hostEvents, midi.HostEvent{FrameOffset: int64(ev.FrameOffset), Data: ev.Data})
	}
	c.bridge.TranslateHostMIDI(c.hostEvents, now, c.logf)

	if c.bridge.ComputeRatios(now) == bridge.OutcomeSkip {
		return 0
	}

	out := c.playback.Buffer(nFrames)
	c.bridge.ReadAudio(out)

	if c.bridge.P2OAudioEnabled() {
		in := c.capture.Buffer(nFrames)
		c.bridge.WriteAudio(in)
	}

	return 0
}

func (c *Cycle) logf(format string, args ...any) {
	c.log.Printf(logging.LevelDebug, format, args...)
}

// Activate brings the host binding online, starting real-time callbacks.
func (c *Cycle) Activate() error {
	return c.h.Activate()
}

// Deactivate takes the host binding offline.
func (c *Cycle) Deactivate() error {
	return c.h.Deactivate()
}

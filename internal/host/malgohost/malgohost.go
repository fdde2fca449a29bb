// Package malgohost implements internal/host.Binding over a single
// gen2brain/malgo duplex device, grounded on the teacher's
// internal/audio/capture.go and playback.go (malgo.InitContext/InitDevice
// usage, the float32<->byte codec, and the Start/Stop/Uninit lifecycle).
//
// malgo wraps miniaudio, a single-process audio device API with no
// equivalent of JACK's multi-client port graph. Several host.Binding
// callbacks therefore have no real event source here and are stored but
// never invoked; each such case is called out below and in DESIGN.md.
package malgohost

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/agalue/obridge/internal/host"
	"github.com/agalue/obridge/internal/logging"
)

// Binding is a host.Binding backed by one malgo duplex device.
type Binding struct {
	log *logging.Logger

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	inputs, outputs int
	bufsize         int
	samplerate      atomic.Uint32

	startedAt    time.Time
	frameCounter atomic.Uint64

	mu            sync.Mutex
	processFn     func(int) int
	xrunFn        func() int
	bufferSizeFn  func(int) int
	sampleRateFn  func(uint32) int
	latencyFn     func(host.LatencyDir)
	portConnectFn func(a, b int, connect bool)
	shutdownFn    func()
	freewheelFn   func(starting bool)
	graphOrderFn  func() int
	clientRegFn   func(name string, register bool)

	capturePort  *audioPort
	playbackPort *audioPort
	midiIn       *midiPort
	midiOut      *midiPort

	active bool
}

var _ host.Binding = (*Binding)(nil)

// New initializes a malgo context and a stopped duplex device requesting
// sampleRate and periodFrames. The device is not started until Activate.
func New(log *logging.Logger, inputs, outputs int, sampleRate uint32, periodFrames int) (*Binding, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgohost: init context: %w", err)
	}

	b := &Binding{
		log:             log,
		ctx:             ctx,
		inputs:          inputs,
		outputs:         outputs,
		bufsize:         periodFrames,
		capturePort:     newAudioPort("capture", host.PortInput, inputs, periodFrames),
		playbackPort:    newAudioPort("playback", host.PortOutput, outputs, periodFrames),
		midiIn:          newMIDIPort("midi_in", host.PortInput),
		midiOut:         newMIDIPort("midi_out", host.PortOutput),
	}
	b.samplerate.Store(sampleRate)

	cfg := malgo.DefaultDeviceConfig(malgo.Duplex)
	cfg.Capture.Format = malgo.FormatF32
	cfg.Capture.Channels = uint32(inputs)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(outputs)
	cfg.SampleRate = sampleRate
	cfg.PeriodSizeInFrames = uint32(periodFrames)

	callbacks := malgo.DeviceCallbacks{Data: b.onData}

	device, err := malgo.InitDevice(ctx.Context, cfg, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("malgohost: init device: %w", err)
	}
	b.device = device
	b.samplerate.Store(device.SampleRate())

	return b, nil
}

// onData is the malgo real-time callback. It decodes the capture buffer,
// runs the registered process callback, and encodes the playback buffer.
func (b *Binding) onData(pOutput, pInput []byte, framecount uint32) {
	n := int(framecount)
	bytesToFloats(pInput, b.capturePort.buf[:n*b.inputs])

	b.mu.Lock()
	fn := b.processFn
	b.mu.Unlock()

	ret := 0
	if fn != nil {
		ret = fn(n)
	}
	if ret != 0 {
		b.log.Printf(logging.LevelDebug, "malgohost: process callback returned %d", ret)
	}

	floatsToBytes(b.playbackPort.buf[:n*b.outputs], pOutput)

	// Clear the inbound MIDI queue and drop any outbound events queued
	// this cycle: there is no underlying MIDI transport to deliver them
	// to (see the package doc comment).
	b.midiIn.events = b.midiIn.events[:0]
	b.midiOut.events = b.midiOut.events[:0]

	b.frameCounter.Add(uint64(n))
}

func bytesToFloats(data []byte, dst []float32) {
	n := len(data) / 4
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
}

func floatsToBytes(src []float32, dst []byte) {
	n := len(src)
	if n*4 > len(dst) {
		n = len(dst) / 4
	}
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(src[i]))
	}
}

func (b *Binding) RegisterProcessCallback(fn func(int) int) error {
	b.mu.Lock()
	b.processFn = fn
	b.mu.Unlock()
	return nil
}

// RegisterXRunCallback stores fn but it is never invoked: miniaudio's Go
// binding surfaces no per-device overrun/underrun notification. A future
// transport-level xrun detector (e.g. comparing expected vs. observed
// frame deltas) would need to call it directly.
func (b *Binding) RegisterXRunCallback(fn func() int) error {
	b.mu.Lock()
	b.xrunFn = fn
	b.mu.Unlock()
	b.log.Printf(logging.LevelInfo, "malgohost: xrun callback registered but has no miniaudio event source")
	return nil
}

// RegisterBufferSizeCallback stores fn and invokes it once, immediately,
// with the device's actual negotiated period size: malgo duplex devices
// don't change buffer size after InitDevice, unlike JACK's graph-wide
// resize.
func (b *Binding) RegisterBufferSizeCallback(fn func(int) int) error {
	b.mu.Lock()
	b.bufferSizeFn = fn
	b.mu.Unlock()
	if fn != nil {
		fn(b.bufsize)
	}
	return nil
}

// RegisterSampleRateCallback stores fn and invokes it once, immediately,
// with the device's actual negotiated sample rate.
func (b *Binding) RegisterSampleRateCallback(fn func(uint32) int) error {
	b.mu.Lock()
	b.sampleRateFn = fn
	b.mu.Unlock()
	if fn != nil {
		fn(b.samplerate.Load())
	}
	return nil
}

// RegisterLatencyCallback stores fn and invokes it once per direction
// right after Activate, since there is no JACK-style graph whose latency
// changes later.
func (b *Binding) RegisterLatencyCallback(fn func(host.LatencyDir)) error {
	b.mu.Lock()
	b.latencyFn = fn
	b.mu.Unlock()
	return nil
}

// RegisterPortConnectCallback stores fn but never invokes it: malgo's
// duplex device has no port graph to generate connect/disconnect events
// from. Its channel counts are fixed for the process lifetime, so the
// caller is expected to treat the device as permanently connected instead
// (cmd/bridge/main.go calls bridge.Bridge.PortsChanged once after Activate
// rather than waiting on this callback).
func (b *Binding) RegisterPortConnectCallback(fn func(a, b int, connect bool)) error {
	b.mu.Lock()
	b.portConnectFn = fn
	b.mu.Unlock()
	b.log.Printf(logging.LevelInfo, "malgohost: port-connect callback registered but has no graph to observe")
	return nil
}

func (b *Binding) RegisterShutdownCallback(fn func()) {
	b.mu.Lock()
	b.shutdownFn = fn
	b.mu.Unlock()
}

func (b *Binding) RegisterFreewheelCallback(fn func(starting bool)) error {
	b.mu.Lock()
	b.freewheelFn = fn
	b.mu.Unlock()
	b.log.Printf(logging.LevelInfo, "malgohost: freewheel callback registered but miniaudio has no offline mode")
	return nil
}

func (b *Binding) RegisterGraphOrderCallback(fn func() int) error {
	b.mu.Lock()
	b.graphOrderFn = fn
	b.mu.Unlock()
	b.log.Printf(logging.LevelInfo, "malgohost: graph-order callback registered but has no multi-client graph")
	return nil
}

func (b *Binding) RegisterClientRegistrationCallback(fn func(name string, register bool)) error {
	b.mu.Lock()
	b.clientRegFn = fn
	b.mu.Unlock()
	b.log.Printf(logging.LevelInfo, "malgohost: client-registration callback registered but has no multi-client graph")
	return nil
}

// RegisterAudioPort returns the binding's single capture or playback port.
// name is accepted for interface parity with a multi-port host but is only
// used in logging: one malgo device exposes exactly one interleaved buffer
// per direction.
func (b *Binding) RegisterAudioPort(name string, dir host.PortDirection) (host.Port, error) {
	if dir == host.PortInput {
		b.log.Printf(logging.LevelDebug, "malgohost: audio input port %q bound to the device capture buffer", name)
		return b.capturePort, nil
	}
	b.log.Printf(logging.LevelDebug, "malgohost: audio output port %q bound to the device playback buffer", name)
	return b.playbackPort, nil
}

// RegisterMIDIPorts returns software-only MIDI ports: malgo/miniaudio has
// no MIDI transport, so these ports are cleared every cycle in onData and
// carry events only if something outside this binding feeds midiIn.events
// directly, which nothing in this repo currently does. They exist so
// internal/orchestrator can be written against host.MIDIPort uniformly,
// and so a future hardware MIDI source has somewhere to plug in.
func (b *Binding) RegisterMIDIPorts(inName, outName string) (host.MIDIPort, host.MIDIPort, error) {
	b.midiIn.name = inName
	b.midiOut.name = outName
	return b.midiIn, b.midiOut, nil
}

func (b *Binding) FramesToTime(frames uint32) int64 {
	rate := b.samplerate.Load()
	if rate == 0 {
		return 0
	}
	return int64(frames) * 1_000_000 / int64(rate)
}

func (b *Binding) TimeToFrames(t int64) uint32 {
	rate := b.samplerate.Load()
	return uint32(t * int64(rate) / 1_000_000)
}

func (b *Binding) LastFrameTime() uint32 {
	return uint32(b.frameCounter.Load())
}

func (b *Binding) Now() int64 {
	return time.Since(b.startedAt).Microseconds()
}

func (b *Binding) BufferSize() int {
	return b.bufsize
}

// HostPriority returns the priority malgohost recommends when the caller
// asks it to pick one, the Go-native stand-in for jack_client_real_time_priority.
// JACK derives that value from its own server's configured RT priority;
// miniaudio has no server to ask, so this returns a fixed SCHED_FIFO
// priority in the upper-middle of the Linux RT range (1-99), high enough to
// preempt ordinary SCHED_OTHER work without contending with kernel-critical
// real-time tasks.
func (b *Binding) HostPriority() int {
	return 70
}

func (b *Binding) SampleRate() uint32 {
	return b.samplerate.Load()
}

func (b *Binding) Activate() error {
	b.startedAt = time.Now()
	if err := b.device.Start(); err != nil {
		return fmt.Errorf("malgohost: start device: %w", err)
	}
	b.mu.Lock()
	fn := b.latencyFn
	b.mu.Unlock()
	if fn != nil {
		fn(host.LatencyCapture)
		fn(host.LatencyPlayback)
	}
	b.active = true
	return nil
}

func (b *Binding) Deactivate() error {
	if !b.active {
		return nil
	}
	if err := b.device.Stop(); err != nil {
		return fmt.Errorf("malgohost: stop device: %w", err)
	}
	b.active = false
	return nil
}

func (b *Binding) Close() error {
	b.mu.Lock()
	fn := b.shutdownFn
	b.mu.Unlock()
	if fn != nil {
		fn()
	}

	if b.device != nil {
		b.device.Uninit()
		b.device = nil
	}
	if b.ctx != nil {
		if err := b.ctx.Uninit(); err != nil {
			b.log.Printf(logging.LevelInfo, "malgohost: context uninit: %v", err)
		}
		b.ctx.Free()
		b.ctx = nil
	}
	return nil
}

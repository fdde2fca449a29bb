// Package host defines the host audio-graph binding interface the bridge
// runs against, generalizing the original C client's JACK binding
// (jclient.c) into a Go interface with one real adapter in
// internal/host/malgohost.
package host

// PortDirection selects an audio or MIDI port's data direction.
type PortDirection int

const (
	PortInput PortDirection = iota
	PortOutput
)

// LatencyDir selects which latency range a RegisterLatencyCallback
// invocation is being asked to recompute, mirroring JACK's
// JackPlaybackLatency/JackCaptureLatency distinction.
type LatencyDir int

const (
	LatencyPlayback LatencyDir = iota
	LatencyCapture
)

// Port is a non-owning handle to a registered host audio or MIDI port.
// Buffer is only valid for the duration of the current Process callback,
// matching JACK's jack_port_get_buffer contract.
type Port interface {
	Name() string
	Direction() PortDirection
	// Buffer returns the port's sample buffer for the current cycle: for an
	// audio port nFrames interleaved frames (nFrames*channels float32s);
	// MIDI ports carry no samples and use MIDIPort's event methods instead.
	Buffer(nFrames int) []float32
}

// MIDIPort extends Port with JACK-style discrete MIDI event access for the
// current cycle, used by internal/orchestrator to read/write timestamped
// host MIDI events instead of a flat float32 buffer.
type MIDIPort interface {
	Port
	// Events returns the MIDI events queued on an input port this cycle,
	// or nil for an output port.
	Events() []Event
	// WriteEvent queues a MIDI event for delivery on an output port this
	// cycle. It must only be called from within the Process callback.
	WriteEvent(frameOffset int, data []byte) error
}

// Event is one host-side timestamped MIDI message, keyed to a frame offset
// within the current cycle (spec §3's midi.HostEvent shape, mirrored here
// as the host-binding-facing type so internal/midi stays binding-agnostic).
type Event struct {
	FrameOffset int
	Data        []byte
}

// Binding is the host audio-graph adapter surface spec §6 names, modeled on
// JACK's client callback registration API (jclient.c's jack_set_*_callback
// calls) so that the bridge core stays host-agnostic.
type Binding interface {
	// RegisterProcessCallback installs the per-cycle real-time callback.
	// fn receives the cycle's frame count and must return 0 on success,
	// matching JACK's int-returning process callback convention; a
	// nonzero return does not stop the host, it is logged and ignored,
	// since the bridge's own Status/TransportStatus state machine is the
	// authoritative error channel (spec §7).
	RegisterProcessCallback(fn func(nFrames int) int) error

	// RegisterXRunCallback installs the overrun/underrun notification
	// callback, fn returning 0 by JACK convention.
	RegisterXRunCallback(fn func() int) error

	// RegisterBufferSizeCallback installs the host buffer-size-changed
	// callback.
	RegisterBufferSizeCallback(fn func(nFrames int) int) error

	// RegisterSampleRateCallback installs the host sample-rate-changed
	// callback.
	RegisterSampleRateCallback(fn func(rate uint32) int) error

	// RegisterLatencyCallback installs the latency-range recomputation
	// callback, invoked once per direction whenever the host recomputes
	// graph latency.
	RegisterLatencyCallback(fn func(dir LatencyDir)) error

	// RegisterPortConnectCallback installs the port-connection-changed
	// callback; a and b are opaque host port IDs, connect is true on
	// connect and false on disconnect.
	RegisterPortConnectCallback(fn func(a, b int, connect bool)) error

	// RegisterShutdownCallback installs the host-is-shutting-down
	// notification, called at most once.
	RegisterShutdownCallback(fn func())

	// RegisterFreewheelCallback installs the freewheel-mode-changed
	// callback (non-realtime offline processing mode).
	RegisterFreewheelCallback(fn func(starting bool)) error

	// RegisterGraphOrderCallback installs the graph-reordered callback,
	// fn returning 0 by JACK convention.
	RegisterGraphOrderCallback(fn func() int) error

	// RegisterClientRegistrationCallback installs the client
	// registered/unregistered callback.
	RegisterClientRegistrationCallback(fn func(name string, register bool)) error

	// RegisterAudioPort registers a new audio port and returns a handle
	// to it.
	RegisterAudioPort(name string, dir PortDirection) (Port, error)

	// RegisterMIDIPorts registers one MIDI input and one MIDI output
	// port.
	RegisterMIDIPorts(inName, outName string) (in, out MIDIPort, err error)

	// FramesToTime converts a frame count at the current sample rate to
	// host wallclock microseconds.
	FramesToTime(frames uint32) int64

	// TimeToFrames converts host wallclock microseconds to a frame count
	// at the current sample rate.
	TimeToFrames(t int64) uint32

	// LastFrameTime returns the frame-time of the first frame of the
	// cycle currently being processed.
	LastFrameTime() uint32

	// Now returns the host's current wallclock time in microseconds.
	Now() int64

	// AcquireRealTimePriority asks the host/OS to raise the calling
	// thread to the given real-time priority, best-effort.
	AcquireRealTimePriority(priority int) error

	// HostPriority returns the host's own notion of the real-time priority
	// it runs its audio thread at, queried when the configured priority is
	// negative (mirroring jclient.c's jack_client_real_time_priority call,
	// used when jclient->priority < 0).
	HostPriority() int

	// BufferSize returns the host's current cycle buffer size in frames.
	BufferSize() int

	// SampleRate returns the host's current sample rate.
	SampleRate() uint32

	// Activate brings the binding's audio graph online; callbacks must
	// be registered before calling Activate.
	Activate() error

	// Deactivate takes the binding offline without releasing resources.
	Deactivate() error

	// Close releases all resources held by the binding. The binding must
	// be deactivated first.
	Close() error
}

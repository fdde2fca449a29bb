// Package bridge implements the resampler core: the component that owns the
// four SPSC rings crossing between the device transport and the host audio
// thread, the two sample-rate converters, the DLL clock tracker and the
// READY->BOOT->TUNE->RUN state machine, per spec §3/§4.4. Grounded on
// original_source/src/resampler.c (struct ow_resampler and its functions),
// translated from pthread spinlocks and malloc'd buffers into Go mutexes and
// slices, in the idiom of the teacher's internal/audio package (constructor
// shape, mutex-guarded counters, a dedicated codec for the wire byte format).
package bridge

import (
	"sync"

	"github.com/agalue/obridge/internal/dll"
	"github.com/agalue/obridge/internal/logging"
	"github.com/agalue/obridge/internal/midi"
	"github.com/agalue/obridge/internal/ring"
	"github.com/agalue/obridge/internal/src"
)

const (
	// maxLatencyFrames bounds audio ring capacity (spec §4.1): twice the
	// nominal maximum host buffer size.
	maxLatencyFrames = 16384

	// maxReadFrames caps how many frames the upstream callback reads from
	// the o2h ring per SRC pull, matching MAX_READ_FRAMES in resampler.c.
	maxReadFrames = 5

	// startupTimeS / logTimeS are the BOOT and TUNE logging-window lengths
	// in seconds, per spec §4.2 (STARTUP_TIME / LOG_TIME in resampler.c).
	startupTimeS = 5
	logTimeS     = 2

	// midiRingBytes sizes the fixed-length MIDI rings: enough for several
	// bursts of events (spec §4.1).
	midiRingBytes = 4096

	// h2oQueueScale is how many multiples of bufsize the h2o queue and its
	// aux/out scratch buffers are sized to, matching resampler.c's "8 times
	// scale allows up to more than 192 kHz sample rate" comment.
	h2oQueueScale = 8

	// midiQueueBytes sizes each direction's SysEx reassembly/fragmentation
	// byte queue.
	midiQueueBytes = 256
)

// Status is the resampler core's own bring-up state (spec §3's status
// attribute), distinct from TransportStatus.
type Status int

const (
	StatusReady Status = iota
	StatusBoot
	StatusTune
	StatusRun
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "READY"
	case StatusBoot:
		return "BOOT"
	case StatusTune:
		return "TUNE"
	case StatusRun:
		return "RUN"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// TransportStatus mirrors ow_engine_status_t: the device transport's own
// bring-up state, shared between the transport thread and the core under
// engineMu. It is distinct from Status — the core tells the transport when
// to start (READY->BOOT) and when the host has settled into RUN; the
// transport tells the core when it knows the device clock (->WAIT).
type TransportStatus int

const (
	TransportReady TransportStatus = iota
	TransportBoot
	TransportWait
	TransportTune
	TransportRun
	TransportError
)

// EngineOptions is the bitset spec §6 calls out on the resampler context:
// O2P_AUDIO, O2P_MIDI, P2O_AUDIO, P2O_MIDI, DLL. Every flag except
// OptP2OAudio is set for the engine's whole lifetime; OptP2OAudio alone is
// toggled by PortsChanged, mirroring the original's input-only
// OW_ENGINE_OPTION_P2O_AUDIO behavior.
type EngineOptions int

const (
	OptO2PAudio EngineOptions = 1 << iota
	OptO2PMIDI
	OptP2OAudio
	OptP2OMIDI
	OptDLL
)

// Outcome reports what ComputeRatios did this cycle.
type Outcome int

const (
	// OutcomeSkip means the core is not ready to run SRC this cycle (the
	// transport has not reached WAIT yet, or the core has hit a fatal
	// error). A cycle that recovers from an xrun still returns OutcomeRun.
	OutcomeSkip Outcome = iota
	// OutcomeRun means ReadAudio/WriteAudio should be called this cycle.
	OutcomeRun
)

// DeviceDescriptor describes the bridged USB device, supplied externally by
// the discovery/transport layer and never mutated by the core.
type DeviceDescriptor struct {
	Inputs, Outputs         int
	InputNames, OutputNames []string
	SampleRate              uint32
}

type latencyTracker struct {
	current, max int
}

func (l *latencyTracker) observe(bytes int) {
	l.current = bytes
	if bytes > l.max {
		l.max = bytes
	}
}

func (l *latencyTracker) reset() {
	l.current = 0
	l.max = 0
}

func (l *latencyTracker) resetMax() {
	l.max = 0
}

// Bridge is the resampler core: the "Resampler state" singleton of spec §3.
type Bridge struct {
	desc    DeviceDescriptor
	quality src.Quality
	log     *logging.Logger

	bufsize    int
	samplerate uint32

	o2hRing     *ring.Buffer
	h2oRing     *ring.Buffer
	o2hMIDIRing *ring.Buffer
	h2oMIDIRing *ring.Buffer

	o2hTranslator *midi.O2HTranslator
	h2oTranslator *midi.H2OTranslator

	o2hConv *src.Converter
	h2oConv *src.Converter

	dllTracker      *dll.Tracker
	dllInitialized  bool

	xrunMu sync.Mutex
	xruns  int

	engineMu        sync.Mutex
	transportStatus TransportStatus

	readingAtO2HEnd bool
	o2hLatency      latencyTracker
	h2oLatency      latencyTracker

	o2hScratch    []float32 // maxReadFrames*Outputs, reused by upstreamReader
	o2hRecvBuf    []byte    // maxReadFrames*frameBytes, wire-format scratch for upstreamReader's ring read
	lastO2HFrame  []float32 // last real frame read, replicated on underrun
	o2hDiscardBuf []float32 // bufsize*Outputs, throwaway target for the xrun-recovery read

	h2oQueue    []float32 // accumulator across cycles, up to h2oQueueScale*bufsize frames
	h2oQueueLen int
	h2oAux      []float32 // scratch returned by downstreamReader
	h2oScratch  []float32 // SRC output scratch for WriteAudio
	h2oWireBuf  []byte    // preallocated wire-format scratch for WriteAudio's ring write
	h2oAcc      float64   // fractional-frame accumulator for write_audio

	loggedStaleQueueAfterRun bool

	status   Status
	o2hRatio float64
	h2oRatio float64

	logCycles        int
	logControlCycles int

	p2oAudioOptionOn bool
}

// New constructs a bridge for the given device, not yet sized (SetBufferSize
// must be called once the host buffer size is known before any cycle runs).
func New(desc DeviceDescriptor, quality src.Quality, log *logging.Logger) *Bridge {
	b := &Bridge{
		desc:    desc,
		quality: quality,
		log:     log,
		status:  StatusReady,
	}
	b.dllTracker = &dll.Tracker{}
	b.o2hMIDIRing = ring.New(midiRingBytes)
	b.h2oMIDIRing = ring.New(midiRingBytes)
	b.o2hTranslator = midi.NewO2HTranslator(midiQueueBytes)
	b.h2oTranslator = midi.NewH2OTranslator(midiQueueBytes)
	b.o2hConv = src.New(b.upstreamReader, quality, desc.Outputs)
	b.h2oConv = src.New(b.downstreamReader, quality, desc.Inputs)
	return b
}

// O2HFrameSize is the byte size of one o2h (device->host) interleaved audio
// frame.
func (b *Bridge) O2HFrameSize() int {
	return b.desc.Outputs * 4
}

// H2OFrameSize is the byte size of one h2o (host->device) interleaved audio
// frame.
func (b *Bridge) H2OFrameSize() int {
	return b.desc.Inputs * 4
}

// Status reports the core's current bring-up state.
func (b *Bridge) Status() Status {
	return b.status
}

// Bufsize reports the current host buffer size in frames.
func (b *Bridge) Bufsize() int {
	return b.bufsize
}

// SampleRate reports the current host sample rate.
func (b *Bridge) SampleRate() uint32 {
	return b.samplerate
}

// O2HRing exposes the device->host audio ring's consumer end to the host
// binding and its producer end to the transport (spec §3's ownership rule:
// the core owns the ring, each thread holds a non-owning handle to one end).
func (b *Bridge) O2HRing() *ring.Buffer { return b.o2hRing }

// H2ORing exposes the host->device audio ring.
func (b *Bridge) H2ORing() *ring.Buffer { return b.h2oRing }

// O2HMIDIRing exposes the device->host MIDI ring.
func (b *Bridge) O2HMIDIRing() *ring.Buffer { return b.o2hMIDIRing }

// H2OMIDIRing exposes the host->device MIDI ring.
func (b *Bridge) H2OMIDIRing() *ring.Buffer { return b.h2oMIDIRing }

// SetBufferSize (re)allocates the audio rings and scratch buffers for a new
// host buffer size, and resets the DLL for it, per
// ow_resampler_set_buffer_size.
func (b *Bridge) SetBufferSize(bufsize int) {
	if bufsize == b.bufsize {
		return
	}
	b.bufsize = bufsize
	b.resetBuffers()
	b.resetDLL(b.samplerate)
}

// SetSampleRate notifies the core of a (possibly new) host sample rate, per
// ow_resampler_set_samplerate.
func (b *Bridge) SetSampleRate(samplerate uint32) {
	if samplerate == b.samplerate {
		return
	}
	if b.bufsize != 0 {
		b.resetDLL(samplerate)
	} else {
		b.samplerate = samplerate
	}
}

func (b *Bridge) resetBuffers() {
	frameBytesO2H := b.O2HFrameSize()
	frameBytesH2O := b.H2OFrameSize()

	b.o2hRing = ring.New(maxLatencyFrames * frameBytesO2H)
	b.h2oRing = ring.New(maxLatencyFrames * frameBytesH2O)
	if err := b.o2hRing.Lock(); err != nil {
		b.log.Printf(logging.LevelInfo, "could not lock o2h ring into RAM: %v", err)
	}
	if err := b.h2oRing.Lock(); err != nil {
		b.log.Printf(logging.LevelInfo, "could not lock h2o ring into RAM: %v", err)
	}

	b.o2hScratch = make([]float32, maxReadFrames*b.desc.Outputs)
	b.o2hRecvBuf = make([]byte, maxReadFrames*frameBytesO2H)
	b.lastO2HFrame = make([]float32, b.desc.Outputs)
	b.o2hDiscardBuf = make([]float32, b.bufsize*b.desc.Outputs)

	b.h2oQueue = make([]float32, h2oQueueScale*b.bufsize*b.desc.Inputs)
	b.h2oQueueLen = 0
	b.h2oAux = make([]float32, h2oQueueScale*b.bufsize*b.desc.Inputs)
	b.h2oScratch = make([]float32, h2oQueueScale*b.bufsize*b.desc.Inputs)
	b.h2oWireBuf = make([]byte, h2oQueueScale*b.bufsize*frameBytesH2O)
	b.h2oAcc = 0

	b.o2hLatency.reset()
	b.h2oLatency.reset()
	b.readingAtO2HEnd = false

	b.o2hConv.Reset()
	b.h2oConv.Reset()

	// Discard whatever is currently in the o2h ring on a resize, matching
	// ow_resampler_reset_buffers's frame-aligned drain.
	free := b.o2hRing.FreeReadBytes()
	b.o2hRing.Read(nil, (free/frameBytesO2H)*frameBytesO2H)
}

func (b *Bridge) resetDLL(newSampleRate uint32) {
	ts := b.TransportStatus()

	if !b.dllInitialized || ts < TransportRun {
		b.log.Printf(logging.LevelDebug, "initializing DLL")
		b.dllTracker.Init(newSampleRate, b.desc.SampleRate, b.bufsize)
		b.setTransportStatus(TransportReady)
		b.dllInitialized = true
	} else {
		b.log.Printf(logging.LevelDebug, "adjusting DLL ratio")
		b.dllTracker.Rescale(newSampleRate)
		b.setTransportStatus(TransportReady)
		b.logCycles = 0
		b.logControlCycles = startupCycles(newSampleRate, b.bufsize)
	}
	b.o2hRatio = b.dllTracker.Ratio
	b.samplerate = newSampleRate
}

func startupCycles(rate uint32, bufsize int) int {
	if bufsize == 0 {
		return 0
	}
	return int(startupTimeS * float64(rate) / float64(bufsize))
}

func tuneCycles(rate uint32, bufsize int) int {
	if bufsize == 0 {
		return 0
	}
	return int(logTimeS * float64(rate) / float64(bufsize))
}

func (b *Bridge) setTransportStatus(s TransportStatus) {
	b.engineMu.Lock()
	b.transportStatus = s
	b.engineMu.Unlock()
}

// TransportStatus reports the device transport's bring-up state under the
// engine lock.
func (b *Bridge) TransportStatus() TransportStatus {
	b.engineMu.Lock()
	defer b.engineMu.Unlock()
	return b.transportStatus
}

// NotifyTransportWait is called by the device transport thread once it has
// observed its first transfer and knows the device clock, advancing the
// shared transport state so the next ComputeRatios call starts the DLL.
func (b *Bridge) NotifyTransportWait() {
	b.setTransportStatus(TransportWait)
}

// Destroy releases the rings' RAM-locked pages. Call after both the host and
// transport threads have joined.
func (b *Bridge) Destroy() {
	if b.o2hRing != nil {
		b.o2hRing.Unlock()
	}
	if b.h2oRing != nil {
		b.h2oRing.Unlock()
	}
}

// TranslateDeviceMIDI drains the o2h MIDI ring into host MIDI events for
// this cycle (spec §4.5). Call before ComputeRatios, per spec §5's ordering
// guarantee.
func (b *Bridge) TranslateDeviceMIDI(timeToFrames func(int64) int64, lastFrame int64, emit func(midi.HostEvent) bool, logf func(string, ...any)) {
	b.o2hTranslator.Translate(b.o2hMIDIRing, timeToFrames, lastFrame, int64(b.bufsize), emit, logf)
}

// TranslateHostMIDI packetises this cycle's host MIDI events onto the h2o
// MIDI ring (spec §4.6). Call before ComputeRatios.
func (b *Bridge) TranslateHostMIDI(events []midi.HostEvent, cycleTimeUS int64, logf func(string, ...any)) {
	b.h2oTranslator.Translate(events, cycleTimeUS, b.h2oMIDIRing, logf)
}

// PollLostMIDIEvents logs when the host's lost-MIDI-event counter increases
// (spec §4.5 step 7).
func (b *Bridge) PollLostMIDIEvents(current uint32, logf func(string, ...any)) {
	b.o2hTranslator.PollLostEvents(current, logf)
}

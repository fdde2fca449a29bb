package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agalue/obridge/internal/bridge"
	"github.com/agalue/obridge/internal/host"
	"github.com/agalue/obridge/internal/logging"
	"github.com/agalue/obridge/internal/src"
)

// fakePort is a minimal host.Port/host.MIDIPort backed by a plain slice,
// standing in for malgohost's device-bound ports in tests.
type fakePort struct {
	name     string
	dir      host.PortDirection
	buf      []float32
	events   []host.Event
	outgoing []host.Event
}

func (p *fakePort) Name() string                  { return p.name }
func (p *fakePort) Direction() host.PortDirection { return p.dir }
func (p *fakePort) Buffer(nFrames int) []float32  { return p.buf }
func (p *fakePort) Events() []host.Event          { return p.events }
func (p *fakePort) WriteEvent(frameOffset int, data []byte) error {
	p.outgoing = append(p.outgoing, host.Event{FrameOffset: frameOffset, Data: append([]byte(nil), data...)})
	return nil
}

// fakeBinding is a minimal host.Binding for driving Cycle.Process directly
// in tests, without malgo or real hardware.
type fakeBinding struct {
	bufsize    int
	samplerate uint32
	now        int64
	frameTime  uint32

	processFn func(int) int
	xrunFn    func() int

	playback *fakePort
	capture  *fakePort
	midiIn   *fakePort
	midiOut  *fakePort
}

func newFakeBinding(bufsize int, samplerate uint32, channels int) *fakeBinding {
	return &fakeBinding{
		bufsize:    bufsize,
		samplerate: samplerate,
		playback:   &fakePort{name: "playback", dir: host.PortOutput, buf: make([]float32, bufsize*channels)},
		capture:    &fakePort{name: "capture", dir: host.PortInput, buf: make([]float32, bufsize*channels)},
		midiIn:     &fakePort{name: "midi_in", dir: host.PortInput},
		midiOut:    &fakePort{name: "midi_out", dir: host.PortOutput},
	}
}

func (f *fakeBinding) RegisterProcessCallback(fn func(int) int) error { f.processFn = fn; return nil }
func (f *fakeBinding) RegisterXRunCallback(fn func() int) error       { f.xrunFn = fn; return nil }
func (f *fakeBinding) RegisterBufferSizeCallback(fn func(int) int) error          { return nil }
func (f *fakeBinding) RegisterSampleRateCallback(fn func(uint32) int) error       { return nil }
func (f *fakeBinding) RegisterLatencyCallback(fn func(host.LatencyDir)) error     { return nil }
func (f *fakeBinding) RegisterPortConnectCallback(fn func(a, b int, c bool)) error { return nil }
func (f *fakeBinding) RegisterShutdownCallback(fn func())                        {}
func (f *fakeBinding) RegisterFreewheelCallback(fn func(bool)) error              { return nil }
func (f *fakeBinding) RegisterGraphOrderCallback(fn func() int) error             { return nil }
func (f *fakeBinding) RegisterClientRegistrationCallback(fn func(string, bool)) error {
	return nil
}

func (f *fakeBinding) RegisterAudioPort(name string, dir host.PortDirection) (host.Port, error) {
	if dir == host.PortInput {
		return f.capture, nil
	}
	return f.playback, nil
}

func (f *fakeBinding) RegisterMIDIPorts(inName, outName string) (host.MIDIPort, host.MIDIPort, error) {
	return f.midiIn, f.midiOut, nil
}

func (f *fakeBinding) FramesToTime(frames uint32) int64 { return int64(frames) * 1_000_000 / int64(f.samplerate) }
func (f *fakeBinding) TimeToFrames(t int64) uint32      { return uint32(t * int64(f.samplerate) / 1_000_000) }
func (f *fakeBinding) LastFrameTime() uint32            { return f.frameTime }
func (f *fakeBinding) Now() int64                       { return f.now }
func (f *fakeBinding) AcquireRealTimePriority(priority int) error { return nil }
func (f *fakeBinding) HostPriority() int                 { return 70 }
func (f *fakeBinding) BufferSize() int                  { return f.bufsize }
func (f *fakeBinding) SampleRate() uint32               { return f.samplerate }
func (f *fakeBinding) Activate() error                  { return nil }
func (f *fakeBinding) Deactivate() error                { return nil }
func (f *fakeBinding) Close() error                     { return nil }

func newTestCycle(t *testing.T, bufsize int, rate uint32, channels int) (*Cycle, *fakeBinding) {
	t.Helper()
	desc := bridge.DeviceDescriptor{Inputs: channels, Outputs: channels, SampleRate: rate}
	b := bridge.New(desc, src.QualityLinear, logging.New(logging.LevelError))
	b.SetBufferSize(bufsize)
	b.SetSampleRate(rate)

	fb := newFakeBinding(bufsize, rate, channels)
	c, err := New(b, fb, logging.New(logging.LevelError))
	assert.NoError(t, err)
	return c, fb
}

func TestProcessSkipsWhileTransportNotReady(t *testing.T) {
	c, fb := newTestCycle(t, 64, 48000, 2)

	ret := c.Process(fb.bufsize)
	assert.Equal(t, 0, ret)
}

func TestProcessDrivesStateMachineToRun(t *testing.T) {
	c, fb := newTestCycle(t, 64, 48000, 2)
	// In production transport.Pump calls this once the device transport is
	// up; here there is no transport goroutine, so call it directly.
	c.bridge.NotifyTransportWait()

	periodUS := int64(float64(fb.bufsize) / float64(fb.samplerate) * 1e6)
	for cycle := 0; cycle < 20000 && c.bridge.Status() != bridge.StatusRun; cycle++ {
		fb.now += periodUS
		fb.frameTime += uint32(fb.bufsize)
		c.Process(fb.bufsize)
	}

	assert.Equal(t, bridge.StatusRun, c.bridge.Status())
}

func TestProcessRoutesHostMIDIToDeviceRing(t *testing.T) {
	c, fb := newTestCycle(t, 64, 48000, 2)

	fb.midiIn.events = []host.Event{{FrameOffset: 0, Data: []byte{0x90, 0x3C, 0x7F}}}
	c.Process(fb.bufsize)

	assert.Greater(t, c.bridge.H2OMIDIRing().FreeReadBytes(), 0)
}

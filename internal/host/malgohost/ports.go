package malgohost

import (
	"fmt"

	"github.com/agalue/obridge/internal/host"
)

// audioPort is a view onto one direction of the binding's single
// interleaved device buffer.
type audioPort struct {
	name     string
	dir      host.PortDirection
	channels int
	buf      []float32
}

func newAudioPort(name string, dir host.PortDirection, channels, periodFrames int) *audioPort {
	return &audioPort{name: name, dir: dir, channels: channels, buf: make([]float32, periodFrames*channels)}
}

func (p *audioPort) Name() string                  { return p.name }
func (p *audioPort) Direction() host.PortDirection { return p.dir }

func (p *audioPort) Buffer(nFrames int) []float32 {
	n := nFrames * p.channels
	if n > len(p.buf) {
		n = len(p.buf)
	}
	return p.buf[:n]
}

// midiPort is a software-only MIDI port (see malgohost.go's doc comment).
type midiPort struct {
	name   string
	dir    host.PortDirection
	events []host.Event
}

func newMIDIPort(name string, dir host.PortDirection) *midiPort {
	return &midiPort{name: name, dir: dir}
}

func (p *midiPort) Name() string                  { return p.name }
func (p *midiPort) Direction() host.PortDirection { return p.dir }

func (p *midiPort) Buffer(nFrames int) []float32 { return nil }

func (p *midiPort) Events() []host.Event {
	if p.dir != host.PortInput {
		return nil
	}
	return p.events
}

func (p *midiPort) WriteEvent(frameOffset int, data []byte) error {
	if p.dir != host.PortOutput {
		return fmt.Errorf("malgohost: %s is not a MIDI output port", p.name)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	p.events = append(p.events, host.Event{FrameOffset: frameOffset, Data: cp})
	return nil
}

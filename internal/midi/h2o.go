package midi

import "github.com/agalue/obridge/internal/ring"

// sysexChunkBytes is the number of payload bytes carried per wire packet
// (OB_MIDI_EVENT_BYTES in the original source), independent of RecordSize.
const sysexChunkBytes = 3

// H2OTranslator packetises host MIDI events into the device's 4-byte wire
// format, per spec §4.6. SysEx state (the in-flight byte queue and whether a
// SysEx is ongoing) persists across cycles on the translator instance.
type H2OTranslator struct {
	queue        *ByteQueue
	ongoingSysEx bool
}

// NewH2OTranslator creates a translator with the given SysEx staging queue
// capacity.
func NewH2OTranslator(queueCapacity int) *H2OTranslator {
	return &H2OTranslator{queue: NewByteQueue(queueCapacity)}
}

// Translate packetises every event in events (this cycle's host MIDI input)
// onto buf. cycleTimeUS is the host's wallclock time for the start of this
// cycle, matching jclient.c's single `time` value reused for every packet
// emitted in one process callback invocation. logf receives diagnostics for
// overflow conditions (spec §7).
func (h *H2OTranslator) Translate(events []HostEvent, cycleTimeUS int64, buf *ring.Buffer, logf func(format string, args ...any)) {
	for _, ev := range events {
		if len(ev.Data) == 0 {
			continue
		}
		if ev.Data[0] == 0xF0 || h.ongoingSysEx {
			h.ongoingSysEx = true
			h.sysex(ev.Data, cycleTimeUS, buf, logf)
		} else {
			h.msg(ev.Data, cycleTimeUS, buf, logf)
		}
	}
}

func (h *H2OTranslator) msg(data []byte, timeUS int64, buf *ring.Buffer, logf func(format string, args ...any)) {
	status := data[0]
	msgType := status & 0xF0

	var header byte
	switch len(data) {
	case 1:
		if status >= 0xF8 && status <= 0xFC {
			header = HeaderSingleByteSysEx
		}
	case 2:
		switch msgType {
		case 0xC0:
			header = HeaderProgramChange
		case 0xD0:
			header = HeaderChannelPressure
		}
	case 3:
		switch msgType {
		case 0x80:
			header = HeaderNoteOff
		case 0x90:
			header = HeaderNoteOn
		case 0xA0:
			header = HeaderPolyKeyPressure
		case 0xB0:
			header = HeaderControlChange
		case 0xE0:
			header = HeaderPitchBend
		}
	}

	if header == 0 {
		logf("h2o: message %02x not implemented", msgType)
		return
	}

	pkt := Packet{Header: header, TimeUS: timeUS}
	copy(pkt.Data[:], data) // zero-padded beyond len(data) since Data starts zeroed
	writePacket(buf, pkt, logf)
}

// sysex packetises an in-flight SysEx message into 3-byte wire chunks,
// mirroring jclient_j2o_midi_sysex exactly: headers 0x04 for non-terminal
// chunks, and 0x05/0x06/0x07 depending on how many bytes precede the 0xF7
// terminator within the chunk.
func (h *H2OTranslator) sysex(data []byte, timeUS int64, buf *ring.Buffer, logf func(format string, args ...any)) {
	if !h.queue.WriteOrReset(data) {
		logf("h2o: SysEx queue overflow, discarding")
		return
	}

	q := h.queue.Bytes()
	consumed := 0
	for consumed < len(q) {
		start := consumed
		end := false
		plen := 0
		header := HeaderSysExCont

		for i := 0; i < sysexChunkBytes && consumed+i < len(q); i++ {
			plen = i + 1
			if q[consumed+i] == 0xF7 {
				switch i {
				case 0:
					header = HeaderSysExEnd1
				case 1:
					header = HeaderSysExEnd2
				default:
					header = HeaderSysExEnd3
				}
				end = true
				h.ongoingSysEx = false
				break
			}
		}

		if !end && plen < sysexChunkBytes {
			// Not enough bytes yet for a full non-terminal chunk; wait for
			// more data next cycle.
			break
		}

		pkt := Packet{Header: header, TimeUS: timeUS}
		copy(pkt.Data[:], q[start:start+plen])
		writePacket(buf, pkt, logf)
		consumed += plen
	}

	h.queue.Consume(consumed)
}

func writePacket(buf *ring.Buffer, pkt Packet, logf func(format string, args ...any)) {
	if buf.FreeWriteBytes() < RecordSize {
		logf("h2o: MIDI ring buffer overflow, discarding packet")
		return
	}
	rec := make([]byte, RecordSize)
	pkt.Encode(rec)
	buf.Write(rec)
}

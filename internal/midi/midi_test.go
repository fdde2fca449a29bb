package midi

import (
	"testing"

	"github.com/agalue/obridge/internal/ring"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func noopLog(format string, args ...any) {}

// TestSysExChunkingExample reproduces spec §8 scenario 4 verbatim: a 7-byte
// SysEx (F0 01 02 03 04 05 F7) packetised in one host MIDI event must
// produce exactly the three wire packets the spec lists.
func TestSysExChunkingExample(t *testing.T) {
	h := NewH2OTranslator(256)
	buf := ring.New(4096)

	events := []HostEvent{{Data: []byte{0xF0, 0x01, 0x02, 0x03, 0x04, 0x05, 0xF7}}}
	h.Translate(events, 1000, buf, noopLog)

	rec := make([]byte, RecordSize)
	var got [][4]byte
	for buf.FreeReadBytes() >= RecordSize {
		buf.Read(rec, RecordSize)
		pkt := DecodePacket(rec)
		got = append(got, [4]byte{pkt.Header, pkt.Data[0], pkt.Data[1], pkt.Data[2]})
	}

	want := [][4]byte{
		{0x04, 0xF0, 0x01, 0x02},
		{0x04, 0x03, 0x04, 0x05},
		{0x05, 0xF7, 0x00, 0x00},
	}
	assert.Equal(t, want, got)
}

// TestNoteOnRoundTrip reproduces spec §8 scenario 5: device emits a 3-byte
// note-on packet; the o2h translator must deliver it at frame offset
// time_to_frames(T)+B-last_frame with the original 3 bytes intact.
func TestNoteOnRoundTrip(t *testing.T) {
	o := NewO2HTranslator(256)
	buf := ring.New(4096)

	pkt := Packet{Header: HeaderNoteOn, Data: [3]byte{0x90, 0x3C, 0x7F}, TimeUS: 5000}
	rec := make([]byte, RecordSize)
	pkt.Encode(rec)
	buf.Write(rec)

	const bufsize = 256
	const lastFrame = int64(5100)
	timeToFrames := func(us int64) int64 { return us } // identity for the test

	var got []HostEvent
	o.Translate(buf, timeToFrames, lastFrame, bufsize, func(e HostEvent) bool {
		got = append(got, e)
		return true
	}, noopLog)

	wantOffset := timeToFrames(5000) + bufsize - lastFrame
	assert := assert.New(t)
	assert.Len(got, 1)
	assert.Equal(wantOffset, got[0].FrameOffset)
	assert.Equal([]byte{0x90, 0x3C, 0x7F}, got[0].Data)
}

// TestLateEventClampsToZero reproduces spec §8 scenario 6.
func TestLateEventClampsToZero(t *testing.T) {
	o := NewO2HTranslator(256)
	buf := ring.New(4096)

	pkt := Packet{Header: HeaderNoteOn, Data: [3]byte{0x90, 0x3C, 0x7F}, TimeUS: 0}
	rec := make([]byte, RecordSize)
	pkt.Encode(rec)
	buf.Write(rec)

	const bufsize = 256
	const lastFrame = int64(10_000)
	timeToFrames := func(us int64) int64 { return us }

	var got []HostEvent
	var loggedLate bool
	o.Translate(buf, timeToFrames, lastFrame, bufsize, func(e HostEvent) bool {
		got = append(got, e)
		return true
	}, func(format string, args ...any) { loggedLate = true })

	assert.Len(t, got, 1)
	assert.Equal(t, int64(0), got[0].FrameOffset, "late events are emitted at offset 0, never dropped")
	assert.True(t, loggedLate)
}

// Round-trip property test for ordinary 1/2/3-byte channel messages (spec
// §8's "Round-trip" invariant): h2o packetisation followed by o2h
// reconstruction must reproduce the original bytes exactly.
func TestChannelMessageRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		kind := rapid.SampledFrom([]byte{0x80, 0x90, 0xA0, 0xB0, 0xC0, 0xD0, 0xE0, 0xF8}).Draw(t, "statusType")
		channel := rapid.IntRange(0, 15).Draw(t, "channel")

		var data []byte
		switch kind {
		case 0xF8:
			data = []byte{kind}
		case 0xC0, 0xD0:
			data = []byte{kind | byte(channel), rapid.Byte().Draw(t, "b1")}
		default:
			data = []byte{kind | byte(channel), rapid.Byte().Draw(t, "b1"), rapid.Byte().Draw(t, "b2")}
		}

		h := NewH2OTranslator(256)
		buf := ring.New(4096)
		h.Translate([]HostEvent{{Data: data}}, 42, buf, noopLog)

		o := NewO2HTranslator(256)
		timeToFrames := func(us int64) int64 { return 0 }
		var got []HostEvent
		o.Translate(buf, timeToFrames, 1<<30, 1<<30, func(e HostEvent) bool {
			got = append(got, e)
			return true
		}, noopLog)

		assert.Len(t, got, 1)
		assert.Equal(t, data, got[0].Data)
	})
}

// TestSysExIdempotenceProperty reproduces spec §8's SysEx idempotence
// invariant for arbitrary-length payloads: ceil(L/3) packets, whose payload
// concatenation equals the original bytes, with the correct terminal header
// depending on L mod 3.
func TestSysExIdempotenceProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		innerLen := rapid.IntRange(0, 64).Draw(t, "innerLen")
		inner := rapid.SliceOfN(rapid.Byte(), innerLen, innerLen).Draw(t, "inner")
		// 0xF7 must only appear as the final terminator byte.
		for i := range inner {
			if inner[i] == 0xF7 {
				inner[i] = 0x00
			}
		}
		msg := append([]byte{0xF0}, inner...)
		msg = append(msg, 0xF7)

		h := NewH2OTranslator(4096)
		buf := ring.New(1 << 20)
		h.Translate([]HostEvent{{Data: msg}}, 0, buf, noopLog)

		rec := make([]byte, RecordSize)
		var payload []byte
		var packetCount int
		var lastHeader byte
		for buf.FreeReadBytes() >= RecordSize {
			buf.Read(rec, RecordSize)
			pkt := DecodePacket(rec)
			packetCount++
			lastHeader = pkt.Header
			switch pkt.Header {
			case HeaderSysExCont:
				payload = append(payload, pkt.Data[:]...)
			case HeaderSysExEnd1:
				payload = append(payload, pkt.Data[0])
			case HeaderSysExEnd2:
				payload = append(payload, pkt.Data[:2]...)
			case HeaderSysExEnd3:
				payload = append(payload, pkt.Data[:3]...)
			}
		}

		L := len(msg)
		wantPackets := (L + sysexChunkBytes - 1) / sysexChunkBytes
		assert.Equal(t, wantPackets, packetCount)
		assert.Equal(t, msg, payload)

		switch L % sysexChunkBytes {
		case 1:
			assert.Equal(t, HeaderSysExEnd1, lastHeader)
		case 2:
			assert.Equal(t, HeaderSysExEnd2, lastHeader)
		case 0:
			assert.Equal(t, HeaderSysExEnd3, lastHeader)
		}
	})
}

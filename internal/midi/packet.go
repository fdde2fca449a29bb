// Package midi adapts between the device's 4-byte-packet MIDI wire format
// (with SysEx framing nibbles) and the host's per-cycle timestamped MIDI
// event model, in both directions, per spec §4.5/§4.6. Grounded on
// original_source/src/jclient.c's jclient_o2j_midi / jclient_j2o_midi*
// functions.
package midi

import "encoding/binary"

// Packet is the device's wire-level MIDI record: a header nibble selecting
// the message type (spec §4.5's table) plus up to 3 payload bytes, stamped
// with the host microsecond clock reading at arrival.
type Packet struct {
	Header byte
	Data   [3]byte
	TimeUS int64
}

// RecordSize is the fixed binary encoding size of a Packet as stored in a
// ring.Buffer: 1 header byte + 3 data bytes + 8 bytes of int64 timestamp.
const RecordSize = 1 + 3 + 8

// Encode serializes p into dst, which must be at least RecordSize long.
func (p Packet) Encode(dst []byte) {
	dst[0] = p.Header
	copy(dst[1:4], p.Data[:])
	binary.LittleEndian.PutUint64(dst[4:12], uint64(p.TimeUS))
}

// DecodePacket deserializes a Packet from src, which must be at least
// RecordSize long.
func DecodePacket(src []byte) Packet {
	var p Packet
	p.Header = src[0]
	copy(p.Data[:], src[1:4])
	p.TimeUS = int64(binary.LittleEndian.Uint64(src[4:12]))
	return p
}

// Device packet header nibbles, per spec §4.5's table.
const (
	HeaderSysExCont       byte = 0x04 // SysEx continuation (non-terminal), 3 bytes, not sent yet
	HeaderSysExEnd1       byte = 0x05 // SysEx end with 1 byte
	HeaderSysExEnd2       byte = 0x06 // SysEx end with 2 bytes
	HeaderSysExEnd3       byte = 0x07 // SysEx end with 3 bytes
	HeaderNoteOff         byte = 0x08
	HeaderNoteOn          byte = 0x09
	HeaderPolyKeyPressure byte = 0x0A
	HeaderControlChange   byte = 0x0B
	HeaderProgramChange   byte = 0x0C
	HeaderChannelPressure byte = 0x0D
	HeaderPitchBend       byte = 0x0E
	HeaderSingleByteSysEx byte = 0x0F
)

// payloadInfo returns the payload length and whether the packet completes a
// message ready to send to the host, or ok=false for an unrecognized header.
func payloadInfo(header byte) (length int, send bool, ok bool) {
	switch header {
	case HeaderSysExCont:
		return 3, false, true
	case HeaderSysExEnd1:
		return 1, true, true
	case HeaderSysExEnd2:
		return 2, true, true
	case HeaderSysExEnd3:
		return 3, true, true
	case HeaderNoteOff, HeaderNoteOn, HeaderPolyKeyPressure, HeaderControlChange, HeaderPitchBend:
		return 3, true, true
	case HeaderProgramChange, HeaderChannelPressure:
		return 2, true, true
	case HeaderSingleByteSysEx:
		return 1, true, true
	default:
		return 0, false, false
	}
}

// HostEvent is a MIDI event in the host's model: a byte payload at a
// frame offset within the current cycle (for o2h) or already resolved to a
// wallclock/offset pairing the caller supplies (for h2o).
type HostEvent struct {
	FrameOffset int64
	Data        []byte
}

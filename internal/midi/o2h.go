package midi

import "github.com/agalue/obridge/internal/ring"

// O2HTranslator drains device MIDI packets from the o2h MIDI ring and emits
// host-model MIDI events, per spec §4.5. State (the byte reassembly queue,
// the skipping flag, the last-seen lost-event count) persists across cycles
// on the translator instance rather than in module-level statics.
type O2HTranslator struct {
	queue         *ByteQueue
	skipping      bool
	lastLostCount uint32
}

// NewO2HTranslator creates a translator with the given SysEx reassembly
// queue capacity.
func NewO2HTranslator(queueCapacity int) *O2HTranslator {
	return &O2HTranslator{queue: NewByteQueue(queueCapacity)}
}

// Translate drains complete packets from buf and, for every message that
// completes within this cycle's frame window, calls emit with the
// reconstructed host event. timeToFrames converts a device packet's
// microsecond timestamp to a host frame index (spec's time_to_frames);
// lastFrame is the host's last_frame_time; bufsize is the cycle's frame
// count. logf receives human-readable diagnostics for transient conditions
// (late events, overflow, unknown headers) — never errors, per spec §7.
func (o *O2HTranslator) Translate(
	buf *ring.Buffer,
	timeToFrames func(timeUS int64) int64,
	lastFrame int64,
	bufsize int64,
	emit func(HostEvent) bool,
	logf func(format string, args ...any),
) {
	rec := make([]byte, RecordSize)

	for buf.FreeReadBytes() >= RecordSize {
		if n := buf.Peek(rec, RecordSize); n < RecordSize {
			return
		}
		pkt := DecodePacket(rec)

		// One cycle of intentional delay so a look-ahead scheme is never
		// needed: everything generated during the previous cycle is always
		// playable in this one (spec §4.5 step 2).
		frame := timeToFrames(pkt.TimeUS) + bufsize

		var offset int64
		if frame < lastFrame {
			offset = 0
			logf("o2h: late MIDI event (frame %d < last_frame %d), clamping to 0", frame, lastFrame)
		} else {
			offset = frame - lastFrame
			if offset >= bufsize {
				// Leave this packet queued; it belongs to a future cycle.
				return
			}
		}

		buf.Advance(RecordSize)

		length, send, ok := payloadInfo(pkt.Header)
		if !ok {
			logf("o2h: message %02x not implemented", pkt.Header)
			o.queue.Drain()
			o.skipping = false
			continue
		}

		switch pkt.Header {
		case HeaderSysExCont:
			if o.skipping {
				continue
			}
		case HeaderSysExEnd1, HeaderSysExEnd2, HeaderSysExEnd3:
			if o.skipping {
				o.skipping = false
				continue
			}
		default:
			o.skipping = false
		}

		if !o.queue.WriteOrReset(pkt.Data[:length]) {
			logf("o2h: not enough space in queue, resetting")
			o.skipping = true
			continue
		}

		if send {
			payload := o.queue.Drain()
			if !emit(HostEvent{FrameOffset: offset, Data: payload}) {
				logf("o2h: host could not reserve MIDI event, dropping")
			}
		}
	}
}

// PollLostEvents logs a message whenever the host's reported lost-event
// count increases, per spec §4.5 step 7. Call once per cycle after
// Translate with the host port's current lost-event counter.
func (o *O2HTranslator) PollLostEvents(current uint32, logf func(format string, args ...any)) {
	if current > o.lastLostCount {
		o.lastLostCount = current
		logf("o2h: lost event count: %d", current)
	}
}

package bridge

import (
	"math"

	"github.com/agalue/obridge/internal/dll"
	"github.com/agalue/obridge/internal/logging"
)

// ComputeRatios implements spec §4.4's per-cycle state machine, grounded on
// ow_resampler_compute_ratios in resampler.c. t is the host's monotonic
// cycle time in microseconds. Call once per host cycle, after both MIDI
// translation directions (spec §5's ordering guarantee) and before
// ReadAudio/WriteAudio.
//
// OutcomeSkip means the device transport is not ready yet, or a fatal error
// stopped the engine: the caller must not call ReadAudio/WriteAudio this
// cycle. OutcomeRun covers every other case, including the WAIT->BOOT
// transition cycle and an xrun-recovery cycle — on those the caller still
// calls ReadAudio/WriteAudio normally afterward, exactly as it would on an
// ordinary cycle, per jclient_process_cb's `if (compute_ratios(...)) return;`
// gating (only the two skip cases above return nonzero in the original).
func (b *Bridge) ComputeRatios(t int64) Outcome {
	b.xrunMu.Lock()
	xruns := b.xruns
	b.xruns = 0
	b.xrunMu.Unlock()

	ts := b.TransportStatus()

	if b.status == StatusReady && ts <= TransportBoot {
		if ts == TransportReady {
			b.setTransportStatus(TransportBoot)
			b.log.Printf(logging.LevelDebug, "booting device transport")
		}
		return OutcomeSkip
	}

	if b.status == StatusReady && ts == TransportWait {
		b.dllTracker.UpdateErr(t) // phase zero: establishes the time baseline only
		b.dllTracker.SetLoopFilter(dll.BootCoefficient, b.bufsize, b.samplerate)
		b.status = StatusBoot
		b.logCycles = 0
		b.logControlCycles = startupCycles(b.samplerate, b.bufsize)
		b.log.Printf(logging.LevelDebug, "starting up resampler")
		return OutcomeRun
	}

	if xruns > 0 {
		b.log.Printf(logging.LevelDebug, "fixing %d xruns", xruns)

		// Recover from the unread backlog in the o2h buffer by reading it
		// out once now, at a steeper ratio for this one cycle; the caller
		// still performs its own ordinary ReadAudio/WriteAudio afterward at
		// the same boosted ratio.
		b.o2hRatio = b.dllTracker.Ratio * float64(1+xruns)
		b.h2oRatio = 1.0 / b.o2hRatio
		b.readAudio(b.o2hDiscardBuf, b.bufsize)

		b.o2hLatency.resetMax()
		b.h2oLatency.resetMax()

		// Skip the DLL update this cycle: the time measurement is not
		// precise enough to be trusted right after an xrun.
		return OutcomeRun
	}

	b.dllTracker.UpdateErr(t)
	ratio := b.dllTracker.Update()

	if ratio < 0 {
		b.log.Errorf("negative ratio detected, stopping resampler")
		b.status = StatusError
		b.setTransportStatus(TransportError)
		return OutcomeSkip
	}

	b.o2hRatio = ratio
	b.h2oRatio = 1.0 / ratio

	b.logCycles++
	if b.logCycles == b.logControlCycles {
		b.dllTracker.CalcAvg(b.logControlCycles)
		b.log.Printf(logging.LevelInfo,
			"o2h ratio %.6f avg %.6f; o2h latency %d/%d bytes; h2o latency %d/%d bytes",
			b.dllTracker.Ratio, b.dllTracker.RatioAvg,
			b.o2hLatency.current, b.o2hLatency.max,
			b.h2oLatency.current, b.h2oLatency.max)
		b.logCycles = 0

		if b.status == StatusBoot {
			b.log.Printf(logging.LevelDebug, "tuning resampler")
			b.dllTracker.SetLoopFilter(dll.TuneCoefficient, b.bufsize, b.samplerate)
			b.status = StatusTune
			b.logControlCycles = tuneCycles(b.samplerate, b.bufsize)
		}

		if b.status == StatusTune && b.dllTracker.Converged() {
			b.log.Printf(logging.LevelDebug, "running resampler")
			b.dllTracker.SetLoopFilter(dll.RunCoefficient, b.bufsize, b.samplerate)
			b.status = StatusRun
			b.setTransportStatus(TransportRun)
		}
	}

	return OutcomeRun
}

func (b *Bridge) readAudio(out []float32, frames int) int {
	produced := b.o2hConv.Read(b.o2hRatio, frames, out)
	if produced != frames {
		b.log.Printf(logging.LevelInfo, "o2h: unexpected frame count at ratio %.6f (got %d, want %d)", b.o2hRatio, produced, frames)
	}
	return produced
}

// ReadAudio produces Bufsize() output frames for the host playback port
// into out (which must hold at least Bufsize()*Outputs float32s), per spec
// §4.4's read_audio.
func (b *Bridge) ReadAudio(out []float32) int {
	return b.readAudio(out, b.bufsize)
}

// WriteAudio appends the host's captured `in` (Bufsize()*Inputs float32s)
// to the h2o queue, runs the h2o SRC, and — once RUN has been reached —
// writes the produced bytes into the h2o audio ring, per spec §4.4's
// write_audio.
func (b *Bridge) WriteAudio(in []float32) {
	channels := b.desc.Inputs
	copy(b.h2oQueue[b.h2oQueueLen*channels:], in[:b.bufsize*channels])
	b.h2oQueueLen += b.bufsize

	b.h2oAcc += float64(b.bufsize) * (b.o2hRatio - 1.0)
	inc := int(math.Trunc(b.h2oAcc))
	b.h2oAcc -= float64(inc)
	frames := b.bufsize + inc

	produced := b.h2oConv.Read(b.h2oRatio, frames, b.h2oScratch)
	if produced != frames {
		b.log.Printf(logging.LevelInfo, "h2o: unexpected frame count at ratio %.6f (got %d, want %d)", b.h2oRatio, produced, frames)
	}

	if b.status != StatusRun {
		return
	}

	bytes := produced * b.H2OFrameSize()
	if bytes <= b.h2oRing.FreeWriteBytes() {
		wire := b.h2oWireBuf[:bytes]
		floatsToBytes(b.h2oScratch[:produced*channels], wire)
		b.h2oRing.Write(wire)
	} else {
		b.log.Printf(logging.LevelInfo, "h2o: audio ring buffer overflow, discarding data")
	}
}

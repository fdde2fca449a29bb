package bridge

import "github.com/agalue/obridge/internal/logging"

// upstreamReader is the o2h SRC's pull callback (spec §4.3's "Upstream
// callback"), grounded on resampler_o2p_reader in resampler.c. It runs on
// the host audio thread, called synchronously from inside o2hConv.Read.
func (b *Bridge) upstreamReader(framesRequested int) ([]float32, int) {
	channels := b.desc.Outputs
	frameBytes := b.O2HFrameSize()
	var frames int

	if !b.readingAtO2HEnd {
		free := b.o2hRing.FreeReadBytes()
		if free >= b.bufsize*frameBytes {
			b.log.Printf(logging.LevelDebug, "o2h: emptying buffer and running")
			b.o2hRing.Read(nil, (free/frameBytes)*frameBytes)
			b.readingAtO2HEnd = true
		}
		frames = maxReadFrames
	} else {
		free := b.o2hRing.FreeReadBytes()
		b.o2hLatency.observe(free)

		availFrames := free / frameBytes
		if availFrames >= 1 {
			frames = availFrames
			if frames > maxReadFrames {
				frames = maxReadFrames
			}
			n := frames * frameBytes
			rec := b.o2hRecvBuf[:n]
			b.o2hRing.Read(rec, n)
			bytesToFloats(rec, b.o2hScratch[:frames*channels])
			copy(b.lastO2HFrame, b.o2hScratch[(frames-1)*channels:frames*channels])
		} else {
			b.log.Printf(logging.LevelDebug, "o2h: audio ring buffer underflow (%d < %d), replicating last frame", free, frameBytes)
			for f := 0; f < maxReadFrames; f++ {
				copy(b.o2hScratch[f*channels:(f+1)*channels], b.lastO2HFrame)
			}
			frames = maxReadFrames
		}
	}

	// dll.kj is incremented unconditionally with the frame count returned
	// this call, even during the pre-streaming warm-up path, matching
	// resampler_o2p_reader's unconditional `resampler->dll.kj += frames`.
	b.dllTracker.NotifyDeviceFrames(frames)
	return b.o2hScratch[:frames*channels], frames
}

// downstreamReader is the h2o SRC's pull callback (spec §4.3's "Downstream
// callback"), grounded on resampler_p2o_reader in resampler.c.
func (b *Bridge) downstreamReader(framesRequested int) ([]float32, int) {
	if b.h2oQueueLen == 0 {
		b.log.Printf(logging.LevelDebug, "h2o: can not read data from queue")
		if b.status == StatusRun && !b.loggedStaleQueueAfterRun {
			// Per DESIGN.md's decision on spec §9: this is benign during
			// warm-up but a bug if still happening once RUN is reached.
			b.log.Errorf("h2o: stale queue read observed after reaching RUN")
			b.loggedStaleQueueAfterRun = true
		}
		return b.h2oAux, b.bufsize
	}

	channels := b.desc.Inputs
	n := b.h2oQueueLen
	copy(b.h2oAux[:n*channels], b.h2oQueue[:n*channels])
	b.h2oQueueLen = 0
	return b.h2oAux, n
}

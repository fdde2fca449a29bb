// Package dll implements the delay-locked loop (DLL) that tracks the ratio
// between the device's fixed sample clock and the host's buffer-scheduling
// clock from timestamped arrival notifications, producing a continuously
// smoothed ratio r = device_rate / host_rate for the sample-rate converter.
package dll

import "sync"

// Loop filter coefficients for the three tracking phases (spec §4.2).
const (
	BootCoefficient = 1.0
	TuneCoefficient = 0.05
	RunCoefficient  = 0.02

	// RatioDiffThreshold is the TUNE->RUN convergence threshold: the rolling
	// average must change by less than this between consecutive windows.
	RatioDiffThreshold = 1e-5
)

// Tracker is the DLL's mutable state. The host-cycle thread calls UpdateErr,
// Update and CalcAvg; in this module NotifyDeviceFrames is called from the
// bridge's o2h SRC pull callback, which also runs on the host audio thread.
// kj (the device-side frame counter) is the only field built for access
// from two threads, so it alone is guarded by devMu; everything else is only ever
// touched from the host cycle and needs no synchronization of its own,
// matching spec §5's "all other mutation is thread-local" for the resampler
// core (the bridge snapshots kj under the same lock once per cycle via
// LoadFromDeviceSide, mirroring the engine spinlock in the original C code).
type Tracker struct {
	devMu sync.Mutex
	kj    int64 // cumulative device frames, written by NotifyDeviceFrames

	bufsize    int
	hostRate   float64
	deviceRate float64

	bw       float64 // current loop filter coefficient
	periodUS float64 // nominal host cycle period in microseconds

	lastErrTime int64
	haveLast    bool
	kjAtLastErr int64

	Ratio        float64
	RatioAvg     float64
	LastRatioAvg float64
	sumRatio     float64
	sumCount     int
	pendingErr   float64
}

// Init (re)initializes the tracker for a newly known (host rate, device
// rate) pair, per spec §4.2's init(host_rate, device_rate, bufsize,
// frames_per_transfer) — frames_per_transfer only affects the device-side
// notification granularity, which is the transport's concern, not the
// tracker's, so it is not stored here.
func (t *Tracker) Init(hostRate, deviceRate uint32, bufsize int) {
	t.devMu.Lock()
	t.kj = 0
	t.devMu.Unlock()

	t.bufsize = bufsize
	t.hostRate = float64(hostRate)
	t.deviceRate = float64(deviceRate)
	t.Ratio = t.deviceRate / t.hostRate
	t.RatioAvg = t.Ratio
	t.LastRatioAvg = t.Ratio
	t.sumRatio = 0
	t.sumCount = 0
	t.haveLast = false
	t.kjAtLastErr = 0
	t.SetLoopFilter(BootCoefficient, bufsize, hostRate)
}

// Rescale adjusts Ratio to track a newly announced host sample rate without
// a full re-lock, per spec §3's lifecycle note: "rescaled when the host
// sample rate changes while RUN has been entered (the ratio is scaled by
// new/old to preserve convergence)".
func (t *Tracker) Rescale(newHostRate uint32) {
	t.Ratio = t.LastRatioAvg * float64(newHostRate) / t.hostRate
	t.hostRate = float64(newHostRate)
}

// SetLoopFilter changes the loop filter bandwidth coefficient and
// recomputes the nominal host cycle period for the given bufsize/rate.
func (t *Tracker) SetLoopFilter(coeff float64, bufsize int, rate uint32) {
	t.bw = coeff
	t.bufsize = bufsize
	t.hostRate = float64(rate)
	if t.hostRate > 0 {
		t.periodUS = float64(bufsize) / t.hostRate * 1e6
	}
}

// NotifyDeviceFrames records that the device transport produced (or
// consumed) n frames since the last notification. Called by the bridge's
// o2h SRC pull callback with each batch of frames it hands the converter;
// safe for concurrent use with LoadFromDeviceSide.
func (t *Tracker) NotifyDeviceFrames(n int) {
	t.devMu.Lock()
	t.kj += int64(n)
	t.devMu.Unlock()
}

// LoadFromDeviceSide copies the producer-side frame counter under lock, the
// Go analogue of ow_dll_primary_load_dll_overwitch's engine-spinlock-guarded
// snapshot. Must be called once per host cycle before UpdateErr.
func (t *Tracker) LoadFromDeviceSide() int64 {
	t.devMu.Lock()
	kj := t.kj
	t.devMu.Unlock()
	return kj
}

// UpdateErr records the phase error observed at host wallclock time t
// (microseconds) against the device frames produced since the previous
// call, per spec §4.2's update_err(time). The first call after Init only
// establishes the time baseline (phase zero); Rescale keeps the existing
// baseline. This matches the
// "call update_err(t) once (phase zero)" step in spec §4.4.
func (t *Tracker) UpdateErr(timeUS int64) {
	kj := t.LoadFromDeviceSide()
	if !t.haveLast {
		t.lastErrTime = timeUS
		t.kjAtLastErr = kj
		t.haveLast = true
		return
	}

	elapsedUS := float64(timeUS - t.lastErrTime)
	t.lastErrTime = timeUS
	kjDelta := kj - t.kjAtLastErr
	t.kjAtLastErr = kj

	if elapsedUS <= 0 || t.hostRate <= 0 {
		return
	}

	// Instantaneous device rate as observed through the host clock: how
	// many device frames arrived per second of host wallclock time.
	instDeviceRate := float64(kjDelta) * 1e6 / elapsedUS
	instRatio := instDeviceRate / t.hostRate

	t.pendingErr = instRatio - t.Ratio
}

// Update applies the loop filter to the error computed by the most recent
// UpdateErr call, advancing Ratio. Returns the new ratio.
func (t *Tracker) Update() float64 {
	t.Ratio += t.bw * t.pendingErr
	t.sumRatio += t.Ratio
	t.sumCount++
	return t.Ratio
}

// CalcAvg computes the rolling average ratio over the last `window` Update
// calls, rolling the previous average into LastRatioAvg the way the
// original dll.ratio_avg / dll.last_ratio_avg pair work (§4.2, §4.4).
func (t *Tracker) CalcAvg(window int) {
	if window <= 0 || t.sumCount == 0 {
		return
	}
	t.LastRatioAvg = t.RatioAvg
	t.RatioAvg = t.sumRatio / float64(t.sumCount)
	t.sumRatio = 0
	t.sumCount = 0
}

// Converged reports whether the rolling average has stabilised within
// RatioDiffThreshold of the previous window, the TUNE->RUN transition gate.
func (t *Tracker) Converged() bool {
	diff := t.RatioAvg - t.LastRatioAvg
	if diff < 0 {
		diff = -diff
	}
	return diff < RatioDiffThreshold
}

package src

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// constantReader feeds a constant mono signal, n samples at a time,
// forever (never runs dry) — enough to drive a converter through many
// Read calls for steady-state assertions.
func constantReader(value float32) ReadFunc {
	return func(framesRequested int) ([]float32, int) {
		data := make([]float32, framesRequested)
		for i := range data {
			data[i] = value
		}
		return data, framesRequested
	}
}

func TestUnityRatioPassesThroughLinear(t *testing.T) {
	c := New(constantReader(0.5), QualityLinear, 1)
	out := make([]float32, 16)
	n := c.Read(1.0, 16, out)
	assert.Equal(t, 16, n)
	for _, v := range out {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

func TestUnityRatioPassesThroughSinc(t *testing.T) {
	c := New(constantReader(0.25), QualitySinc, 1)
	out := make([]float32, 32)
	n := c.Read(1.0, 32, out)
	assert.Equal(t, 32, n)
	// Past the filter's warm-up region the DC value should be preserved
	// (the sinc kernel is normalized to unity gain at DC).
	for _, v := range out[16:] {
		assert.InDelta(t, 0.25, v, 1e-4)
	}
}

func TestExhaustedCallbackProducesFewerFrames(t *testing.T) {
	calls := 0
	reader := func(framesRequested int) ([]float32, int) {
		calls++
		if calls > 1 {
			return nil, 0
		}
		return make([]float32, framesRequested), framesRequested
	}
	c := New(reader, QualityLinear, 1)
	out := make([]float32, 1000)
	n := c.Read(1.0, 1000, out)
	assert.Less(t, n, 1000, "converter should stop once the callback runs dry")
}

func TestDownsamplingRatioProducesFewerOutputFramesPerInput(t *testing.T) {
	// ratio = 2.0 means 2 input frames consumed per output frame produced.
	var fed int
	reader := func(framesRequested int) ([]float32, int) {
		data := make([]float32, framesRequested)
		for i := range data {
			data[i] = float32(fed + i)
		}
		fed += framesRequested
		return data, framesRequested
	}
	c := New(reader, QualityLinear, 1)
	out := make([]float32, 10)
	n := c.Read(2.0, 10, out)
	assert.Equal(t, 10, n)
	// The input is a ramp (value == input frame index), so output frame i
	// sitting at input position 2*i shows two inputs consumed per output.
	for i := range out {
		assert.InDelta(t, float32(2*i), out[i], 1e-6)
	}
}

func TestStereoChannelsInterleaved(t *testing.T) {
	reader := func(framesRequested int) ([]float32, int) {
		data := make([]float32, framesRequested*2)
		for i := 0; i < framesRequested; i++ {
			data[i*2] = 1.0   // left
			data[i*2+1] = -1.0 // right
		}
		return data, framesRequested
	}
	c := New(reader, QualityLinear, 2)
	out := make([]float32, 8*2)
	n := c.Read(1.0, 8, out)
	assert.Equal(t, 8, n)
	for i := 0; i < 8; i++ {
		assert.InDelta(t, 1.0, out[i*2], 1e-6)
		assert.InDelta(t, -1.0, out[i*2+1], 1e-6)
	}
}

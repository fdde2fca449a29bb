package bridge

import (
	"encoding/binary"
	"math"
)

// floatsToBytes encodes interleaved float32 samples into little-endian
// bytes for storage in a byte ring, the inverse of bytesToFloats and
// grounded on the teacher's bytesToFloat32 (internal/audio/capture.go),
// which performs the same encode/decode for malgo's raw byte callbacks.
func floatsToBytes(samples []float32, dst []byte) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}

// bytesToFloats decodes little-endian bytes into interleaved float32
// samples.
func bytesToFloats(data []byte, dst []float32) {
	n := len(data) / 4
	for i := 0; i < n; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
}

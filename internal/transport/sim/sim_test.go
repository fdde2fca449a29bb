package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadO2HProducesSilence(t *testing.T) {
	d := New(48000, 2)
	defer d.Close()

	buf := make([]byte, 64*d.FrameSize())
	for i := range buf {
		buf[i] = 0xAA
	}

	n, err := d.ReadO2H(context.Background(), buf)
	assert.NoError(t, err)
	assert.Equal(t, len(buf), n)
	for _, b := range buf {
		assert.Equal(t, byte(0), b)
	}
}

func TestReadO2HRespectsCancellation(t *testing.T) {
	d := New(48000, 2)
	defer d.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.ReadO2H(ctx, make([]byte, 48000*d.FrameSize()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMIDIInjectAndDrain(t *testing.T) {
	d := New(48000, 2)
	defer d.Close()

	d.InjectO2HMIDI([4]byte{0x04, 0x90, 0x3C, 0x7F})
	d.InjectO2HMIDI([4]byte{0x04, 0x80, 0x3C, 0x00})

	buf := make([]byte, 16)
	n, err := d.ReadO2HMIDI(context.Background(), buf)
	assert.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte{0x04, 0x90, 0x3C, 0x7F, 0x04, 0x80, 0x3C, 0x00}, buf[:n])

	n, err = d.ReadO2HMIDI(context.Background(), buf)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestWriteH2OCapturesBytes(t *testing.T) {
	d := New(48000, 2)
	defer d.Close()

	n, err := d.WriteH2O(context.Background(), []byte{1, 2, 3, 4})
	assert.NoError(t, err)
	assert.Equal(t, 4, n)

	n, err = d.WriteH2O(context.Background(), []byte{5, 6})
	assert.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6}, d.CapturedH2O())
}

func TestCloseUnblocksPendingRead(t *testing.T) {
	d := New(48000, 2)
	done := make(chan error, 1)
	go func() {
		_, err := d.ReadO2H(context.Background(), make([]byte, 48000*d.FrameSize()))
		done <- err
	}()

	d.Close()
	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
}

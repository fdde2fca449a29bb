package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/agalue/obridge/internal/src"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	assert.NoError(t, err)
	assert.Equal(t, -1, cfg.Bus)
	assert.Equal(t, -1, cfg.Address)
	assert.Equal(t, 4, cfg.BlocksPerTransfer)
	assert.Equal(t, time.Second, cfg.XfrTimeout)
	assert.Equal(t, src.QualityLinear, cfg.Quality)
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse([]string{
		"--bus=2", "--address=5", "--vendor-id=1234", "--product-id=5678",
		"--blocks-per-transfer=8", "--xfr-timeout-ms=250", "--quality=sinc", "--priority=80", "-v", "2",
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, cfg.Bus)
	assert.Equal(t, 5, cfg.Address)
	assert.Equal(t, uint16(1234), cfg.VendorID)
	assert.Equal(t, uint16(5678), cfg.ProductID)
	assert.Equal(t, 8, cfg.BlocksPerTransfer)
	assert.Equal(t, 250*time.Millisecond, cfg.XfrTimeout)
	assert.Equal(t, src.QualitySinc, cfg.Quality)
	assert.Equal(t, 80, cfg.Priority)
	assert.Equal(t, 2, cfg.Verbosity)
}

func TestParseInvalidQuality(t *testing.T) {
	_, err := Parse([]string{"--quality=potato"})
	assert.Error(t, err)
}

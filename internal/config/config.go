// Package config parses the bridge's CLI configuration, grounded on
// doismellburning-samoyed's cmd/direwolf/main.go pflag usage (GNU-style
// long/short flags, parsed through a dedicated pflag.FlagSet), replacing the teacher's
// stdlib flag.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/agalue/obridge/internal/src"
)

// Config holds the bridge's command-line configuration, per spec §6.
type Config struct {
	Bus     int // USB bus number, -1 means auto-discover
	Address int // USB device address, -1 means auto-discover

	VendorID  uint16
	ProductID uint16

	BlocksPerTransfer int
	XfrTimeout        time.Duration

	Quality  src.Quality
	Priority int

	Verbosity int
}

// Parse parses args (typically os.Args[1:]) with its own pflag.FlagSet into
// a Config, returning an error for an invalid --quality value instead of
// exiting, so callers can decide how to report it.
func Parse(args []string) (Config, error) {
	fs := pflag.NewFlagSet("obridge", pflag.ContinueOnError)

	bus := fs.IntP("bus", "b", -1, "USB bus number (-1 to auto-discover via --vendor-id/--product-id)")
	address := fs.IntP("address", "a", -1, "USB device address (-1 to auto-discover)")
	vendorID := fs.Uint16("vendor-id", 0, "USB vendor ID, used when --bus/--address are left at -1")
	productID := fs.Uint16("product-id", 0, "USB product ID, used when --bus/--address are left at -1")
	blocksPerTransfer := fs.IntP("blocks-per-transfer", "B", 4, "USB isochronous blocks per transfer")
	xfrTimeoutMS := fs.Int("xfr-timeout-ms", 1000, "USB transfer timeout in milliseconds")
	quality := fs.StringP("quality", "q", "linear", "resampling quality: linear or sinc")
	priority := fs.IntP("priority", "p", -1, "real-time scheduling priority for the audio threads, 0 to leave at default, negative to query the host's own RT priority")
	verbosity := fs.IntP("verbosity", "v", 0, "log verbosity: 0=error 1=info 2=debug 3=trace")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	q, err := parseQuality(*quality)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Bus:               *bus,
		Address:           *address,
		VendorID:          *vendorID,
		ProductID:         *productID,
		BlocksPerTransfer: *blocksPerTransfer,
		XfrTimeout:        time.Duration(*xfrTimeoutMS) * time.Millisecond,
		Quality:           q,
		Priority:          *priority,
		Verbosity:         *verbosity,
	}, nil
}

func parseQuality(s string) (src.Quality, error) {
	switch s {
	case "linear":
		return src.QualityLinear, nil
	case "sinc":
		return src.QualitySinc, nil
	default:
		return 0, fmt.Errorf("config: invalid --quality %q (want linear or sinc)", s)
	}
}

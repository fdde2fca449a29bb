// Command bridge runs the Overbridge-class USB audio/MIDI bridge: it binds
// a host audio graph (via malgo) to a simulated or real device transport,
// resampling audio and translating MIDI between the two clocks.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agalue/obridge/internal/bridge"
	"github.com/agalue/obridge/internal/config"
	"github.com/agalue/obridge/internal/host/malgohost"
	"github.com/agalue/obridge/internal/logging"
	"github.com/agalue/obridge/internal/orchestrator"
	"github.com/agalue/obridge/internal/transport"
	"github.com/agalue/obridge/internal/transport/sim"
	"github.com/agalue/obridge/internal/usbdiscovery"
)

const (
	deviceChannels = 2
	hostBufsize    = 256
	hostSampleRate = 48000
)

func main() {
	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger := logging.New(logging.Level(cfg.Verbosity))

	cfg = resolveUSBLocation(cfg, logger)

	desc := bridge.DeviceDescriptor{
		Inputs:      deviceChannels,
		Outputs:     deviceChannels,
		InputNames:  []string{"input_1", "input_2"},
		OutputNames: []string{"output_1", "output_2"},
		SampleRate:  hostSampleRate,
	}

	b := bridge.New(desc, cfg.Quality, logger)
	b.SetBufferSize(hostBufsize)
	b.SetSampleRate(hostSampleRate)
	defer b.Destroy()

	binding, err := malgohost.New(logger, deviceChannels, deviceChannels, hostSampleRate, hostBufsize)
	if err != nil {
		log.Fatalf("failed to initialize host audio binding: %v", err)
	}
	defer binding.Close()

	cycle, err := orchestrator.New(b, binding, logger)
	if err != nil {
		log.Fatalf("failed to wire orchestrator: %v", err)
	}

	// Mirrors jclient.c: `if (jclient->priority < 0) jclient->priority =
	// jack_client_real_time_priority(jclient->client);` — a negative
	// --priority means "ask the host what it would use," 0 means leave the
	// audio threads at the default scheduling priority.
	priority := cfg.Priority
	if priority < 0 {
		priority = binding.HostPriority()
		logger.Printf(logging.LevelInfo, "using host-reported RT priority %d", priority)
	}
	if priority > 0 {
		if err := binding.AcquireRealTimePriority(priority); err != nil {
			logger.Printf(logging.LevelInfo, "could not acquire real-time priority %d: %v", priority, err)
		}
	}

	// A real deployment swaps this for internal/transport/usb (built with
	// the "usb" tag); the simulated device lets the bridge run end to end
	// without hardware, exercising the same transport.Device seam.
	dev := sim.New(desc.SampleRate, deviceChannels)
	defer dev.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pump := transport.StartPump(context.Background(), dev, b, logger)

	if err := cycle.Activate(); err != nil {
		log.Fatalf("failed to activate host binding: %v", err)
	}

	// malgo has no port graph to report real connection events from (see
	// malgohost's RegisterPortConnectCallback doc comment), so its duplex
	// device's fixed channel counts are treated as permanently connected
	// for the process lifetime, the way a fully-patched JACK graph would
	// report itself on activation.
	b.PortsChanged(deviceChannels, deviceChannels)

	log.Println("bridge running, Ctrl+C to quit")
	<-sigChan
	log.Println("shutting down...")

	if err := cycle.Deactivate(); err != nil {
		logger.Printf(logging.LevelInfo, "error deactivating host binding: %v", err)
	}

	pump.Stop()
	if pump.WaitTimeout(5 * time.Second) {
		log.Println("shutdown complete")
	} else {
		log.Println("shutdown timeout, forcing exit")
	}
}

// resolveUSBLocation fills in cfg.Bus/cfg.Address from vendor/product ID
// via udev enumeration when the user left them at "auto" (-1), per spec
// §6's bus/address config options.
func resolveUSBLocation(cfg config.Config, logger *logging.Logger) config.Config {
	if cfg.Bus >= 0 && cfg.Address >= 0 {
		return cfg
	}
	if cfg.VendorID == 0 || cfg.ProductID == 0 {
		logger.Printf(logging.LevelInfo, "no --bus/--address and no --vendor-id/--product-id given, using the simulated transport only")
		return cfg
	}
	match, err := usbdiscovery.FindOne(cfg.VendorID, cfg.ProductID)
	if err != nil {
		logger.Printf(logging.LevelInfo, "USB auto-discovery failed: %v", err)
		return cfg
	}
	logger.Printf(logging.LevelInfo, "discovered device vendor=%04x product=%04x at bus=%d address=%d",
		match.Vendor, match.Product, match.Bus, match.Address)
	cfg.Bus, cfg.Address = match.Bus, match.Address
	return cfg
}

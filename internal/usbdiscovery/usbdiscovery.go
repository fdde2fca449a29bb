// Package usbdiscovery resolves a USB bus/address pair from a vendor and
// product ID, the "auto" mode for the bus/address config options spec §6
// leaves to an external collaborator (device enumeration is out of scope
// for the bridge core itself — spec §1).
//
// Grounded on doismellburning-samoyed's src/cm108.go enumeration logic
// (read idVendor, idProduct, busnum, devnum sysfs attributes), but
// enumerating usb_device nodes directly rather than walking up from a
// sound/HID device to its usb_device parent, reimplemented against
// github.com/jochenvg/go-udev's Go API instead of cm108.go's raw cgo
// libudev calls.
package usbdiscovery

import (
	"fmt"
	"strconv"

	"github.com/jochenvg/go-udev"
)

// Match identifies one connected USB device by its resolved location.
type Match struct {
	Bus     int
	Address int
	Vendor  uint16
	Product uint16
}

// Find enumerates usb_device nodes and returns every currently connected
// device whose idVendor/idProduct sysfs attributes match vendor/product,
// filtering the usb_device nodes themselves (no parent walk).
func Find(vendor, product uint16) ([]Match, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()

	if err := e.AddMatchSubsystem("usb"); err != nil {
		return nil, fmt.Errorf("usbdiscovery: match subsystem: %w", err)
	}
	if err := e.AddMatchProperty("DEVTYPE", "usb_device"); err != nil {
		return nil, fmt.Errorf("usbdiscovery: match devtype: %w", err)
	}

	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("usbdiscovery: enumerate: %w", err)
	}

	var matches []Match
	for _, dev := range devices {
		vid, ok := parseHexAttr(dev.SysattrValue("idVendor"))
		if !ok || vid != vendor {
			continue
		}
		pid, ok := parseHexAttr(dev.SysattrValue("idProduct"))
		if !ok || pid != product {
			continue
		}

		bus, ok := parseDecAttr(dev.SysattrValue("busnum"))
		if !ok {
			continue
		}
		addr, ok := parseDecAttr(dev.SysattrValue("devnum"))
		if !ok {
			continue
		}

		matches = append(matches, Match{Bus: bus, Address: addr, Vendor: vid, Product: pid})
	}

	return matches, nil
}

// FindOne returns the single device matching vendor/product, erroring if
// none or more than one is connected (the config's "auto" mode needs an
// unambiguous answer).
func FindOne(vendor, product uint16) (Match, error) {
	matches, err := Find(vendor, product)
	if err != nil {
		return Match{}, err
	}
	switch len(matches) {
	case 0:
		return Match{}, fmt.Errorf("usbdiscovery: no device matching vendor=%04x product=%04x", vendor, product)
	case 1:
		return matches[0], nil
	default:
		return Match{}, fmt.Errorf("usbdiscovery: %d devices matching vendor=%04x product=%04x, specify --bus/--address", len(matches), vendor, product)
	}
}

func parseHexAttr(s string) (uint16, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}

func parseDecAttr(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}

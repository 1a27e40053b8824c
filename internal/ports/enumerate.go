// Package ports enumerates the serial devices on the host and watches a
// device node for disappearance while a bridge is running.
package ports

import (
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"

	"github.com/serial-tools/espbridge/internal/errors"
)

// Device describes one serial port on the host.
type Device struct {
	// Path is the device node, e.g. /dev/ttyUSB0 or COM3.
	Path string

	// Description is the product name reported by the device, if any.
	Description string

	// VID and PID identify the USB vendor and product (hex strings).
	VID string
	PID string

	// Serial is the USB serial number, if the device reports one.
	Serial string

	// IsUSB is true for USB serial adapters. ESP development boards
	// show up as these.
	IsUSB bool
}

// Label renders the device on one line for lists and logs.
func (d Device) Label() string {
	switch {
	case d.IsUSB && d.Description != "":
		return fmt.Sprintf("%s  %s [%s:%s]", d.Path, d.Description, d.VID, d.PID)
	case d.IsUSB:
		return fmt.Sprintf("%s  [%s:%s]", d.Path, d.VID, d.PID)
	case d.Description != "":
		return d.Path + "  " + d.Description
	default:
		return d.Path
	}
}

// List enumerates the serial devices on this host. USB adapters sort
// first, each group ordered by path.
func List() ([]Device, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, errors.Wrap(err, "failed to enumerate serial ports")
	}
	return fromDetails(details), nil
}

// fromDetails maps the platform enumeration into Devices and sorts them.
func fromDetails(details []*enumerator.PortDetails) []Device {
	devices := make([]Device, 0, len(details))
	for _, d := range details {
		if d == nil {
			continue
		}
		devices = append(devices, Device{
			Path:        d.Name,
			Description: d.Product,
			VID:         d.VID,
			PID:         d.PID,
			Serial:      d.SerialNumber,
			IsUSB:       d.IsUSB,
		})
	}

	sort.SliceStable(devices, func(i, j int) bool {
		if devices[i].IsUSB != devices[j].IsUSB {
			return devices[i].IsUSB
		}
		return devices[i].Path < devices[j].Path
	})

	return devices
}

package device

import (
	"bytes"
	"fmt"
	"runtime"
	"strings"
)

// Information about a host compute platform and its usable devices.
type PlatformInfo struct {
	Profile string
	Version string
	Name    string
	Vendor  string
	Devices []*Device
}

func (pl PlatformInfo) String() string {
	var buf bytes.Buffer

	buf.WriteString(
		fmt.Sprintf(
			"Version:    %s\nName:       %s\nVendor:     %s\nDevices:\n",
			pl.Version,
			pl.Name,
			pl.Vendor,
		),
	)

	for dIdx, d := range pl.Devices {
		buf.WriteString(fmt.Sprintf("  Device %02d:\n", dIdx))
		buf.WriteString(indentRegex.ReplaceAllString(d.String(), "    "))
		buf.WriteString("\n\n")
	}

	return buf.String()
}

// Get information about the supported compute platforms and devices. The
// native platform always exposes exactly one device backed by the host cpu.
func GetPlatformInfo() ([]PlatformInfo, error) {
	return []PlatformInfo{
		{
			Profile: "FULL_PROFILE",
			Version: fmt.Sprintf("native 1.0 %s", runtime.Version()),
			Name:    "native worker pool",
			Vendor:  runtime.GOOS + "/" + runtime.GOARCH,
			Devices: []*Device{newCpuDevice()},
		},
	}, nil
}

// Scan all available platforms and select devices that match the given query.
func SelectDevices(typeMask DeviceType, matchName string) ([]*Device, error) {
	platforms, err := GetPlatformInfo()
	if err != nil {
		return nil, err
	}
	list := make([]*Device, 0)
	for _, p := range platforms {
		for _, d := range p.Devices {
			// Match type
			if d.Type&typeMask != d.Type {
				continue
			}

			// Match name
			if matchName != "" && !strings.Contains(d.Name, matchName) {
				continue
			}

			list = append(list, d)
		}
	}
	return list, nil
}

//go:build opencl

package cmd

import (
	"bytes"
	"fmt"

	"github.com/achilleasa/raystream/tracer/opencl"
	"github.com/urfave/cli"
)

// List available opencl devices.
func ListDevices(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}

	clPlatforms, err := opencl.Devices()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("\nSystem provides %d opencl platform(s):\n\n", len(clPlatforms)))
	for pIdx, platformInfo := range clPlatforms {
		buf.WriteString(fmt.Sprintf("[Platform %02d]\n  Name    %s\n  Vendor  %s\n  Version %s\n  Profile %s\n  Devices %d\n\n", pIdx, platformInfo.Name, platformInfo.Vendor, platformInfo.Version, platformInfo.Profile, len(platformInfo.Devices)))
		for dIdx, device := range platformInfo.Devices {
			buf.WriteString(fmt.Sprintf("  [Device %02d]\n    Name  %s\n    Type  %s\n    Speed %d GFlops\n\n", dIdx, device.Name, device.Type, device.Speed))
		}
	}

	logger.Notice(buf.String())
	return nil
}

//go:build !opencl

package cmd

import (
	"errors"

	"github.com/urfave/cli"
)

// List available opencl devices.
func ListDevices(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	return errors.New("opencl support is not available; rebuild with -tags opencl")
}

//go:build opencl

package cmd

import (
	// Register the opencl compute backend.
	_ "github.com/achilleasa/raystream/tracer/opencl"
)

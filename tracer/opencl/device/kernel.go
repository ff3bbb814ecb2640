//go:build opencl

package device

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

// A wrapper around opencl kernel handles.
type Kernel struct {
	device *Device
	handle cl.Kernel
	name   string

	globalWorkSizes [2]uint64
}

// Free any allocated resources used by this kernel.
func (k *Kernel) Release() {
	if k.handle != nil {
		cl.ReleaseKernel(k.handle)
		k.handle = nil
	}
}

// Bind arguments to the kernel. Supported argument types are buffers,
// int32, uint32 and float32.
func (k *Kernel) SetArgs(args ...interface{}) error {
	var errCode cl.ErrorCode
	for argIndex, arg := range args {
		switch v := arg.(type) {
		case *Buffer:
			handle := v.Handle()
			errCode = cl.SetKernelArg(k.handle, uint32(argIndex), 8, unsafe.Pointer(&handle))
		case int32:
			errCode = cl.SetKernelArg(k.handle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case uint32:
			errCode = cl.SetKernelArg(k.handle, uint32(argIndex), 4, unsafe.Pointer(&v))
		case float32:
			errCode = cl.SetKernelArg(k.handle, uint32(argIndex), 4, unsafe.Pointer(&v))
		default:
			return fmt.Errorf("opencl device (%s): could not set arg %d for kernel %s; unsupported arg type %T", k.device.Name, argIndex, k.name, arg)
		}

		if errCode != cl.SUCCESS {
			return newError(k.device.Name, fmt.Sprintf("could not set arg %d for kernel %s", argIndex, k.name), errCode)
		}
	}

	return nil
}

// Execute the kernel over a 2D grid and wait for it to complete. The opencl
// implementation picks the local work group size.
func (k *Kernel) Exec2D(globalWorkSizeX, globalWorkSizeY int) (time.Duration, error) {
	k.globalWorkSizes[0], k.globalWorkSizes[1] = uint64(globalWorkSizeX), uint64(globalWorkSizeY)

	tick := time.Now()
	errCode := cl.EnqueueNDRangeKernel(
		k.device.cmdQueue,
		k.handle,
		2,
		nil,
		(*uint64)(unsafe.Pointer(&k.globalWorkSizes[0])),
		nil,
		0,
		nil,
		nil,
	)
	if errCode != cl.SUCCESS {
		return 0, newError(k.device.Name, fmt.Sprintf("could not execute kernel %s", k.name), errCode)
	}

	errCode = cl.Finish(k.device.cmdQueue)
	if errCode != cl.SUCCESS {
		return 0, newError(k.device.Name, fmt.Sprintf("kernel %s did not complete", k.name), errCode)
	}

	return time.Since(tick), nil
}

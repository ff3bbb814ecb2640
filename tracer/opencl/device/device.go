//go:build opencl

package device

import (
	"fmt"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

type DeviceType uint8

// Supported device types.
const (
	CpuDevice DeviceType = 1 << iota
	GpuDevice
	AllDevices DeviceType = 0xFF
)

func (dt DeviceType) String() string {
	switch dt {
	case CpuDevice:
		return "CPU"
	case GpuDevice:
		return "GPU"
	}
	return "Other"
}

// Wrapper around an opencl device.
type Device struct {
	Name     string
	Platform string
	Id       cl.DeviceId
	Type     DeviceType

	ComputeUnits uint32
	ClockSpeed   uint32

	// Speed estimate in GFlops.
	Speed uint32

	// Opencl handles; allocated when device is initialized.
	ctx      *cl.Context
	cmdQueue cl.CommandQueue
	program  cl.Program
}

func (d *Device) String() string {
	return fmt.Sprintf("%s (%s, %d GFlops)", d.Name, d.Type, d.Speed)
}

// Create a context and command queue for this device and build the supplied
// program source.
func (d *Device) Init(programSource string) error {
	var errCode cl.ErrorCode

	// Already initialized
	if d.ctx != nil {
		return nil
	}

	d.ctx = cl.CreateContext(nil, 1, &d.Id, nil, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		d.Close()
		return newError(d.Name, "could not create context", errCode)
	}

	d.cmdQueue = cl.CreateCommandQueue(*d.ctx, d.Id, 0, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		d.Close()
		return newError(d.Name, "could not create command queue", errCode)
	}

	progSrc := cl.Str(programSource + "\x00")
	d.program = cl.CreateProgramWithSource(*d.ctx, 1, &progSrc, nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		d.Close()
		return newError(d.Name, "could not create program", errCode)
	}

	errCode = cl.BuildProgram(d.program, 1, &d.Id, cl.Str("\x00"), nil, nil)
	if errCode != cl.SUCCESS {
		var dataLen uint64
		data := make([]byte, 120000)
		cl.GetProgramBuildInfo(d.program, d.Id, cl.PROGRAM_BUILD_LOG, uint64(len(data)), unsafe.Pointer(&data[0]), &dataLen)
		d.Close()
		return fmt.Errorf("%w:\n%s", newError(d.Name, "could not build program", errCode), cString(data, dataLen))
	}

	return nil
}

// Release the device program, queue and context.
func (d *Device) Close() {
	if d.program != nil {
		cl.ReleaseProgram(d.program)
		d.program = nil
	}

	if d.cmdQueue != nil {
		cl.ReleaseCommandQueue(d.cmdQueue)
		d.cmdQueue = nil
	}

	if d.ctx != nil {
		cl.ReleaseContext(d.ctx)
		d.ctx = nil
	}
}

// Load kernel by name.
func (d *Device) Kernel(name string) (*Kernel, error) {
	if d.program == nil {
		return nil, ErrDeviceNotReady
	}

	var errCode cl.ErrorCode
	handle := cl.CreateKernel(d.program, cl.Str(name+"\x00"), (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		return nil, newError(d.Name, fmt.Sprintf("could not load kernel %s", name), errCode)
	}

	return &Kernel{
		device: d,
		handle: handle,
		name:   name,
	}, nil
}

// Create an empty buffer.
func (d *Device) Buffer(name string) *Buffer {
	return &Buffer{
		device: d,
		name:   name,
	}
}

// Estimate device speed as: compute units * clock speed.
func (d *Device) detectSpeed() error {
	errCode := cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_COMPUTE_UNITS, 4, unsafe.Pointer(&d.ComputeUnits), nil)
	if errCode != cl.SUCCESS {
		return newError(d.Name, "could not query MAX_COMPUTE_UNITS", errCode)
	}
	errCode = cl.GetDeviceInfo(d.Id, cl.DEVICE_MAX_CLOCK_FREQUENCY, 4, unsafe.Pointer(&d.ClockSpeed), nil)
	if errCode != cl.SUCCESS {
		return newError(d.Name, "could not query MAX_CLOCK_FREQUENCY", errCode)
	}
	d.Speed = d.ComputeUnits * d.ClockSpeed / 1000

	return nil
}

//go:build opencl

package device

import (
	"errors"
	"fmt"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

var (
	ErrNoDevices          = errors.New("opencl: no matching devices found")
	ErrDeviceNotReady     = errors.New("opencl: device not initialized")
	ErrInsufficientBuffer = errors.New("opencl: insufficient device buffer space")
)

var errorNames = map[cl.ErrorCode]string{
	0:   "SUCCESS",
	-1:  "DEVICE_NOT_FOUND",
	-2:  "DEVICE_NOT_AVAILABLE",
	-3:  "COMPILER_NOT_AVAILABLE",
	-4:  "MEM_OBJECT_ALLOCATION_FAILURE",
	-5:  "OUT_OF_RESOURCES",
	-6:  "OUT_OF_HOST_MEMORY",
	-7:  "PROFILING_INFO_NOT_AVAILABLE",
	-8:  "MEM_COPY_OVERLAP",
	-11: "BUILD_PROGRAM_FAILURE",
	-12: "MAP_FAILURE",
	-30: "INVALID_VALUE",
	-33: "INVALID_DEVICE",
	-34: "INVALID_CONTEXT",
	-36: "INVALID_COMMAND_QUEUE",
	-38: "INVALID_MEM_OBJECT",
	-44: "INVALID_PROGRAM",
	-45: "INVALID_PROGRAM_EXECUTABLE",
	-46: "INVALID_KERNEL_NAME",
	-48: "INVALID_KERNEL",
	-49: "INVALID_ARG_INDEX",
	-50: "INVALID_ARG_VALUE",
	-51: "INVALID_ARG_SIZE",
	-52: "INVALID_KERNEL_ARGS",
	-53: "INVALID_WORK_DIMENSION",
	-54: "INVALID_WORK_GROUP_SIZE",
	-55: "INVALID_WORK_ITEM_SIZE",
	-56: "INVALID_GLOBAL_OFFSET",
	-59: "INVALID_OPERATION",
	-61: "INVALID_BUFFER_SIZE",
	-63: "INVALID_GLOBAL_WORK_SIZE",
}

// Return a textual description of an opencl error code.
func ErrorName(errCode cl.ErrorCode) string {
	if name, exists := errorNames[errCode]; exists {
		return name
	}
	return fmt.Sprintf("unknown error code %d", errCode)
}

// An Error wraps a failed opencl call.
type Error struct {
	Device string
	Op     string
	Code   cl.ErrorCode
}

func (e *Error) Error() string {
	return fmt.Sprintf("opencl device (%s): %s (error: %s; code %d)", e.Device, e.Op, ErrorName(e.Code), e.Code)
}

func newError(device, op string, code cl.ErrorCode) error {
	return &Error{Device: device, Op: op, Code: code}
}

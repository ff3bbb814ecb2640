//go:build opencl

package device

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

// A device memory buffer.
type Buffer struct {
	handle cl.Mem
	device *Device

	// A name for identifying the buffer in errors.
	name string

	// Allocated size in bytes.
	size int
}

// Get buffer size.
func (b *Buffer) Size() int {
	return b.size
}

// Ensure that the buffer can hold size bytes. The buffer is only
// reallocated if its current size does not match.
func (b *Buffer) Allocate(size int, flags cl.MemFlags) error {
	if b.handle != nil && b.size == size {
		return nil
	}
	b.Release()

	var errCode cl.ErrorCode
	b.handle = cl.CreateBuffer(*b.device.ctx, flags, cl.MemFlags(size), nil, (*int32)(&errCode))
	if errCode != cl.SUCCESS {
		b.handle = nil
		return newError(b.device.Name, fmt.Sprintf("could not allocate buffer %s of size %d", b.name, size), errCode)
	}

	b.size = size
	return nil
}

// Allocate a buffer that fits data and copy data to it. data must be a
// non-empty slice.
func (b *Buffer) Upload(data interface{}, flags cl.MemFlags) error {
	_, dataLen := sliceData(data)
	if err := b.Allocate(dataLen, flags); err != nil {
		return err
	}
	return b.WriteData(data)
}

// Copy a host slice to the device buffer.
func (b *Buffer) WriteData(data interface{}) error {
	dataPtr, dataLen := sliceData(data)
	if dataLen > b.size {
		return fmt.Errorf("%w: buffer %s holds %d bytes; got %d", ErrInsufficientBuffer, b.name, b.size, dataLen)
	}

	errCode := cl.EnqueueWriteBuffer(b.device.cmdQueue, b.handle, cl.TRUE, 0, uint64(dataLen), dataPtr, 0, nil, nil)
	if errCode != cl.SUCCESS {
		return newError(b.device.Name, fmt.Sprintf("could not copy host data to buffer %s", b.name), errCode)
	}
	return nil
}

// Copy the device buffer contents into a host slice.
func (b *Buffer) ReadData(hostBuffer interface{}) error {
	dataPtr, dataLen := sliceData(hostBuffer)
	if dataLen > b.size {
		return fmt.Errorf("%w: buffer %s holds %d bytes; requested %d", ErrInsufficientBuffer, b.name, b.size, dataLen)
	}

	errCode := cl.EnqueueReadBuffer(b.device.cmdQueue, b.handle, cl.TRUE, 0, uint64(dataLen), dataPtr, 0, nil, nil)
	if errCode != cl.SUCCESS {
		return newError(b.device.Name, fmt.Sprintf("could not copy buffer %s to host", b.name), errCode)
	}
	return nil
}

// Release buffer.
func (b *Buffer) Release() {
	if b.handle != nil {
		cl.ReleaseMemObject(b.handle)
		b.handle = nil
		b.size = 0
	}
}

// Get opencl buffer handle.
func (b *Buffer) Handle() cl.Mem {
	return b.handle
}

// Given a non-empty slice return a pointer to its data and its size in bytes.
func sliceData(data interface{}) (unsafe.Pointer, int) {
	reflVal := reflect.ValueOf(data)
	if reflVal.Kind() != reflect.Slice {
		panic("sliceData: only slices are supported")
	}
	if reflVal.Len() == 0 {
		panic("sliceData: empty slice")
	}

	return unsafe.Pointer(reflVal.Index(0).Addr().Pointer()),
		reflVal.Len() * int(reflVal.Type().Elem().Size())
}

//go:build opencl

package device

import (
	"sort"
	"strings"
	"unsafe"

	"github.com/achilleasa/gopencl/v1.2/cl"
)

const (
	platformBufferSize = 100
	deviceBufferSize   = 100
	dataBufferSize     = 1024
)

// Information about an opencl platform and its devices.
type PlatformInfo struct {
	Profile string
	Version string
	Name    string
	Vendor  string
	Devices []*Device
}

// Convert a NUL-terminated string returned by an info query.
func cString(data []byte, dataLen uint64) string {
	if dataLen == 0 {
		return ""
	}
	return strings.TrimRight(string(data[0:dataLen]), "\x00")
}

// Enumerate the opencl platforms and their CPU and GPU devices.
func GetPlatformInfo() ([]PlatformInfo, error) {
	pids := make([]cl.PlatformID, platformBufferSize)
	devices := make([]cl.DeviceId, deviceBufferSize)
	data := make([]byte, dataBufferSize)

	pidCount := uint32(0)
	cl.GetPlatformIDs(uint32(len(pids)), &pids[0], &pidCount)

	infoList := make([]PlatformInfo, int(pidCount))
	for pIdx := range infoList {
		pid := pids[pIdx]
		info := &infoList[pIdx]
		dataLen := uint64(0)

		cl.GetPlatformInfo(pid, cl.PLATFORM_PROFILE, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Profile = cString(data, dataLen)

		cl.GetPlatformInfo(pid, cl.PLATFORM_VERSION, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Version = cString(data, dataLen)

		cl.GetPlatformInfo(pid, cl.PLATFORM_NAME, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Name = cString(data, dataLen)

		cl.GetPlatformInfo(pid, cl.PLATFORM_VENDOR, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)
		info.Vendor = cString(data, dataLen)

		deviceCount := uint32(0)
		cl.GetDeviceIDs(pid, cl.DEVICE_TYPE_CPU, uint32(len(devices)), &devices[0], &deviceCount)
		if err := info.addDevices(devices[:deviceCount], CpuDevice, data); err != nil {
			return nil, err
		}

		deviceCount = 0
		cl.GetDeviceIDs(pid, cl.DEVICE_TYPE_GPU, uint32(len(devices)), &devices[0], &deviceCount)
		if err := info.addDevices(devices[:deviceCount], GpuDevice, data); err != nil {
			return nil, err
		}
	}

	return infoList, nil
}

func (pl *PlatformInfo) addDevices(ids []cl.DeviceId, devType DeviceType, data []byte) error {
	for _, id := range ids {
		dataLen := uint64(0)
		cl.GetDeviceInfo(id, cl.DEVICE_NAME, dataBufferSize, unsafe.Pointer(&data[0]), &dataLen)

		dev := &Device{
			Name:     cString(data, dataLen),
			Id:       id,
			Type:     devType,
			Platform: pl.Name,
		}
		if err := dev.detectSpeed(); err != nil {
			return err
		}
		pl.Devices = append(pl.Devices, dev)
	}
	return nil
}

// Scan all opencl platforms and select the devices whose type is included in
// typeMask and whose name contains matchName. Devices are sorted by
// estimated speed, fastest first.
func SelectDevices(typeMask DeviceType, matchName string) ([]*Device, error) {
	platforms, err := GetPlatformInfo()
	if err != nil {
		return nil, err
	}

	var list []*Device
	for _, p := range platforms {
		for _, d := range p.Devices {
			if d.Type&typeMask != d.Type {
				continue
			}
			if matchName != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(matchName)) {
				continue
			}
			list = append(list, d)
		}
	}

	if len(list) == 0 {
		return nil, ErrNoDevices
	}

	sort.SliceStable(list, func(i, j int) bool {
		return list[i].Speed > list[j].Speed
	})
	return list, nil
}

package tracer

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/achilleasa/raystream/scene"
)

// A unit of work that is processed by a compute backend.
type DispatchRequest struct {
	// The rays to trace. Backends may write colors in place.
	Rays []Ray

	// The 2D grid the rays are laid out on.
	Shape DispatchShape

	// Static scene geometry.
	Geometry *scene.Geometry

	// Per-dispatch jitter texture sized to Shape.
	Noise *NoiseTexture
}

// The Backend interface is implemented by all compute backends.
type Backend interface {
	// Get backend id.
	Id() string

	// Trace the rays in the request and return them with their color
	// populated. The returned slice must have the same length as req.Rays.
	// Dispatch calls from a single pipeline are never concurrent.
	Dispatch(ctx context.Context, req *DispatchRequest) ([]Ray, error)

	// Shutdown backend and release any allocated resources.
	Close()
}

// Options passed to backend factories.
type BackendOptions struct {
	// Number of jittered samples per ray.
	SamplesPerPixel uint32

	// Jitter amplitude as a fraction of the ray direction length.
	Jitter float32

	// Number of host workers (cpu backend).
	Workers int

	// Device name filter (device backends).
	DeviceFilter string
}

// A function that creates a backend.
type Factory func(opts BackendOptions) (Backend, error)

var (
	registryMutex sync.RWMutex
	registry      = make(map[string]Factory)
)

// Register a backend factory under the given name. Backends call this from
// their package init function.
func Register(name string, factory Factory) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("tracer: backend %q registered twice", name))
	}
	registry[name] = factory
}

// Create a backend by name.
func NewBackend(name string, opts BackendOptions) (Backend, error) {
	registryMutex.RLock()
	factory, exists := registry[name]
	registryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w %q; available backends: %v", ErrUnknownBackend, name, Backends())
	}
	return factory(opts)
}

// Get the sorted list of registered backend names.
func Backends() []string {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

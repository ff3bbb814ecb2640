package tracer

import (
	"math/rand"
	"sync"
)

// An RGBA8 texture of random values used by backends to jitter samples.
type NoiseTexture struct {
	W, H   uint32
	Texels []uint8
}

// Get the texel at (x, y) as four floats in [0, 1].
func (t *NoiseTexture) At(x, y uint32) [4]float32 {
	offset := 4 * (int(y)*int(t.W) + int(x))
	return [4]float32{
		float32(t.Texels[offset]) / 255.0,
		float32(t.Texels[offset+1]) / 255.0,
		float32(t.Texels[offset+2]) / 255.0,
		float32(t.Texels[offset+3]) / 255.0,
	}
}

// The NoiseSource interface is implemented by providers of per-dispatch
// noise textures.
type NoiseSource interface {
	// Generate a texture that matches the given dispatch shape.
	Texture(shape DispatchShape) *NoiseTexture
}

type randomNoise struct {
	sync.Mutex
	rng *rand.Rand
}

// Create a noise source backed by a seeded PRNG. Sources created with the
// same seed produce the same texture sequence.
func NewRandomNoise(seed int64) NoiseSource {
	return &randomNoise{
		rng: rand.New(rand.NewSource(seed)),
	}
}

func (n *randomNoise) Texture(shape DispatchShape) *NoiseTexture {
	tex := &NoiseTexture{
		W:      shape.W,
		H:      shape.H,
		Texels: make([]uint8, 4*shape.Size()),
	}

	n.Lock()
	n.rng.Read(tex.Texels)
	n.Unlock()

	return tex
}

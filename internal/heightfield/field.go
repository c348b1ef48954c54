// Package heightfield produces deterministic terrain heights for world
// positions.
package heightfield

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"

	"hexworld/internal/config"
)

// Field is a pure function of (seed, position). It holds no mutable state
// and may be sampled from any number of goroutines.
type Field struct {
	cfg     config.TerrainConfig
	seed    int64
	simplex opensimplex.Noise
}

func New(seed uint64, cfg config.TerrainConfig) *Field {
	f := &Field{cfg: cfg, seed: int64(seed)}
	if cfg.Noise != config.NoiseValue {
		f.simplex = opensimplex.New(f.seed)
	}
	return f
}

// Height returns the unquantized height at pos.
func (f *Field) Height(pos mgl64.Vec2) float64 {
	return f.fractalNoise(pos.X(), pos.Y()) * f.cfg.Amplitude
}

// HeightQuantized snaps Height to the nearest multiple of the configured step.
func (f *Field) HeightQuantized(pos mgl64.Vec2) float32 {
	step := f.cfg.HeightStep
	if step <= 0 {
		return float32(f.Height(pos))
	}
	return float32(math.Round(f.Height(pos)/step) * step)
}

func (f *Field) fractalNoise(x, y float64) float64 {
	frequency := f.cfg.Frequency
	amplitude := 1.0
	noiseSum := 0.0
	maxAmplitude := 0.0

	for i := 0; i < f.cfg.Octaves; i++ {
		noiseSum += f.base(x*frequency, y*frequency) * amplitude
		maxAmplitude += amplitude
		amplitude *= f.cfg.Persistence
		frequency *= f.cfg.Lacunarity
	}

	if maxAmplitude == 0 {
		return 0
	}
	return noiseSum / maxAmplitude
}

// base returns noise in [-1, 1].
func (f *Field) base(x, y float64) float64 {
	if f.simplex != nil {
		return f.simplex.Eval2(x, y)
	}
	return f.valueNoise(x, y)
}

func (f *Field) valueNoise(x, y float64) float64 {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	x1 := x0 + 1
	y1 := y0 + 1

	sx := smooth(x - float64(x0))
	sy := smooth(y - float64(y0))

	ix0 := lerp(random2D(x0, y0, f.seed), random2D(x1, y0, f.seed), sx)
	ix1 := lerp(random2D(x0, y1, f.seed), random2D(x1, y1, f.seed), sx)
	return lerp(ix0, ix1, sy)
}

func smooth(t float64) float64 {
	return t * t * (3 - 2*t)
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

func random2D(x, y int, seed int64) float64 {
	return float64(hash3(x, y, int(seed))&0xFFFF)/0x8000 - 1.0
}

func hash3(x, y, z int) uint32 {
	h := uint32(x*374761393 + y*668265263 + z*2147483647)
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

package heightfield

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"hexworld/internal/config"
)

func samplePoints() []mgl64.Vec2 {
	var pts []mgl64.Vec2
	for i := -5; i <= 5; i++ {
		for j := -5; j <= 5; j++ {
			pts = append(pts, mgl64.Vec2{float64(i)*7.3 + 0.25, float64(j)*3.1 - 0.5})
		}
	}
	return pts
}

func TestHeightIsDeterministicPerSeed(t *testing.T) {
	for _, noise := range []string{config.NoiseSimplex, config.NoiseValue} {
		t.Run(noise, func(t *testing.T) {
			cfg := config.Default().Terrain
			cfg.Noise = noise
			a := New(42, cfg)
			b := New(42, cfg)
			other := New(43, cfg)

			differs := false
			for _, p := range samplePoints() {
				if a.Height(p) != b.Height(p) {
					t.Fatalf("height at %v differs between identical fields", p)
				}
				if a.Height(p) != other.Height(p) {
					differs = true
				}
			}
			if !differs {
				t.Fatalf("expected a different seed to change at least one sample")
			}
		})
	}
}

func TestHeightStaysWithinAmplitude(t *testing.T) {
	cfg := config.Default().Terrain
	cfg.Noise = config.NoiseValue
	f := New(3, cfg)
	for _, p := range samplePoints() {
		if h := f.Height(p); math.Abs(h) > cfg.Amplitude+1e-9 {
			t.Fatalf("height %v at %v exceeds amplitude %v", h, p, cfg.Amplitude)
		}
	}
}

func TestHeightQuantizedUsesStep(t *testing.T) {
	cfg := config.Default().Terrain
	cfg.HeightStep = 0.25
	f := New(42, cfg)
	for _, p := range samplePoints() {
		q := float64(f.HeightQuantized(p))
		steps := q / cfg.HeightStep
		if math.Abs(steps-math.Round(steps)) > 1e-6 {
			t.Fatalf("quantized height %v is not a multiple of %v", q, cfg.HeightStep)
		}
		if math.Abs(q-f.Height(p)) > cfg.HeightStep/2+1e-6 {
			t.Fatalf("quantized height %v too far from %v", q, f.Height(p))
		}
	}
}

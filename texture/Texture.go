// Package texture synthesizes procedural surface textures and writes
// them to per-environment-instance image files. Concurrently running
// environment instances key their files by instance id, so instances
// sharing a filesystem namespace never clobber each other's textures.
package texture

import (
	"fmt"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/google/uuid"
	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/gomanip/utils/floatutils"
)

// Size is the side length in pixels of generated texture images
const Size int = 256

// lattice resolution of the base noise octave
const cells int = 8

// File returns the path of the texture file for one surface kind of
// one environment instance.
func File(dir, kind string, id uuid.UUID) string {
	return filepath.Join(dir, fmt.Sprintf("%v-%v.png", kind, id))
}

// CreateAndSave synthesizes a Size x Size texture tinted by color
// (RGB channels in [0, 255]) and writes it as a PNG to path,
// returning path. The only pattern currently implemented is "cloud",
// a smooth two-octave value noise; any other pattern is an error.
func CreateAndSave(path, pattern string, color [3]float64,
	src rand.Source) (string, error) {
	if pattern != "cloud" {
		return "", fmt.Errorf("createAndSave: unknown pattern %q", pattern)
	}

	noise := newValueNoise(src)
	dc := gg.NewContext(Size, Size)
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			n := noise.at(float64(x)/float64(Size),
				float64(y)/float64(Size))

			// Keep the tint dominant and the noise a soft modulation
			shade := 0.75 + 0.25*n
			dc.SetRGB255(
				int(floatutils.Clip(color[0]*shade, 0, 255)),
				int(floatutils.Clip(color[1]*shade, 0, 255)),
				int(floatutils.Clip(color[2]*shade, 0, 255)),
			)
			dc.SetPixel(x, y)
		}
	}

	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("createAndSave: %v", err)
	}
	return path, nil
}

// valueNoise is a periodic lattice of random values interpolated
// smoothly between lattice points
type valueNoise struct {
	lattice [cells][cells]float64
}

func newValueNoise(src rand.Source) *valueNoise {
	rng := rand.New(src)
	v := new(valueNoise)
	for i := 0; i < cells; i++ {
		for j := 0; j < cells; j++ {
			v.lattice[i][j] = rng.Float64()
		}
	}
	return v
}

// at evaluates two octaves of noise at (x, y) in [0, 1)^2, returning a
// value in [0, 1]
func (v *valueNoise) at(x, y float64) float64 {
	return (2*v.octave(x, y, 1) + v.octave(x, y, 2)) / 3
}

func (v *valueNoise) octave(x, y float64, frequency int) float64 {
	fx := x * float64(cells*frequency)
	fy := y * float64(cells*frequency)
	x0, y0 := int(fx), int(fy)
	tx := smoothstep(fx - float64(x0))
	ty := smoothstep(fy - float64(y0))

	v00 := v.lattice[x0%cells][y0%cells]
	v10 := v.lattice[(x0+1)%cells][y0%cells]
	v01 := v.lattice[x0%cells][(y0+1)%cells]
	v11 := v.lattice[(x0+1)%cells][(y0+1)%cells]

	top := v00 + tx*(v10-v00)
	bottom := v01 + tx*(v11-v01)
	return top + ty*(bottom-top)
}

func smoothstep(t float64) float64 {
	return t * t * (3 - 2*t)
}

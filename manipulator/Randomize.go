package manipulator

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/gomanip/arm"
	"github.com/samuelfneumann/gomanip/physics"
	"github.com/samuelfneumann/gomanip/utils/floatutils"
)

// Nominal scene appearance when the corresponding randomization axis
// is disabled
var (
	defaultGoalColor   = physics.Color{0.2, 0.2, 0.8, 1}
	defaultObjectColor = physics.Color{1, 0.3, 0.3, 1}
)

const (
	defaultGoalRadius       float64 = 0.025
	defaultObjectHalfExtent float64 = 0.03
)

// draw holds one reset's randomization choices. Draws are ephemeral:
// a fresh draw is made on every reset and nothing of it survives the
// episode.
type draw struct {
	goalRadius float64
	goalColor  physics.Color

	objHalfExtent float64
	objColor      physics.Color
	objYaw        float64

	armSpawn mgl64.Vec3
	armDesc  *physics.Description

	camera *physics.Camera
	light  *physics.Light

	woodColor [3]float64
	wallColor [3]float64
}

// drawRandomization makes this reset's random choices on the enabled
// randomization axes.
func (m *Manipulator) drawRandomization() *draw {
	d := &draw{
		goalRadius:    defaultGoalRadius,
		goalColor:     defaultGoalColor,
		objHalfExtent: defaultObjectHalfExtent,
		objColor:      defaultObjectColor,
		objYaw: distuv.Uniform{Min: 0, Max: 2 * math.Pi,
			Src: m.src}.Rand(),
	}

	if m.config.RandomizeObjects {
		d.goalRadius = distuv.Uniform{Min: 0.02, Max: 0.03,
			Src: m.src}.Rand()
		d.goalColor = uniformColor(m.src,
			[4]float64{0.1, 0.1, 0.7, 1}, [4]float64{0.3, 0.3, 1, 1})
		d.objHalfExtent = distuv.Uniform{Min: 0.025, Max: 0.04,
			Src: m.src}.Rand()
		d.objColor = uniformColor(m.src,
			[4]float64{0.7, 0.1, 0.1, 1}, [4]float64{1, 0.3, 0.3, 1})
	}

	if m.config.RandomizeArm {
		height := distuv.Normal{Mu: 0.05, Sigma: 0.02, Src: m.src}.Rand()
		d.armSpawn = mgl64.Vec3{0, 0, floatutils.Clip(height, 0.03, 0.07)}
		desc := arm.RandomDescription(m.src)
		d.armDesc = &desc
	}

	if m.config.RandomizeCamera {
		d.camera, d.light = m.drawCameraAndLight()
	}

	if m.config.RandomizeTextures {
		d.woodColor, d.wallColor = m.drawTextureColors()
	}

	return d
}

// drawCameraAndLight draws a camera pose, field of view, and lighting
// from the fixed distributions of the cosmetic randomization axis
func (m *Manipulator) drawCameraAndLight() (*physics.Camera,
	*physics.Light) {
	normal := func(mu, sigma float64) float64 {
		return distuv.Normal{Mu: mu, Sigma: sigma, Src: m.src}.Rand()
	}
	uniform := func(min, max float64) float64 {
		return distuv.Uniform{Min: min, Max: max, Src: m.src}.Rand()
	}

	camera := &physics.Camera{
		Eye:    mgl64.Vec3{normal(-1.05, 0.04), 0, normal(0.68, 0.04)},
		LookAt: mgl64.Vec3{normal(0.1, 0.02), 0, 0},
		Up:     mgl64.Vec3{-0.5, 0, 1},
		FOV:    normal(45, 2),
		Aspect: 4.0 / 3.0,
		Near:   0.01,
		Far:    2.5,
	}

	light := &physics.Light{
		Diffuse:  uniform(0.4, 0.6),
		Ambient:  uniform(0.4, 0.6),
		Specular: uniform(0.4, 0.7),
		Direction: mgl64.Vec3{
			m.awayFromZero(5, 20),
			m.awayFromZero(5, 20),
			math.Floor(uniform(70, 101)),
		},
		Color: [3]float64{
			uniform(0.9, 1), uniform(0.9, 1), uniform(0.9, 1),
		},
	}
	return camera, light
}

// awayFromZero draws an integer magnitude in [min, max] with random
// sign, keeping light directions off the vertical axis
func (m *Manipulator) awayFromZero(min, max float64) float64 {
	v := math.Floor(distuv.Uniform{Min: min, Max: max + 1,
		Src: m.src}.Rand())
	coin := distuv.Uniform{Min: 0, Max: 1, Src: m.src}
	if coin.Rand() < 0.5 {
		return -v
	}
	return v
}

// drawTextureColors draws the table (wood) and wall base colors.
// Realistic colors are normal draws around wood and wall tones;
// otherwise both come from an arbitrary green-biased uniform range.
func (m *Manipulator) drawTextureColors() ([3]float64, [3]float64) {
	if m.config.NormalTextures {
		wood := [3]float64{170, 150, 140}
		wall := [3]float64{230, 240, 250}
		for i := 0; i < 3; i++ {
			wood[i] = distuv.Normal{Mu: wood[i], Sigma: 8,
				Src: m.src}.Rand()
			wall[i] = distuv.Normal{Mu: wall[i], Sigma: 8,
				Src: m.src}.Rand()
		}
		return wood, wall
	}

	low := [3]float64{100, 100, 100}
	high := [3]float64{130, 255, 130}
	var wood, wall [3]float64
	for i := 0; i < 3; i++ {
		wood[i] = distuv.Uniform{Min: low[i], Max: high[i],
			Src: m.src}.Rand()
		wall[i] = distuv.Uniform{Min: low[i], Max: high[i],
			Src: m.src}.Rand()
	}
	return wood, wall
}

// uniformColor draws each channel uniformly between the corresponding
// channels of low and high
func uniformColor(src rand.Source, low, high [4]float64) physics.Color {
	var c physics.Color
	for i := 0; i < 4; i++ {
		c[i] = distuv.Uniform{Min: low[i], Max: high[i], Src: src}.Rand()
	}
	return c
}

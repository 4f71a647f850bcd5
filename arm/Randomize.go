package arm

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/samuelfneumann/gomanip/physics"
	"github.com/samuelfneumann/gomanip/utils/floatutils"
)

// RandomDescription draws a randomized physical description of the
// arm: per-link geometry scales around the nominal geometry and
// randomized link and finger-ring colors. Used by scene builders that
// randomize arm morphology.
func RandomDescription(src rand.Source) physics.Description {
	scale := distuv.Normal{Mu: 1, Sigma: 0.05, Src: src}
	scales := make([]float64, NumJointPoses)
	for i := range scales {
		scales[i] = floatutils.Clip(scale.Rand(), 0.9, 1.1)
	}

	linkShade := distuv.Uniform{Min: 0.05, Max: 0.2, Src: src}
	ringShade := distuv.Uniform{Min: 0.3, Max: 0.5, Src: src}

	return physics.Description{
		LinkScales: scales,
		LinkColor: physics.Color{
			linkShade.Rand(), linkShade.Rand(), linkShade.Rand(), 1,
		},
		RingColor: physics.Color{
			ringShade.Rand(), ringShade.Rand(), ringShade.Rand(), 1,
		},
	}
}

package manipulator

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// goalHeight is the height of goals resting on the table surface
const goalHeight float64 = 0.03

// FixedAirGoal is the goal returned by the fixed-goal sampler when
// airborne goals are enabled
var FixedAirGoal = [3]float64{-0.4, 0.2, 0.3}

// FixedGoalStarter samples the goal for fixed-goal episodes. With
// airborne goals enabled the goal is the constant FixedAirGoal; on the
// table it is a fixed point with small normal jitter in the horizontal
// plane. FixedGoalStarter implements environment.Starter.
type FixedGoalStarter struct {
	inAir  bool
	jitter distuv.Normal
}

// NewFixedGoalStarter returns a fixed-goal sampler drawing jitter from
// src.
func NewFixedGoalStarter(inAir bool, src rand.Source) *FixedGoalStarter {
	return &FixedGoalStarter{
		inAir:  inAir,
		jitter: distuv.Normal{Mu: 0, Sigma: 0.05, Src: src},
	}
}

// Start returns the goal for a new episode.
func (f *FixedGoalStarter) Start() *mat.VecDense {
	if f.inAir {
		return mat.NewVecDense(3, []float64{
			FixedAirGoal[0], FixedAirGoal[1], FixedAirGoal[2],
		})
	}
	return mat.NewVecDense(3, []float64{
		-0.3 + f.jitter.Rand(),
		0.2 + f.jitter.Rand(),
		goalHeight,
	})
}

// UniformGoalStarter samples goals uniformly within the table bounds,
// forcing the height to the table surface. When airborne goals are
// enabled an additional uniform vertical offset up to the table's
// upper height bound is applied to every draw: the offset was once
// gated by a tunable probability that has long been hardcoded to
// always pass, and the always-apply behavior is intentional.
// UniformGoalStarter implements environment.Starter.
type UniformGoalStarter struct {
	inAir  bool
	box    *distmv.Uniform
	height distuv.Uniform
}

// NewUniformGoalStarter returns a uniform goal sampler over the table
// bounds drawing from src.
func NewUniformGoalStarter(inAir bool, src rand.Source) *UniformGoalStarter {
	bounds := []r1.Interval{
		{Min: TableLow.X(), Max: TableHigh.X()},
		{Min: TableLow.Y(), Max: TableHigh.Y()},
		{Min: TableLow.Z(), Max: TableHigh.Z()},
	}
	return &UniformGoalStarter{
		inAir:  inAir,
		box:    distmv.NewUniform(bounds, src),
		height: distuv.Uniform{Min: 0, Max: TableHigh.Z(), Src: src},
	}
}

// Start returns the goal for a new episode.
func (u *UniformGoalStarter) Start() *mat.VecDense {
	goal := u.box.Rand(nil)
	goal[2] = goalHeight
	if u.inAir {
		goal[2] += u.height.Rand()
	}
	return mat.NewVecDense(3, goal)
}

// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	ts "github.com/samuelfneumann/gomanip/timestep"
)

// Starter implements a distribution of starting values and samples
// from that distribution. Environments use Starters to sample starting
// states, and tasks use them to sample goals.
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when and how episodes end. If the episode should
// end, End modifies the timestep so that its StepType field is
// timestep.Last and its EndType is the appropriate ending type,
// returning true.
type Ender interface {
	End(*ts.TimeStep) bool
}

// Task implements the reward scheme and goal determination for taking
// actions in some environment
type Task interface {
	Starter
	Ender
	GetReward(state, action, nextState mat.Vector) float64
	AtGoal(state mat.Matrix) bool
}

// Environment implements a simulated environment, which includes a
// Task to complete
type Environment interface {
	Task
	Reset() (ts.TimeStep, error)
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)
	RewardSpec() Spec
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
	CurrentTimeStep() ts.TimeStep
}

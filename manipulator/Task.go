package manipulator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gomanip/environment"
)

// Distance returns the Euclidean distance between a and b. The two
// vectors must have equal lengths; unequal lengths are a caller error
// and panic.
func Distance(a, b mat.Vector) float64 {
	if a.Len() != b.Len() {
		panic(fmt.Sprintf("distance: mismatched vector lengths %d and %d",
			a.Len(), b.Len()))
	}
	diff := mat.NewVecDense(a.Len(), nil)
	diff.SubVec(a, b)
	return mat.Norm(diff, 2)
}

// Reach implements the reach task: bring the tracked entity -- the
// graspable object if one exists, the gripper otherwise -- within the
// distance threshold of the goal. The embedded Starter samples episode
// goals and the embedded StepLimit ends episodes at the step cap.
//
// A Reach must be registered with a Manipulator before AtGoal can be
// used; GetReward and ComputeReward are self-contained.
type Reach struct {
	environment.Starter
	environment.StepLimit

	env        *Manipulator
	registered bool

	hasObject         bool
	rewardType        RewardType
	distanceThreshold float64
}

// NewReach returns a new Reach task with goals drawn from goals and
// episodes capped at cutoff steps.
func NewReach(goals environment.Starter, hasObject bool,
	rewardType RewardType, distanceThreshold float64,
	cutoff int) *Reach {
	return &Reach{
		Starter:           goals,
		StepLimit:         environment.NewStepLimit(cutoff),
		hasObject:         hasObject,
		rewardType:        rewardType,
		distanceThreshold: distanceThreshold,
	}
}

// register tracks the Manipulator so that AtGoal can query the current
// episode goal
func (r *Reach) register(env *Manipulator) {
	r.env = env
	r.registered = true
}

// ComputeReward returns the reward for an achieved position given a
// desired position. Sparse rewards are 3 on success and -1 otherwise;
// positive rewards are 5 on success and 0 otherwise.
func (r *Reach) ComputeReward(achieved, desired mat.Vector) float64 {
	d := Distance(achieved, desired)
	switch r.rewardType {
	case Sparse:
		if d < r.distanceThreshold {
			return 3
		}
		return -1
	case Positive:
		if d < r.distanceThreshold {
			return 5
		}
		return 0
	default:
		// Unreachable: Config.Validate rejects unknown reward types
		panic(fmt.Sprintf("computeReward: unsupported reward type %v",
			r.rewardType))
	}
}

// Success reports whether a distance between the tracked entity and
// the goal counts as success.
func (r *Reach) Success(d float64) bool {
	return d < r.distanceThreshold
}

// GetReward returns the reward of a transition. Only nextState is
// consulted: the reward depends on where the tracked entity ended up
// relative to the goal, both of which the state vector carries.
func (r *Reach) GetReward(state, action, nextState mat.Vector) float64 {
	next, ok := nextState.(*mat.VecDense)
	if !ok || next.Len() != StateDim {
		panic(fmt.Sprintf("getReward: nextState must be a %d-element "+
			"state vector", StateDim))
	}

	goal := next.SliceVec(stateGoal, stateGoal+3)
	achieved := next.SliceVec(stateGripPos, stateGripPos+3)
	if r.hasObject {
		achieved = next.SliceVec(stateObjPos, stateObjPos+3)
	}
	return r.ComputeReward(achieved, goal)
}

// AtGoal returns whether the (x, y, z) position in state is within the
// distance threshold of the current episode goal.
func (r *Reach) AtGoal(state mat.Matrix) bool {
	if !r.registered {
		panic("atGoal: must register with a Manipulator first")
	}
	rows, cols := state.Dims()
	if cols != 1 || rows != 3 {
		panic("atGoal: argument state should be (x, y, z) coordinates")
	}

	pos := mat.NewVecDense(3, []float64{
		state.At(0, 0),
		state.At(1, 0),
		state.At(2, 0),
	})
	goal := mat.NewVecDense(3, []float64{
		r.env.goal.X(),
		r.env.goal.Y(),
		r.env.goal.Z(),
	})
	return r.Success(Distance(pos, goal))
}

package manipulator

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"
)

// StateDim is the length of the state vector; AuxDim the length of the
// auxiliary vector.
const (
	StateDim int = 22
	AuxDim   int = 16
)

// Field offsets of the state vector. The order is fixed: it is both
// the observation layout and the explicit-state reset format.
const (
	stateGripPos        int = 0  // gripper position (3)
	stateGoal           int = 3  // goal position (3)
	stateGripperJoints  int = 6  // finger joint positions (2)
	stateObjPos         int = 8  // object position (3)
	stateObjRel         int = 11 // object relative to gripper (3)
	stateArmGoalPos     int = 14 // actuator's internal goal position (3)
	stateArmGoalGripper int = 17 // actuator's internal goal gripper (1)
	stateGripVel        int = 18 // gripper linear velocity (3)
	stateGrasping       int = 21 // grasping flag (1)
)

// explicitState is the decoded form of an externally supplied
// 22-element reset state
type explicitState struct {
	goal           mgl64.Vec3
	objPos         mgl64.Vec3
	armGoalPos     mgl64.Vec3
	armGoalGripper float64
	shouldGrasp    bool
}

// decodeState decodes a 22-element explicit reset state. A state of
// the wrong shape is a caller error and panics.
func decodeState(state *mat.VecDense) explicitState {
	if state.Len() != StateDim {
		panic(fmt.Sprintf("decodeState: expected a %d-element state, "+
			"got %d elements", StateDim, state.Len()))
	}
	return explicitState{
		goal:           vec3At(state, stateGoal),
		objPos:         vec3At(state, stateObjPos),
		armGoalPos:     vec3At(state, stateArmGoalPos),
		armGoalGripper: state.AtVec(stateArmGoalGripper),
		shouldGrasp:    state.AtVec(stateGrasping) > 0.5,
	}
}

// vec3At reads three consecutive elements of v starting at offset
func vec3At(v *mat.VecDense, offset int) mgl64.Vec3 {
	return mgl64.Vec3{
		v.AtVec(offset),
		v.AtVec(offset + 1),
		v.AtVec(offset + 2),
	}
}

// putVec3 writes the three components of p into backing starting at
// offset
func putVec3(backing []float64, offset int, p mgl64.Vec3) {
	backing[offset] = p.X()
	backing[offset+1] = p.Y()
	backing[offset+2] = p.Z()
}

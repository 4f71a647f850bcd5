// Package arm declares the actuator contract the episode controller
// consumes, together with a simulated controller implementation. The
// actuator translates abstract translation actions into joint-level
// control of a multi-joint arm with a two-finger gripper, and exposes
// grasp and joint state.
package arm

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/samuelfneumann/gomanip/physics"
)

// Body-table layout of the arm. The wrist link carries the gripper;
// the two finger joints report the gripper opening.
const (
	GripperLink  int = 6
	FingerJointA int = 7
	FingerJointB int = 9

	NumLinks  int = 11
	NumJoints int = 11 // index 0 is the fixed base joint

	// NumJointPoses is the number of actuated joints reported by
	// JointPoses: six arm joints, two fingers, two fingertips
	NumJointPoses int = 10
)

// Actions are 4-dimensional: three translation components and one
// reserved component.
const NumActions int = 4

// Controller is the actuator surface the episode controller consumes.
// A Controller is constructed for one scene and is invalid after the
// scene is torn down.
type Controller interface {
	// ApplyAction shifts the controller's internal goal position by
	// the first three action components. The fourth component is
	// reserved and ignored.
	ApplyAction(action []float64) error

	// StepSimulation advances the controller by one engine substep:
	// the gripper tracks the goal position, the fingers track the
	// goal gripper value, and grasp state is updated.
	StepSimulation() error

	// IsGrasping reports whether the graspable object is currently
	// held.
	IsGrasping() bool

	// SetGraspableObject registers the body the gripper may pick up.
	// If grasping is true the object starts out held, used when a
	// scene is rebuilt from an explicit state.
	SetGraspableObject(b physics.BodyID, grasping bool) error

	// JointPoses reports the positions of the NumJointPoses actuated
	// joints.
	JointPoses() ([]float64, error)

	// InitGripper opens the fingers and publishes the initial gripper
	// link state. It must be called once, after scene construction.
	InitGripper() error

	GoalPosition() mgl64.Vec3
	SetGoalPosition(mgl64.Vec3)
	GoalGripper() float64
	SetGoalGripper(float64)

	// Body returns the arm's handle in the engine body table.
	Body() physics.BodyID
}

package arm

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/samuelfneumann/gomanip/physics"
	"github.com/samuelfneumann/gomanip/utils/floatutils"
)

// Motion constants of the simulated controller
const (
	// GripperStep is the largest gripper displacement per engine
	// substep
	GripperStep float64 = 0.01

	// FingerStep is the largest finger joint displacement per engine
	// substep
	FingerStep float64 = 0.1

	// GripperOpen and GripperClosed are the finger joint values at the
	// two ends of the gripper's travel
	GripperOpen   float64 = 0.0
	GripperClosed float64 = 0.7

	// GraspRange is the distance within which the fingers can hold the
	// graspable object
	GraspRange float64 = 0.05

	// graspedOffset is how far below the wrist a held object hangs
	graspedOffset float64 = 0.02
)

// homeOffset is the gripper's initial position relative to the arm
// spawn position
var homeOffset = mgl64.Vec3{-0.25, 0, 0.25}

// Sim is a simulated Controller. It drives the gripper toward an
// internal goal position with bounded speed, opens and closes the
// fingers toward an internal goal gripper value, and holds a
// registered object while the closed fingers are within grasp range.
// Sim satisfies the Controller interface.
type Sim struct {
	eng  physics.Engine
	body physics.BodyID

	reachLow  mgl64.Vec3
	reachHigh mgl64.Vec3

	goalPosition mgl64.Vec3
	goalGripper  float64

	graspable physics.BodyID
	grasping  bool
}

// NewSim creates the arm body in the engine and returns a controller
// for it. The description may be nil, in which case the nominal arm
// geometry is used. The reach bounds delimit the region the gripper
// goal position may occupy.
func NewSim(eng physics.Engine, desc *physics.Description,
	spawnPos, reachLow, reachHigh mgl64.Vec3) (*Sim, error) {
	d := DefaultDescription()
	if desc != nil {
		d = *desc
	}

	body, err := eng.CreateArticulated(d, spawnPos, NumLinks, NumJoints)
	if err != nil {
		return nil, fmt.Errorf("newSim: %v", err)
	}

	s := &Sim{
		eng:          eng,
		body:         body,
		reachLow:     reachLow,
		reachHigh:    reachHigh,
		goalPosition: spawnPos.Add(homeOffset),
		goalGripper:  GripperOpen,
	}

	// Lay the links out from the base toward the gripper home pose
	grip := s.goalPosition
	for i := 0; i <= GripperLink; i++ {
		t := float64(i) / float64(GripperLink)
		pos := spawnPos.Add(grip.Sub(spawnPos).Mul(t))
		if err := eng.SetLinkState(body, i, pos, mgl64.Vec3{}); err != nil {
			return nil, fmt.Errorf("newSim: %v", err)
		}
	}
	for i := GripperLink + 1; i < NumLinks; i++ {
		if err := eng.SetLinkState(body, i, grip, mgl64.Vec3{}); err != nil {
			return nil, fmt.Errorf("newSim: %v", err)
		}
	}
	if err := s.setArmJoints(grip, spawnPos); err != nil {
		return nil, fmt.Errorf("newSim: %v", err)
	}

	return s, nil
}

// DefaultDescription returns the nominal arm geometry and coloring.
func DefaultDescription() physics.Description {
	scales := make([]float64, NumJointPoses)
	for i := range scales {
		scales[i] = 1
	}
	return physics.Description{
		LinkScales: scales,
		LinkColor:  physics.Color{0.1, 0.1, 0.1, 1},
		RingColor:  physics.Color{0.4, 0.4, 0.4, 1},
	}
}

// ApplyAction shifts the goal position by the first three action
// components, clipped to the reach region. The fourth component is
// reserved and ignored.
func (s *Sim) ApplyAction(action []float64) error {
	if len(action) != NumActions {
		panic(fmt.Sprintf("applyAction: expected %d action dimensions, "+
			"got %d", NumActions, len(action)))
	}
	for i := 0; i < 3; i++ {
		s.goalPosition[i] = floatutils.Clip(s.goalPosition[i]+action[i],
			s.reachLow[i], s.reachHigh[i])
	}
	return nil
}

// StepSimulation advances the controller by one engine substep.
func (s *Sim) StepSimulation() error {
	pos, _, err := s.eng.LinkState(s.body, GripperLink)
	if err != nil {
		return fmt.Errorf("stepSimulation: %v", err)
	}

	// Track the goal position with bounded speed
	delta := s.goalPosition.Sub(pos)
	if l := delta.Len(); l > GripperStep {
		delta = delta.Mul(GripperStep / l)
	}
	next := pos.Add(delta)
	vel := delta.Mul(1 / physics.SubstepDuration)
	if err := s.eng.SetLinkState(s.body, GripperLink, next, vel); err != nil {
		return fmt.Errorf("stepSimulation: %v", err)
	}
	for i := GripperLink + 1; i < NumLinks; i++ {
		if err := s.eng.SetLinkState(s.body, i, next, vel); err != nil {
			return fmt.Errorf("stepSimulation: %v", err)
		}
	}

	if err := s.updateGrasp(next, vel); err != nil {
		return fmt.Errorf("stepSimulation: %v", err)
	}
	if err := s.stepFingers(); err != nil {
		return fmt.Errorf("stepSimulation: %v", err)
	}

	base, _, err := s.eng.BasePose(s.body)
	if err != nil {
		return fmt.Errorf("stepSimulation: %v", err)
	}
	if err := s.setArmJoints(next, base); err != nil {
		return fmt.Errorf("stepSimulation: %v", err)
	}
	return nil
}

// updateGrasp decides the goal gripper value from the object distance
// and carries the object while it is held
func (s *Sim) updateGrasp(grip, vel mgl64.Vec3) error {
	if !s.graspable.Valid() {
		return nil
	}
	objPos, objOrn, err := s.eng.BasePose(s.graspable)
	if err != nil {
		return err
	}

	near := objPos.Sub(grip).Len() < GraspRange
	if near {
		s.goalGripper = GripperClosed
	} else {
		s.goalGripper = GripperOpen
		s.grasping = false
	}

	closed, err := s.eng.JointPosition(s.body, FingerJointA)
	if err != nil {
		return err
	}
	if near && closed > GripperClosed/2 {
		s.grasping = true
	}

	if s.grasping {
		held := grip.Sub(mgl64.Vec3{0, 0, graspedOffset})
		if err := s.eng.SetBasePose(s.graspable, held, objOrn); err != nil {
			return err
		}
	}
	return nil
}

// stepFingers moves both finger joints toward the goal gripper value
func (s *Sim) stepFingers() error {
	for _, joint := range []int{FingerJointA, FingerJointB} {
		value, err := s.eng.JointPosition(s.body, joint)
		if err != nil {
			return err
		}
		step := floatutils.Clip(s.goalGripper-value, -FingerStep, FingerStep)
		if err := s.eng.SetJointPosition(s.body, joint, value+step); err != nil {
			return err
		}
	}
	return nil
}

// setArmJoints publishes plausible joint angles for the six arm joints
// from the gripper pose. The controller is kinematic, so these are
// diagnostic values, not solved inverse kinematics.
func (s *Sim) setArmJoints(grip, base mgl64.Vec3) error {
	offset := grip.Sub(base)
	angles := [6]float64{
		math.Atan2(offset.Y(), offset.X()),
		math.Atan2(offset.Z(), math.Hypot(offset.X(), offset.Y())),
		offset.Len(),
		offset.X(),
		offset.Y(),
		offset.Z(),
	}
	for i, a := range angles {
		if err := s.eng.SetJointPosition(s.body, i+1, a); err != nil {
			return err
		}
	}
	return nil
}

// IsGrasping reports whether the graspable object is currently held.
func (s *Sim) IsGrasping() bool {
	return s.grasping
}

// SetGraspableObject registers the body the gripper may pick up. If
// grasping is true the object starts out held.
func (s *Sim) SetGraspableObject(b physics.BodyID, grasping bool) error {
	s.graspable = b
	s.grasping = grasping
	if grasping {
		s.goalGripper = GripperClosed
		for _, joint := range []int{FingerJointA, FingerJointB} {
			err := s.eng.SetJointPosition(s.body, joint, GripperClosed)
			if err != nil {
				return fmt.Errorf("setGraspableObject: %v", err)
			}
		}
	}
	return nil
}

// JointPoses reports the positions of the ten actuated joints.
func (s *Sim) JointPoses() ([]float64, error) {
	poses := make([]float64, NumJointPoses)
	for i := range poses {
		value, err := s.eng.JointPosition(s.body, i+1)
		if err != nil {
			return nil, fmt.Errorf("jointPoses: %v", err)
		}
		poses[i] = value
	}
	return poses, nil
}

// InitGripper opens the fingers and publishes the initial gripper link
// state. Call once, after the scene is built.
func (s *Sim) InitGripper() error {
	if !s.grasping {
		s.goalGripper = GripperOpen
		for _, joint := range []int{FingerJointA, FingerJointB} {
			err := s.eng.SetJointPosition(s.body, joint, GripperOpen)
			if err != nil {
				return fmt.Errorf("initGripper: %v", err)
			}
		}
	}
	return nil
}

// GoalPosition returns the controller's internal target position.
func (s *Sim) GoalPosition() mgl64.Vec3 {
	return s.goalPosition
}

// SetGoalPosition overwrites the controller's internal target
// position, used when rebuilding a scene from an explicit state.
func (s *Sim) SetGoalPosition(p mgl64.Vec3) {
	s.goalPosition = p
}

// GoalGripper returns the controller's internal target gripper value.
func (s *Sim) GoalGripper() float64 {
	return s.goalGripper
}

// SetGoalGripper overwrites the controller's internal target gripper
// value.
func (s *Sim) SetGoalGripper(g float64) {
	s.goalGripper = g
}

// Body returns the arm's handle in the engine body table.
func (s *Sim) Body() physics.BodyID {
	return s.body
}

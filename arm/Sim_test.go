package arm_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/samuelfneumann/gomanip/arm"
	"github.com/samuelfneumann/gomanip/physics/solid"
)

var (
	testSpawn     = mgl64.Vec3{0, 0, 0.05}
	testReachLow  = mgl64.Vec3{-1, -1, 0.05}
	testReachHigh = mgl64.Vec3{1, 1, 1}
)

func newSim(t *testing.T) (*arm.Sim, *solid.Engine) {
	t.Helper()
	eng := solid.New()
	s, err := arm.NewSim(eng, nil, testSpawn, testReachLow, testReachHigh)
	if err != nil {
		t.Fatalf("could not create controller: %v", err)
	}
	return s, eng
}

func TestApplyActionClipsToReach(t *testing.T) {
	s, _ := newSim(t)

	if err := s.ApplyAction([]float64{10, 10, 10, 0}); err != nil {
		t.Fatal(err)
	}
	if s.GoalPosition() != testReachHigh {
		t.Errorf("goal should clip to the upper reach bound, got %v",
			s.GoalPosition())
	}

	if err := s.ApplyAction([]float64{-10, -10, -10, 0}); err != nil {
		t.Fatal(err)
	}
	if s.GoalPosition() != testReachLow {
		t.Errorf("goal should clip to the lower reach bound, got %v",
			s.GoalPosition())
	}
}

func TestApplyActionRejectsWrongShape(t *testing.T) {
	s, _ := newSim(t)

	defer func() {
		if recover() == nil {
			t.Error("an action with the wrong shape should panic")
		}
	}()
	s.ApplyAction([]float64{1, 2, 3})
}

func TestGripperTracksGoal(t *testing.T) {
	s, eng := newSim(t)

	goal := mgl64.Vec3{-0.2, 0.1, 0.3}
	s.SetGoalPosition(goal)
	for i := 0; i < 500; i++ {
		if err := s.StepSimulation(); err != nil {
			t.Fatal(err)
		}
	}

	pos, _, err := eng.LinkState(s.Body(), arm.GripperLink)
	if err != nil {
		t.Fatal(err)
	}
	if d := pos.Sub(goal).Len(); d > 1e-9 {
		t.Errorf("gripper should converge on its goal, still %v away", d)
	}
}

func TestGripperSpeedBounded(t *testing.T) {
	s, eng := newSim(t)

	before, _, err := eng.LinkState(s.Body(), arm.GripperLink)
	if err != nil {
		t.Fatal(err)
	}
	s.SetGoalPosition(mgl64.Vec3{0.5, 0.5, 0.5})
	if err := s.StepSimulation(); err != nil {
		t.Fatal(err)
	}
	after, _, err := eng.LinkState(s.Body(), arm.GripperLink)
	if err != nil {
		t.Fatal(err)
	}

	if d := after.Sub(before).Len(); d > arm.GripperStep+1e-12 {
		t.Errorf("gripper moved %v in one substep, limit is %v", d,
			arm.GripperStep)
	}
}

func TestGraspCarriesObject(t *testing.T) {
	s, eng := newSim(t)

	// Place the object within grasp range of the gripper's home pose
	home := s.GoalPosition()
	objPos := home.Sub(mgl64.Vec3{0, 0, 0.02})
	obj, err := eng.CreateBox(mgl64.Vec3{0.03, 0.03, 0.03}, 0.3, objPos,
		mgl64.QuatIdent())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SetGraspableObject(obj, false); err != nil {
		t.Fatal(err)
	}
	if err := s.InitGripper(); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 20; i++ {
		if err := s.StepSimulation(); err != nil {
			t.Fatal(err)
		}
	}
	if !s.IsGrasping() {
		t.Fatal("fingers closed on a nearby object should grasp it")
	}

	// The held object follows the gripper
	s.SetGoalPosition(mgl64.Vec3{-0.1, 0.2, 0.4})
	for i := 0; i < 500; i++ {
		if err := s.StepSimulation(); err != nil {
			t.Fatal(err)
		}
	}
	if !s.IsGrasping() {
		t.Fatal("the object should still be held after moving")
	}

	grip, _, err := eng.LinkState(s.Body(), arm.GripperLink)
	if err != nil {
		t.Fatal(err)
	}
	carried, _, err := eng.BasePose(obj)
	if err != nil {
		t.Fatal(err)
	}
	want := grip.Sub(mgl64.Vec3{0, 0, 0.02})
	if d := carried.Sub(want).Len(); d > 1e-9 {
		t.Errorf("held object should hang below the gripper, off by %v", d)
	}
}

func TestJointPoses(t *testing.T) {
	s, _ := newSim(t)

	poses, err := s.JointPoses()
	if err != nil {
		t.Fatal(err)
	}
	if len(poses) != arm.NumJointPoses {
		t.Fatalf("expected %d joint poses, got %d", arm.NumJointPoses,
			len(poses))
	}
	for i, p := range poses {
		if math.IsNaN(p) {
			t.Errorf("joint pose %d is NaN", i)
		}
	}
}

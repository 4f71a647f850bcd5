package manipulator_test

import (
	"testing"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/gomanip/manipulator"
)

func TestFixedGoalStarterInAir(t *testing.T) {
	starter := manipulator.NewFixedGoalStarter(true, rand.NewSource(1))

	for i := 0; i < 10; i++ {
		goal := starter.Start()
		for j := 0; j < 3; j++ {
			if goal.AtVec(j) != manipulator.FixedAirGoal[j] {
				t.Fatalf("airborne fixed goal should always be %v, got "+
					"(%v, %v, %v)", manipulator.FixedAirGoal,
					goal.AtVec(0), goal.AtVec(1), goal.AtVec(2))
			}
		}
	}
}

func TestFixedGoalStarterOnTable(t *testing.T) {
	starter := manipulator.NewFixedGoalStarter(false, rand.NewSource(1))

	for i := 0; i < 100; i++ {
		goal := starter.Start()
		if goal.AtVec(2) != 0.03 {
			t.Fatalf("table goal height should be 0.03, got %v",
				goal.AtVec(2))
		}

		// Jittered around (-0.3, 0.2) with sigma 0.05
		if x := goal.AtVec(0); x < -0.6 || x > 0 {
			t.Fatalf("goal x %v implausibly far from -0.3", x)
		}
		if y := goal.AtVec(1); y < -0.1 || y > 0.5 {
			t.Fatalf("goal y %v implausibly far from 0.2", y)
		}
	}
}

func TestUniformGoalStarterOnTable(t *testing.T) {
	starter := manipulator.NewUniformGoalStarter(false, rand.NewSource(1))

	for i := 0; i < 100; i++ {
		goal := starter.Start()
		if x := goal.AtVec(0); x < manipulator.TableLow.X() ||
			x > manipulator.TableHigh.X() {
			t.Fatalf("goal x %v outside table bounds", x)
		}
		if y := goal.AtVec(1); y < manipulator.TableLow.Y() ||
			y > manipulator.TableHigh.Y() {
			t.Fatalf("goal y %v outside table bounds", y)
		}
		if goal.AtVec(2) != 0.03 {
			t.Fatalf("table goal height should be 0.03, got %v",
				goal.AtVec(2))
		}
	}
}

func TestUniformGoalStarterInAir(t *testing.T) {
	starter := manipulator.NewUniformGoalStarter(true, rand.NewSource(1))

	sawRaised := false
	for i := 0; i < 100; i++ {
		goal := starter.Start()
		z := goal.AtVec(2)
		if z < 0.03 || z > 0.03+manipulator.TableHigh.Z() {
			t.Fatalf("airborne goal height %v outside [0.03, %v]", z,
				0.03+manipulator.TableHigh.Z())
		}
		if z > 0.04 {
			sawRaised = true
		}
	}
	if !sawRaised {
		t.Error("airborne goals should be lifted off the table surface")
	}
}

package manipulator_test

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/gomanip/manipulator"
	"github.com/samuelfneumann/gomanip/physics/solid"
	ts "github.com/samuelfneumann/gomanip/timestep"
)

func newEnv(t *testing.T, config manipulator.Config,
	seed uint64) (*manipulator.Manipulator, ts.TimeStep) {
	t.Helper()
	env, step, err := manipulator.New(config, solid.New(), 0.99, seed, nil)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}
	return env, step
}

func TestNew(t *testing.T) {
	env, step, err := manipulator.New(manipulator.NewConfig(), solid.New(),
		0.99, 123, nil)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}
	if env == nil {
		t.Fatal("new: environment should not be nil if err is nil")
	}

	if !step.First() {
		t.Error("first timestep should have step type First")
	}
	if step.Observation.Len() != manipulator.StateDim {
		t.Errorf("expected a %d-element observation, got %d",
			manipulator.StateDim, step.Observation.Len())
	}

	// The default configuration uses the fixed airborne goal
	for i := 0; i < 3; i++ {
		if step.Observation.AtVec(3+i) != manipulator.FixedAirGoal[i] {
			t.Errorf("goal component %d: expected %v, got %v", i,
				manipulator.FixedAirGoal[i], step.Observation.AtVec(3+i))
		}
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	config := manipulator.NewConfig()
	config.RewardType = manipulator.RewardType(99)
	if _, _, err := manipulator.New(config, solid.New(), 0.99, 123,
		nil); err == nil {
		t.Error("an invalid configuration should be rejected")
	}
}

// Every reset must place the object at least the minimum distance from
// the goal so that no episode starts solved.
func TestObjectGoalSeparation(t *testing.T) {
	config := manipulator.NewConfig()
	config.TargetInTheAir = false
	env, _ := newEnv(t, config, 42)

	for i := 0; i < 25; i++ {
		state, err := env.GetState()
		if err != nil {
			t.Fatalf("reset %d: %v", i, err)
		}
		goal := state.SliceVec(3, 6)
		obj := state.SliceVec(8, 11)
		if d := manipulator.Distance(obj, goal); d <
			manipulator.MinGoalObjectDistance {
			t.Errorf("reset %d: object only %v from goal", i, d)
		}

		if _, err := env.Reset(); err != nil {
			t.Fatalf("reset %d: %v", i, err)
		}
	}
}

// The fourth action component is reserved: two trajectories whose
// actions differ only there must be identical.
func TestFourthActionComponentIgnored(t *testing.T) {
	config := manipulator.NewConfig()
	envA, _ := newEnv(t, config, 7)
	envB, _ := newEnv(t, config, 7)

	actionA := mat.NewVecDense(4, []float64{0.5, -0.3, 0.2, 0.9})
	actionB := mat.NewVecDense(4, []float64{0.5, -0.3, 0.2, -0.9})

	for i := 0; i < 5; i++ {
		stepA, _, err := envA.Step(actionA)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		stepB, _, err := envB.Step(actionB)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if !mat.Equal(stepA.Observation, stepB.Observation) {
			t.Fatalf("step %d: observations diverged on the reserved "+
				"action component", i)
		}
	}
}

func TestStepRejectsWrongActionShape(t *testing.T) {
	env, _ := newEnv(t, manipulator.NewConfig(), 1)

	defer func() {
		if recover() == nil {
			t.Error("an action with the wrong shape should panic")
		}
	}()
	env.Step(mat.NewVecDense(3, nil))
}

func TestEpisodeTimeout(t *testing.T) {
	config := manipulator.NewConfig()
	config.MaxSteps = 5
	env, _ := newEnv(t, config, 11)

	action := mat.NewVecDense(4, nil)
	var step ts.TimeStep
	var last bool
	var err error
	for i := 0; i < config.MaxSteps; i++ {
		step, last, err = env.Step(action)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if i < config.MaxSteps-1 && last {
			t.Fatalf("episode ended early at step %d", i)
		}
	}
	if !last || !step.Last() {
		t.Fatal("episode should end at the step limit")
	}
	if step.End() != ts.Timeout {
		t.Errorf("expected end type Timeout, got %v", step.End())
	}
}

// Resetting from a previously observed state must reproduce the goal,
// object position, and actuator goals of that state.
func TestResetFromState(t *testing.T) {
	env, _ := newEnv(t, manipulator.NewConfig(), 99)

	recorded, err := env.GetState()
	if err != nil {
		t.Fatal(err)
	}

	// Wander off so the replayed reset has something to undo
	action := mat.NewVecDense(4, []float64{1, 1, 1, 0})
	for i := 0; i < 3; i++ {
		if _, _, err := env.Step(action); err != nil {
			t.Fatal(err)
		}
	}

	step, err := env.ResetFromState(recorded)
	if err != nil {
		t.Fatal(err)
	}
	if !step.First() {
		t.Error("an explicit-state reset should start a new episode")
	}

	replayed, err := env.GetState()
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range [][2]int{{3, 6}, {8, 11}, {14, 18}} {
		for i := r[0]; i < r[1]; i++ {
			if replayed.AtVec(i) != recorded.AtVec(i) {
				t.Errorf("state element %d: expected %v, got %v", i,
					recorded.AtVec(i), replayed.AtVec(i))
			}
		}
	}
}

func TestResetFromStateRejectsWrongShape(t *testing.T) {
	env, _ := newEnv(t, manipulator.NewConfig(), 1)

	defer func() {
		if recover() == nil {
			t.Error("an explicit state of the wrong shape should panic")
		}
	}()
	env.ResetFromState(mat.NewVecDense(manipulator.StateDim-1, nil))
}

func TestSnapshotRoundTrip(t *testing.T) {
	env, _ := newEnv(t, manipulator.NewConfig(), 3)
	path := filepath.Join(t.TempDir(), "episode.state")

	stored, err := env.GetState()
	if err != nil {
		t.Fatal(err)
	}
	if err := env.StoreState(path); err != nil {
		t.Fatal(err)
	}

	// Intervening resets must not leak into the restored episode
	if _, err := env.Reset(); err != nil {
		t.Fatal(err)
	}

	if _, err := env.ResetFromSnapshot(nil, path); err != nil {
		t.Fatal(err)
	}
	restored, err := env.GetState()
	if err != nil {
		t.Fatal(err)
	}
	for i := 8; i < 11; i++ {
		if restored.AtVec(i) != stored.AtVec(i) {
			t.Errorf("object position element %d: expected %v, got %v",
				i, stored.AtVec(i), restored.AtVec(i))
		}
	}
}

// A failed snapshot restore is recoverable: the error is identifiable,
// no episode is live, and a plain reset brings the environment back.
func TestSnapshotRestoreFailure(t *testing.T) {
	env, _ := newEnv(t, manipulator.NewConfig(), 3)
	path := filepath.Join(t.TempDir(), "missing.state")

	_, err := env.ResetFromSnapshot(nil, path)
	if err == nil {
		t.Fatal("restoring a missing snapshot should fail")
	}
	if !errors.Is(err, manipulator.ErrSnapshotRestore) {
		t.Errorf("expected a snapshot restore error, got %v", err)
	}

	if _, _, err := env.Step(mat.NewVecDense(4, nil)); err == nil {
		t.Error("stepping with no live episode should fail")
	}

	if _, err := env.Reset(); err != nil {
		t.Fatalf("a plain reset should recover the environment: %v", err)
	}
	if _, _, err := env.Step(mat.NewVecDense(4, nil)); err != nil {
		t.Errorf("stepping after recovery should work: %v", err)
	}
}

func TestGetAux(t *testing.T) {
	env, _ := newEnv(t, manipulator.NewConfig(), 5)

	aux, err := env.GetAux()
	if err != nil {
		t.Fatal(err)
	}
	if aux.Len() != manipulator.AuxDim {
		t.Errorf("expected a %d-element auxiliary vector, got %d",
			manipulator.AuxDim, aux.Len())
	}
}

func TestSpecShapes(t *testing.T) {
	env, _ := newEnv(t, manipulator.NewConfig(), 5)

	if n := env.ActionSpec().Shape.Len(); n != 4 {
		t.Errorf("expected 4 action dimensions, got %d", n)
	}
	if n := env.ObservationSpec().Shape.Len(); n != manipulator.StateDim {
		t.Errorf("expected %d observation dimensions, got %d",
			manipulator.StateDim, n)
	}
	if n := env.AuxSpec().Shape.Len(); n != manipulator.AuxDim {
		t.Errorf("expected %d auxiliary dimensions, got %d",
			manipulator.AuxDim, n)
	}

	spec := env.ActionSpec()
	for i := 0; i < spec.Shape.Len(); i++ {
		if spec.LowerBound.AtVec(i) != -1 || spec.UpperBound.AtVec(i) != 1 {
			t.Errorf("action dimension %d should be bounded by [-1, 1]", i)
		}
	}
}

// Reset and Step must deliver observations of exactly the shape the
// observation spec declares, in every observation mode.
func TestObservationMatchesSpec(t *testing.T) {
	modes := []manipulator.ObservationType{
		manipulator.LowDim,
		manipulator.Pixels,
		manipulator.PixelsDepth,
		manipulator.Composed,
	}

	for _, mode := range modes {
		config := manipulator.NewConfig()
		config.ObservationType = mode
		env, step := newEnv(t, config, 17)

		declared := env.ObservationSpec().Shape.Len()
		if step.Observation.Len() != declared {
			t.Errorf("mode %v: spec declares %d dims but the reset "+
				"observation has %d", mode, declared,
				step.Observation.Len())
		}

		next, _, err := env.Step(mat.NewVecDense(4, nil))
		if err != nil {
			t.Fatalf("mode %v: %v", mode, err)
		}
		if next.Observation.Len() != declared {
			t.Errorf("mode %v: spec declares %d dims but the step "+
				"observation has %d", mode, declared,
				next.Observation.Len())
		}
	}
}

// The composed observation is the state vector followed by the
// flattened pixels, and its spec bounds each section accordingly.
func TestComposedObservation(t *testing.T) {
	config := manipulator.NewConfig()
	config.ObservationType = manipulator.Composed
	env, step := newEnv(t, config, 17)

	state, err := env.GetState()
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < manipulator.StateDim; i++ {
		if step.Observation.AtVec(i) != state.AtVec(i) {
			t.Fatalf("composed element %d should carry the state "+
				"vector, got %v want %v", i, step.Observation.AtVec(i),
				state.AtVec(i))
		}
	}
	for i := manipulator.StateDim; i < step.Observation.Len(); i++ {
		if v := step.Observation.AtVec(i); v < 0 || v > 255 {
			t.Fatalf("composed pixel element %d outside [0, 255]: %v",
				i, v)
		}
	}

	spec := env.ObservationSpec()
	if !math.IsInf(spec.LowerBound.AtVec(0), -1) ||
		!math.IsInf(spec.UpperBound.AtVec(0), 1) {
		t.Error("state slots of the composed spec should be unbounded")
	}
	low := spec.LowerBound.AtVec(manipulator.StateDim)
	high := spec.UpperBound.AtVec(manipulator.StateDim)
	if low != 0 || high != 255 {
		t.Errorf("pixel slots of the composed spec should be bounded "+
			"[0, 255], got [%v, %v]", low, high)
	}
}

func TestObservePixels(t *testing.T) {
	config := manipulator.NewConfig()
	config.ObservationType = manipulator.Pixels
	env, _ := newEnv(t, config, 13)

	obs, err := env.Observe()
	if err != nil {
		t.Fatal(err)
	}
	if obs.Pixels == nil {
		t.Fatal("pixel observations should carry a pixel tensor")
	}
	shape := obs.Pixels.Shape()
	expected := []int{manipulator.FrameHeight, manipulator.FrameWidth, 3}
	for i, dim := range expected {
		if shape[i] != dim {
			t.Errorf("pixel dimension %d: expected %d, got %d", i, dim,
				shape[i])
		}
	}
}

package manipulator

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/samuelfneumann/gomanip/arm"
	"github.com/samuelfneumann/gomanip/environment"
	"github.com/samuelfneumann/gomanip/physics"
	ts "github.com/samuelfneumann/gomanip/timestep"
	"github.com/samuelfneumann/gomanip/utils/floatutils"
)

// ErrSnapshotRestore marks a reset that failed because the engine
// could not restore a snapshot. The failure is recoverable: the caller
// retries the reset, typically without the snapshot.
var ErrSnapshotRestore = errors.New("snapshot restore failed")

// Manipulator is the episodic manipulation environment. It owns one
// physics engine for its lifetime, rebuilding the engine's scene from
// scratch on every reset, and satisfies environment.Environment.
//
// A Manipulator is not safe for concurrent use: every operation is a
// blocking call into the engine and must complete before the next
// begins. Independent instances may run in separate processes; their
// only shared resource is the texture directory, which per-instance
// file naming disambiguates.
type Manipulator struct {
	*Reach

	config   Config
	eng      physics.Engine
	discount float64

	src    rand.Source
	id     uuid.UUID
	tmpDir string
	log    *zap.SugaredLogger

	// Episode state, replaced wholesale by each reset
	ctrl  arm.Controller
	scene *scene
	goal  mgl64.Vec3
	ready bool

	originalObjPos  mgl64.Vec3
	originalGoalPos mgl64.Vec3
	originalGripPos mgl64.Vec3

	currentTimeStep ts.TimeStep
}

// New validates the configuration, constructs a Manipulator driving
// eng, and resets it to its first episode. The logger may be nil, in
// which case nothing is logged. All randomness derives from seed.
func New(config Config, eng physics.Engine, discount float64,
	seed uint64, logger *zap.Logger) (*Manipulator, ts.TimeStep, error) {
	if err := config.Validate(); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newManipulator: %v", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var goals environment.Starter
	if config.FixedGoal {
		goals = NewFixedGoalStarter(config.TargetInTheAir,
			rand.NewSource(seed))
	} else {
		goals = NewUniformGoalStarter(config.TargetInTheAir,
			rand.NewSource(seed))
	}

	tmpDir := config.TempDir
	if tmpDir == "" {
		tmpDir = os.TempDir()
	}

	task := NewReach(goals, config.HasObject, config.RewardType,
		config.DistanceThreshold, config.MaxSteps)

	m := &Manipulator{
		Reach:    task,
		config:   config,
		eng:      eng,
		discount: discount,
		src:      rand.NewSource(seed),
		id:       uuid.New(),
		tmpDir:   tmpDir,
		log:      logger.Sugar(),
	}
	task.register(m)

	firstStep, err := m.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newManipulator: %v", err)
	}
	return m, firstStep, nil
}

// maxResetAttempts bounds how often Reset retries a failed scene
// rebuild before giving up
const maxResetAttempts int = 3

// Reset samples a fresh episode: a new goal, a new object position,
// and a fully rebuilt scene. A failed rebuild is retried with fresh
// samples a bounded number of times.
func (m *Manipulator) Reset() (ts.TimeStep, error) {
	var err error
	for attempt := 0; attempt < maxResetAttempts; attempt++ {
		if err = m.resetSim(nil, ""); err == nil {
			return m.firstStep()
		}
		m.log.Warnw("scene rebuild failed",
			"attempt", attempt+1,
			"error", err,
		)
	}
	return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
}

// ResetFromState rebuilds the scene to match a previously observed
// 22-element state vector instead of sampling, supporting
// deterministic replay. A state of the wrong shape panics.
func (m *Manipulator) ResetFromState(state *mat.VecDense) (ts.TimeStep,
	error) {
	es := decodeState(state)
	if err := m.resetSim(&es, ""); err != nil {
		return ts.TimeStep{}, fmt.Errorf("resetFromState: %v", err)
	}
	return m.firstStep()
}

// ResetFromSnapshot rebuilds the scene and then restores full engine
// state from the snapshot file at path. The state argument may be nil;
// if given, it fixes the goal and scene layout the same way
// ResetFromState does. A restore failure is recoverable: the error
// matches ErrSnapshotRestore, no episode is live, and the caller
// should retry the reset.
func (m *Manipulator) ResetFromSnapshot(state *mat.VecDense,
	path string) (ts.TimeStep, error) {
	var es *explicitState
	if state != nil {
		decoded := decodeState(state)
		es = &decoded
	}
	if err := m.resetSim(es, path); err != nil {
		return ts.TimeStep{}, fmt.Errorf("resetFromSnapshot: %w", err)
	}
	return m.firstStep()
}

// resetSim tears down and rebuilds the physics scene. On any failure
// no episode is live afterwards: the half-built scene is unreachable
// through the public interface and is discarded by the next rebuild.
func (m *Manipulator) resetSim(es *explicitState,
	snapshotPath string) error {
	m.ready = false

	var goal, objPos mgl64.Vec3
	var shouldGrasp bool
	if es != nil {
		goal = es.goal
		objPos = es.objPos
		shouldGrasp = es.shouldGrasp
	} else {
		g := m.Start()
		goal = mgl64.Vec3{g.AtVec(0), g.AtVec(1), g.AtVec(2)}

		var err error
		objPos, err = m.sampleObjectPosition(goal)
		if err != nil {
			return fmt.Errorf("resetSim: %v", err)
		}
	}

	d := m.drawRandomization()
	sc, ctrl, err := m.buildScene(d, goal, objPos, shouldGrasp)
	if err != nil {
		return fmt.Errorf("resetSim: %v", err)
	}

	if snapshotPath != "" {
		if err := m.restoreSnapshot(snapshotPath); err != nil {
			m.log.Warnw("state reset failed",
				"snapshot", snapshotPath,
				"error", err,
			)
			return fmt.Errorf("resetSim: %w: %v", ErrSnapshotRestore, err)
		}
	}

	if es != nil {
		ctrl.SetGoalPosition(es.armGoalPos)
		ctrl.SetGoalGripper(es.armGoalGripper)
	}

	gripPos, _, err := m.eng.LinkState(ctrl.Body(), arm.GripperLink)
	if err != nil {
		return fmt.Errorf("resetSim: %v", err)
	}

	m.scene = sc
	m.ctrl = ctrl
	m.goal = goal
	m.originalObjPos = objPos
	m.originalGoalPos = goal
	m.originalGripPos = gripPos
	m.ready = true
	return nil
}

// restoreSnapshot loads engine state from the snapshot file at path
func (m *Manipulator) restoreSnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return m.eng.RestoreState(f)
}

// sampleObjectPosition draws an object position uniformly within the
// table bounds, rejecting draws closer than MinGoalObjectDistance to
// the goal so that no episode starts solved. Exhausting the attempt
// bound means the sampling geometry is misconfigured.
func (m *Manipulator) sampleObjectPosition(goal mgl64.Vec3) (mgl64.Vec3,
	error) {
	high := TableHigh
	if m.config.FixedGoal {
		high[1] = 0
	}
	u := distmv.NewUniform([]r1.Interval{
		{Min: TableLow.X(), Max: high.X()},
		{Min: TableLow.Y(), Max: high.Y()},
		{Min: TableLow.Z(), Max: high.Z()},
	}, m.src)

	goalVec := mat.NewVecDense(3, []float64{goal.X(), goal.Y(), goal.Z()})
	for attempt := 0; attempt < maxSampleAttempts; attempt++ {
		p := u.Rand(nil)
		p[2] = m.config.HeightOffset
		if Distance(mat.NewVecDense(3, p), goalVec) >=
			MinGoalObjectDistance {
			return mgl64.Vec3{p[0], p[1], p[2]}, nil
		}
	}
	return mgl64.Vec3{}, fmt.Errorf("sampleObjectPosition: no object "+
		"position at least %v from goal %v within %d attempts; table "+
		"bounds admit no valid draw", MinGoalObjectDistance, goal,
		maxSampleAttempts)
}

// firstStep records and returns the first timestep of a new episode
func (m *Manipulator) firstStep() (ts.TimeStep, error) {
	obs, err := m.observationVector()
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("firstStep: %v", err)
	}
	first := ts.New(ts.First, 0, m.discount, obs, 0)
	m.currentTimeStep = first
	return first, nil
}

// Step applies an action and advances the episode. Actions must have
// exactly 4 elements; anything else is a caller error and panics.
// Components are clipped to [-1, 1], the reserved fourth component is
// zeroed, and the rest are scaled by ActionScale before being handed
// to the actuator.
func (m *Manipulator) Step(action *mat.VecDense) (ts.TimeStep, bool,
	error) {
	if action.Len() != arm.NumActions {
		panic(fmt.Sprintf("step: expected %d action dimensions, got %d",
			arm.NumActions, action.Len()))
	}
	if !m.ready {
		return ts.TimeStep{}, true, fmt.Errorf("step: no live episode; " +
			"reset first")
	}

	clipped := make([]float64, arm.NumActions)
	for i := 0; i < 3; i++ {
		clipped[i] = floatutils.Clip(action.AtVec(i), -1, 1) * ActionScale
	}
	// clipped[3] stays zero: the rotation slot is reserved and the
	// gripper is managed by the actuator itself
	if err := m.ctrl.ApplyAction(clipped); err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
	}

	for i := 0; i < m.config.NSubsteps; i++ {
		if err := m.eng.Step(); err != nil {
			return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
		}
		if err := m.ctrl.StepSimulation(); err != nil {
			return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
		}
	}

	state, err := m.stateVector()
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
	}
	obs, err := m.observationVector()
	if err != nil {
		return ts.TimeStep{}, true, fmt.Errorf("step: %v", err)
	}

	// Rewards are judged on the state vector regardless of the
	// observation mode
	reward := m.GetReward(state, action, state)
	t := ts.New(ts.Mid, reward, m.discount, obs,
		m.currentTimeStep.Number+1)

	last := m.End(&t)
	if m.succeeded(state) {
		t.StepType = ts.Last
		t.SetEnd(ts.TerminalStateReached)
		last = true
	}

	m.currentTimeStep = t
	return t, last, nil
}

// succeeded reports whether the tracked entity reached the goal in the
// given state vector
func (m *Manipulator) succeeded(state *mat.VecDense) bool {
	goal := state.SliceVec(stateGoal, stateGoal+3)
	tracked := state.SliceVec(stateGripPos, stateGripPos+3)
	if m.config.HasObject {
		tracked = state.SliceVec(stateObjPos, stateObjPos+3)
	}
	return m.Success(Distance(tracked, goal))
}

// stateVector assembles the 22-element state vector from the current
// physics and actuator state.
func (m *Manipulator) stateVector() (*mat.VecDense, error) {
	gripPos, gripVel, err := m.eng.LinkState(m.ctrl.Body(),
		arm.GripperLink)
	if err != nil {
		return nil, fmt.Errorf("stateVector: %v", err)
	}

	backing := make([]float64, StateDim)
	putVec3(backing, stateGripPos, gripPos)
	putVec3(backing, stateGoal, m.goal)

	for i, joint := range []int{arm.FingerJointA, arm.FingerJointB} {
		value, err := m.eng.JointPosition(m.ctrl.Body(), joint)
		if err != nil {
			return nil, fmt.Errorf("stateVector: %v", err)
		}
		backing[stateGripperJoints+i] = value
	}

	if m.config.HasObject {
		objPos, _, err := m.eng.BasePose(m.scene.object)
		if err != nil {
			return nil, fmt.Errorf("stateVector: %v", err)
		}
		putVec3(backing, stateObjPos, objPos)
		putVec3(backing, stateObjRel, objPos.Sub(gripPos))
	}

	putVec3(backing, stateArmGoalPos, m.ctrl.GoalPosition())
	backing[stateArmGoalGripper] = m.ctrl.GoalGripper()
	putVec3(backing, stateGripVel, gripVel)
	if m.ctrl.IsGrasping() {
		backing[stateGrasping] = 1
	}

	return mat.NewVecDense(StateDim, backing), nil
}

// GetState returns the current 22-element state vector. Its layout is
// also the explicit-state reset format.
func (m *Manipulator) GetState() (*mat.VecDense, error) {
	if !m.ready {
		return nil, fmt.Errorf("getState: no live episode")
	}
	return m.stateVector()
}

// GetAux returns the 16-element auxiliary vector: the actuated joint
// poses followed by the gripper position and the actuator's internal
// goal position. Auxiliary signals are diagnostics, not policy
// observations.
func (m *Manipulator) GetAux() (*mat.VecDense, error) {
	if !m.ready {
		return nil, fmt.Errorf("getAux: no live episode")
	}
	poses, err := m.ctrl.JointPoses()
	if err != nil {
		return nil, fmt.Errorf("getAux: %v", err)
	}
	gripPos, _, err := m.eng.LinkState(m.ctrl.Body(), arm.GripperLink)
	if err != nil {
		return nil, fmt.Errorf("getAux: %v", err)
	}

	backing := make([]float64, AuxDim)
	copy(backing, poses)
	putVec3(backing, len(poses), gripPos)
	putVec3(backing, len(poses)+3, m.ctrl.GoalPosition())
	return mat.NewVecDense(AuxDim, backing), nil
}

// StoreState serializes the full engine state to the file at path,
// overwriting it. A stored file feeds ResetFromSnapshot.
func (m *Manipulator) StoreState(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("storeState: %v", err)
	}
	defer f.Close()
	if err := m.eng.SaveState(f); err != nil {
		return fmt.Errorf("storeState: %v", err)
	}
	return nil
}

// DrawGoal moves the goal marker body to the current episode goal.
func (m *Manipulator) DrawGoal() error {
	if !m.ready {
		return fmt.Errorf("drawGoal: no live episode")
	}
	err := m.eng.SetBasePose(m.scene.goalMarker, m.goal,
		mgl64.QuatIdent())
	if err != nil {
		return fmt.Errorf("drawGoal: %v", err)
	}
	return nil
}

// Originals returns the object, goal, and gripper positions captured
// at the start of the episode, for diagnostics.
func (m *Manipulator) Originals() (object, goal,
	gripper *mat.VecDense) {
	toVec := func(v mgl64.Vec3) *mat.VecDense {
		return mat.NewVecDense(3, []float64{v.X(), v.Y(), v.Z()})
	}
	return toVec(m.originalObjPos), toVec(m.originalGoalPos),
		toVec(m.originalGripPos)
}

// CurrentTimeStep returns the current time step
func (m *Manipulator) CurrentTimeStep() ts.TimeStep {
	return m.currentTimeStep
}

// ActionSpec returns the action specification: 4 continuous dimensions
// in [-1, 1].
func (m *Manipulator) ActionSpec() environment.Spec {
	shape := mat.NewVecDense(arm.NumActions, nil)
	low := mat.NewVecDense(arm.NumActions, []float64{-1, -1, -1, -1})
	high := mat.NewVecDense(arm.NumActions, []float64{1, 1, 1, 1})
	return environment.NewSpec(shape, environment.Action, low, high,
		environment.Continuous)
}

// ObservationSpec returns the observation specification for the
// configured observation type. Its shape is exactly the shape of the
// observation Reset and Step deliver in that type.
func (m *Manipulator) ObservationSpec() environment.Spec {
	pixelDims := FrameWidth * FrameHeight * 3
	depthDims := FrameWidth * FrameHeight

	var low, high []float64
	switch m.config.ObservationType {
	case LowDim:
		low = filled(StateDim, math.Inf(-1))
		high = filled(StateDim, math.Inf(1))
	case Pixels:
		low = filled(pixelDims, 0)
		high = filled(pixelDims, 255)
	case PixelsDepth:
		low = filled(depthDims, math.Inf(-1))
		high = filled(depthDims, math.Inf(1))
	case Composed:
		low = append(filled(StateDim, math.Inf(-1)),
			filled(pixelDims, 0)...)
		high = append(filled(StateDim, math.Inf(1)),
			filled(pixelDims, 255)...)
	}

	shape := mat.NewVecDense(len(low), nil)
	return environment.NewSpec(shape, environment.Observation,
		mat.NewVecDense(len(low), low), mat.NewVecDense(len(high), high),
		environment.Continuous)
}

// filled returns a slice of n copies of value
func filled(n int, value float64) []float64 {
	s := make([]float64, n)
	for i := range s {
		s[i] = value
	}
	return s
}

// AuxSpec returns the specification of the auxiliary vector.
func (m *Manipulator) AuxSpec() environment.Spec {
	shape := mat.NewVecDense(AuxDim, nil)
	low := mat.NewVecDense(AuxDim, nil)
	high := mat.NewVecDense(AuxDim, nil)
	for i := 0; i < AuxDim; i++ {
		low.SetVec(i, -10)
		high.SetVec(i, 10)
	}
	return environment.NewSpec(shape, environment.AuxObservation, low,
		high, environment.Continuous)
}

// RewardSpec returns the reward specification for the configured
// reward type.
func (m *Manipulator) RewardSpec() environment.Spec {
	shape := mat.NewVecDense(1, nil)
	var low, high float64
	switch m.config.RewardType {
	case Sparse:
		low, high = -1, 3
	case Positive:
		low, high = 0, 5
	}
	return environment.NewSpec(shape, environment.Reward,
		mat.NewVecDense(1, []float64{low}),
		mat.NewVecDense(1, []float64{high}), environment.Continuous)
}

// DiscountSpec returns the discount specification.
func (m *Manipulator) DiscountSpec() environment.Spec {
	bounds := mat.NewVecDense(1, []float64{m.discount})
	return environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Discount, bounds, bounds, environment.Continuous)
}

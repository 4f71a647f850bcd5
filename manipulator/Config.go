// Package manipulator implements an episodic robotic-manipulation
// environment: a multi-joint arm with a gripper must bring its gripper
// or a graspable object to a goal position on or above a table. The
// environment drives an external physics engine and actuator
// controller through narrow contracts, assembles fixed-shape state
// vectors, and supports two independent axes of domain randomization
// (cosmetic and physical).
package manipulator

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// RewardType selects the reward scheme of the reach task
type RewardType int

const (
	// Sparse rewards 3 on success and -1 otherwise
	Sparse RewardType = iota

	// Positive rewards 5 on success and 0 otherwise
	Positive
)

func (r RewardType) String() string {
	switch r {
	case Sparse:
		return "Sparse"
	case Positive:
		return "Positive"
	default:
		return fmt.Sprintf("RewardType(%d)", int(r))
	}
}

// ObservationType selects what Observe returns
type ObservationType int

const (
	// LowDim observes the 22-element state vector only
	LowDim ObservationType = iota

	// Pixels observes a rendered 84x84x3 image only
	Pixels

	// PixelsDepth observes the depth channel of the rendered frame
	PixelsDepth

	// Composed observes both the state vector and the rendered image
	Composed
)

func (o ObservationType) String() string {
	switch o {
	case LowDim:
		return "LowDim"
	case Pixels:
		return "Pixels"
	case PixelsDepth:
		return "PixelsDepth"
	case Composed:
		return "Composed"
	default:
		return fmt.Sprintf("ObservationType(%d)", int(o))
	}
}

// Geometry of the reachable table region
var (
	TableLow  = mgl64.Vec3{-0.35, -0.25, 0.05}
	TableHigh = mgl64.Vec3{-0.2, 0.25, 0.2}
)

const (
	// ActionScale converts clipped action components into goal
	// position displacements
	ActionScale float64 = 0.05

	// MinGoalObjectDistance is the smallest admissible separation
	// between a sampled object position and the episode goal
	MinGoalObjectDistance float64 = 0.1

	// FrameWidth and FrameHeight are the dimensions of rendered
	// pixel observations
	FrameWidth  int = 84
	FrameHeight int = 84

	// maxSampleAttempts bounds the object-position rejection loop.
	// The sampling geometry always admits a solution quickly, so
	// exhausting this bound means the table bounds and threshold are
	// misconfigured.
	maxSampleAttempts int = 10000
)

// Config is the immutable construction-time configuration of a
// Manipulator. Validate rejects invalid configurations before any
// scene is built; a Config is never mutated afterwards.
type Config struct {
	// NSubsteps is the number of engine substeps per environment step
	NSubsteps int

	// HasObject places a graspable object on the table. Without an
	// object the gripper itself is the tracked entity.
	HasObject bool

	// TargetInTheAir allows goals above the table surface
	TargetInTheAir bool

	// DistanceThreshold is the success distance between the tracked
	// entity and the goal
	DistanceThreshold float64

	// HeightOffset is the height at which objects spawn
	HeightOffset float64

	RewardType      RewardType
	ObservationType ObservationType

	// MaxSteps ends episodes after this many steps
	MaxSteps int

	// FixedGoal disables goal sampling in favor of a constant goal
	FixedGoal bool

	// Cosmetic randomization axes
	RandomizeTextures bool
	NormalTextures    bool
	RandomizeCamera   bool

	// Physical randomization axes
	RandomizeObjects bool
	RandomizeArm     bool

	// GUI asks the engine for an interactive window. Engines without
	// an interactive mode, the built-in solid engine included, ignore
	// it.
	GUI bool

	// TempDir receives generated texture files. Empty means the
	// system temporary directory.
	TempDir string
}

// NewConfig returns the default configuration: low-dimensional
// observations of a fixed airborne goal with a graspable object and no
// randomization.
func NewConfig() Config {
	return Config{
		NSubsteps:         5,
		HasObject:         true,
		TargetInTheAir:    true,
		DistanceThreshold: 0.1,
		HeightOffset:      0.06,
		RewardType:        Positive,
		ObservationType:   LowDim,
		MaxSteps:          50,
		FixedGoal:         true,
	}
}

// Validate rejects configurations no episode can run under.
// Unrecognized reward or observation types are configuration errors
// here, never runtime branches.
func (c Config) Validate() error {
	if c.NSubsteps <= 0 {
		return fmt.Errorf("validate: NSubsteps must be positive, got %v",
			c.NSubsteps)
	}
	if c.DistanceThreshold <= 0 {
		return fmt.Errorf("validate: DistanceThreshold must be positive, "+
			"got %v", c.DistanceThreshold)
	}
	if c.HeightOffset <= 0 {
		return fmt.Errorf("validate: HeightOffset must be positive, got %v",
			c.HeightOffset)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("validate: MaxSteps must be positive, got %v",
			c.MaxSteps)
	}
	switch c.RewardType {
	case Sparse, Positive:
	default:
		return fmt.Errorf("validate: unsupported reward type %v",
			c.RewardType)
	}
	switch c.ObservationType {
	case LowDim, Pixels, PixelsDepth, Composed:
	default:
		return fmt.Errorf("validate: unsupported observation type %v",
			c.ObservationType)
	}
	return nil
}

// Package physics declares the contract between the episode controller
// and a rigid-body physics engine. The engine is treated as a stateful
// service owned by a single controller: it creates and mutates scene
// bodies, steps the simulation, renders to image buffers, and saves or
// restores its full state through a handle.
package physics

import (
	"io"

	"github.com/go-gl/mathgl/mgl64"
)

// SubstepDuration is the simulated time advanced by one Engine.Step,
// in seconds. Controllers use it to convert per-substep displacements
// into velocities.
const SubstepDuration float64 = 1.0 / 240.0

// BodyID is a handle into an engine's body table. Handles are scoped
// to a single scene: every ResetScene bumps the generation, so a
// handle held across a scene rebuild can never alias a new body.
type BodyID struct {
	Index      uint32
	Generation uint32
}

// Valid returns whether b refers to any scene at all. The zero BodyID
// is invalid.
func (b BodyID) Valid() bool {
	return b.Generation != 0
}

// Color is an RGBA color with channels in [0, 1].
type Color [4]float64

// Camera describes a view and projection for rendering.
type Camera struct {
	Eye    mgl64.Vec3
	LookAt mgl64.Vec3
	Up     mgl64.Vec3

	FOV    float64 // vertical field of view in degrees
	Aspect float64
	Near   float64
	Far    float64
}

// Light describes the single light source of a rendered scene.
type Light struct {
	Diffuse   float64
	Ambient   float64
	Specular  float64
	Direction mgl64.Vec3
	Color     [3]float64
}

// Description is an engine-independent articulated-body description.
// Link scales perturb the nominal link geometry; colors cover the
// links and the finger rings.
type Description struct {
	LinkScales []float64
	LinkColor  Color
	RingColor  Color
}

// Frame is a rendered image buffer. RGB is row-major with 3 bytes per
// pixel; Depth holds one value per pixel in world units from the
// camera.
type Frame struct {
	Width  int
	Height int
	RGB    []uint8
	Depth  []float64
}

// Engine is the rigid-body engine surface the episode controller
// consumes. No method is safe for concurrent use: a single controller
// owns the engine for its lifetime and serializes all calls.
type Engine interface {
	// ResetScene tears down every body in the current scene and
	// invalidates all handles created since the previous reset.
	ResetScene()

	CreatePlane(pos mgl64.Vec3, orient mgl64.Quat) (BodyID, error)
	CreateSphere(radius, mass float64, pos mgl64.Vec3) (BodyID, error)
	CreateBox(halfExtents mgl64.Vec3, mass float64, pos mgl64.Vec3,
		orient mgl64.Quat) (BodyID, error)

	// CreateArticulated creates a multi-link body, such as an arm,
	// with the given numbers of links and joints.
	CreateArticulated(desc Description, pos mgl64.Vec3, links,
		joints int) (BodyID, error)

	// SetColor changes the visual color of one link of a body. A link
	// of -1 addresses the base.
	SetColor(b BodyID, link int, c Color) error

	// SetTexture binds the image file at path to the body's surface.
	SetTexture(b BodyID, path string) error

	BasePose(b BodyID) (mgl64.Vec3, mgl64.Quat, error)
	SetBasePose(b BodyID, pos mgl64.Vec3, orient mgl64.Quat) error

	// LinkState reports the world position and linear velocity of one
	// link of an articulated body.
	LinkState(b BodyID, link int) (pos, vel mgl64.Vec3, err error)
	SetLinkState(b BodyID, link int, pos, vel mgl64.Vec3) error

	JointPosition(b BodyID, joint int) (float64, error)
	SetJointPosition(b BodyID, joint int, value float64) error

	SetCamera(Camera)
	SetLight(Light)

	// Render draws the current scene into a width x height frame using
	// the engine's camera and light.
	Render(width, height int) (*Frame, error)

	// Step advances the simulation by one fixed substep.
	Step() error

	// SaveState serializes the full engine state to w.
	SaveState(w io.Writer) error

	// RestoreState replaces the full engine state with one previously
	// written by SaveState. On error the current scene is left
	// unchanged.
	RestoreState(r io.Reader) error
}

// YawQuat returns the quaternion for a rotation of yaw radians about
// the world z axis.
func YawQuat(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, mgl64.Vec3{0, 0, 1})
}

// Package solid implements a minimal rigid-body engine satisfying the
// physics.Engine contract. Bodies fall under gravity and come to rest
// on the ground plane; articulated bodies are driven kinematically by
// their controller. The package exists so that environments can run
// and be tested without an external simulator; a production engine
// substitutes behind the same contract.
package solid

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/samuelfneumann/gomanip/physics"
)

// Physical constants of the engine
const (
	TimeStep float64 = physics.SubstepDuration
	Gravity  float64 = 9.8
)

type shapeKind int

const (
	planeShape shapeKind = iota
	sphereShape
	boxShape
	articulatedShape
)

// link holds the world state of one link of an articulated body
type link struct {
	Pos mgl64.Vec3
	Vel mgl64.Vec3
}

// body holds the full state of one scene body. All fields are exported
// so that snapshots can serialize bodies directly.
type body struct {
	Kind        shapeKind
	Radius      float64
	HalfExtents mgl64.Vec3
	Mass        float64

	Pos    mgl64.Vec3
	Orient mgl64.Quat
	Vel    mgl64.Vec3

	Color   physics.Color
	Texture string

	Links  []link
	Joints []float64
	Desc   physics.Description
}

// restHeight returns the z coordinate at which the body rests on the
// ground plane
func (b *body) restHeight() float64 {
	switch b.Kind {
	case sphereShape:
		return b.Radius
	case boxShape:
		return b.HalfExtents.Z()
	default:
		return 0
	}
}

// Engine is an in-process physics.Engine. The zero value is not
// usable; use New.
type Engine struct {
	gen    uint32
	bodies []*body
	camera physics.Camera
	light  physics.Light
}

// New returns a new empty Engine with the default camera and light.
func New() *Engine {
	return &Engine{
		gen:    1,
		camera: DefaultCamera(),
		light:  DefaultLight(),
	}
}

// DefaultCamera returns the camera used when no camera randomization
// is applied.
func DefaultCamera() physics.Camera {
	return physics.Camera{
		Eye:    mgl64.Vec3{-1.05, 0, 0.68},
		LookAt: mgl64.Vec3{0.1, 0, 0},
		Up:     mgl64.Vec3{-0.5, 0, 1},
		FOV:    45,
		Aspect: 4.0 / 3.0,
		Near:   0.01,
		Far:    2.5,
	}
}

// DefaultLight returns the light used when no lighting randomization
// is applied.
func DefaultLight() physics.Light {
	return physics.Light{
		Diffuse:   0.5,
		Ambient:   0.5,
		Specular:  0.55,
		Direction: mgl64.Vec3{10, 10, 85},
		Color:     [3]float64{1, 1, 1},
	}
}

// ResetScene drops every body and invalidates all handles created
// since the last reset.
func (e *Engine) ResetScene() {
	e.gen++
	e.bodies = nil
}

// add registers a body and returns its handle, scoped to the current
// scene generation
func (e *Engine) add(b *body) physics.BodyID {
	e.bodies = append(e.bodies, b)
	return physics.BodyID{
		Index:      uint32(len(e.bodies) - 1),
		Generation: e.gen,
	}
}

// lookup resolves a handle, rejecting handles from torn-down scenes
func (e *Engine) lookup(id physics.BodyID) (*body, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("lookup: invalid body handle")
	}
	if id.Generation != e.gen {
		return nil, fmt.Errorf("lookup: stale body handle (generation %d, "+
			"scene %d)", id.Generation, e.gen)
	}
	if int(id.Index) >= len(e.bodies) {
		return nil, fmt.Errorf("lookup: unknown body %d", id.Index)
	}
	return e.bodies[id.Index], nil
}

// CreatePlane creates a static plane at pos with the given
// orientation.
func (e *Engine) CreatePlane(pos mgl64.Vec3,
	orient mgl64.Quat) (physics.BodyID, error) {
	return e.add(&body{
		Kind:   planeShape,
		Pos:    pos,
		Orient: orient,
		Color:  physics.Color{0.85, 0.85, 0.85, 1},
	}), nil
}

// CreateSphere creates a sphere body. A mass of zero makes the body
// static.
func (e *Engine) CreateSphere(radius, mass float64,
	pos mgl64.Vec3) (physics.BodyID, error) {
	if radius <= 0 {
		return physics.BodyID{}, fmt.Errorf("createSphere: radius must be "+
			"positive, got %v", radius)
	}
	return e.add(&body{
		Kind:   sphereShape,
		Radius: radius,
		Mass:   mass,
		Pos:    pos,
		Orient: mgl64.QuatIdent(),
		Color:  physics.Color{0.7, 0.7, 0.7, 1},
	}), nil
}

// CreateBox creates a box body with the given half extents. A mass of
// zero makes the body static.
func (e *Engine) CreateBox(halfExtents mgl64.Vec3, mass float64,
	pos mgl64.Vec3, orient mgl64.Quat) (physics.BodyID, error) {
	for i := 0; i < 3; i++ {
		if halfExtents[i] <= 0 {
			return physics.BodyID{}, fmt.Errorf("createBox: half extents "+
				"must be positive, got %v", halfExtents)
		}
	}
	return e.add(&body{
		Kind:        boxShape,
		HalfExtents: halfExtents,
		Mass:        mass,
		Pos:         pos,
		Orient:      orient,
		Color:       physics.Color{0.7, 0.7, 0.7, 1},
	}), nil
}

// CreateArticulated creates a multi-link body whose links and joints
// are driven through SetLinkState and SetJointPosition. The
// description is recorded for snapshots and rendering only: link
// scales do not alter the kinematics in this engine, which the
// controller drives directly.
func (e *Engine) CreateArticulated(desc physics.Description,
	pos mgl64.Vec3, links, joints int) (physics.BodyID, error) {
	if links <= 0 || joints <= 0 {
		return physics.BodyID{}, fmt.Errorf("createArticulated: need "+
			"positive link and joint counts, got %v and %v", links, joints)
	}
	linkStates := make([]link, links)
	for i := range linkStates {
		linkStates[i].Pos = pos
	}
	return e.add(&body{
		Kind:   articulatedShape,
		Pos:    pos,
		Orient: mgl64.QuatIdent(),
		Color:  desc.LinkColor,
		Links:  linkStates,
		Joints: make([]float64, joints),
		Desc:   desc,
	}), nil
}

// SetColor changes the visual color of one link of a body. Link -1
// addresses the base.
func (e *Engine) SetColor(id physics.BodyID, linkIdx int,
	c physics.Color) error {
	b, err := e.lookup(id)
	if err != nil {
		return fmt.Errorf("setColor: %v", err)
	}
	// Per-link visuals only matter for the base color in this engine
	if linkIdx < 0 || b.Kind != articulatedShape {
		b.Color = c
	}
	return nil
}

// SetTexture binds the image file at path to the body surface.
func (e *Engine) SetTexture(id physics.BodyID, path string) error {
	b, err := e.lookup(id)
	if err != nil {
		return fmt.Errorf("setTexture: %v", err)
	}
	b.Texture = path
	return nil
}

// BasePose reports the world pose of the body base.
func (e *Engine) BasePose(id physics.BodyID) (mgl64.Vec3, mgl64.Quat,
	error) {
	b, err := e.lookup(id)
	if err != nil {
		return mgl64.Vec3{}, mgl64.Quat{}, fmt.Errorf("basePose: %v", err)
	}
	return b.Pos, b.Orient, nil
}

// SetBasePose moves the body base to the given world pose, zeroing its
// velocity.
func (e *Engine) SetBasePose(id physics.BodyID, pos mgl64.Vec3,
	orient mgl64.Quat) error {
	b, err := e.lookup(id)
	if err != nil {
		return fmt.Errorf("setBasePose: %v", err)
	}
	b.Pos = pos
	b.Orient = orient
	b.Vel = mgl64.Vec3{}
	return nil
}

// LinkState reports the world position and linear velocity of one link
// of an articulated body.
func (e *Engine) LinkState(id physics.BodyID, linkIdx int) (mgl64.Vec3,
	mgl64.Vec3, error) {
	b, err := e.lookup(id)
	if err != nil {
		return mgl64.Vec3{}, mgl64.Vec3{}, fmt.Errorf("linkState: %v", err)
	}
	if b.Kind != articulatedShape {
		return mgl64.Vec3{}, mgl64.Vec3{},
			fmt.Errorf("linkState: body %d has no links", id.Index)
	}
	if linkIdx < 0 || linkIdx >= len(b.Links) {
		return mgl64.Vec3{}, mgl64.Vec3{},
			fmt.Errorf("linkState: no link %d", linkIdx)
	}
	return b.Links[linkIdx].Pos, b.Links[linkIdx].Vel, nil
}

// SetLinkState sets the world position and linear velocity of one link
// of an articulated body.
func (e *Engine) SetLinkState(id physics.BodyID, linkIdx int, pos,
	vel mgl64.Vec3) error {
	b, err := e.lookup(id)
	if err != nil {
		return fmt.Errorf("setLinkState: %v", err)
	}
	if b.Kind != articulatedShape {
		return fmt.Errorf("setLinkState: body %d has no links", id.Index)
	}
	if linkIdx < 0 || linkIdx >= len(b.Links) {
		return fmt.Errorf("setLinkState: no link %d", linkIdx)
	}
	b.Links[linkIdx].Pos = pos
	b.Links[linkIdx].Vel = vel
	return nil
}

// JointPosition reports the position of one joint of an articulated
// body.
func (e *Engine) JointPosition(id physics.BodyID, joint int) (float64,
	error) {
	b, err := e.lookup(id)
	if err != nil {
		return 0, fmt.Errorf("jointPosition: %v", err)
	}
	if b.Kind != articulatedShape {
		return 0, fmt.Errorf("jointPosition: body %d has no joints", id.Index)
	}
	if joint < 0 || joint >= len(b.Joints) {
		return 0, fmt.Errorf("jointPosition: no joint %d", joint)
	}
	return b.Joints[joint], nil
}

// SetJointPosition sets the position of one joint of an articulated
// body.
func (e *Engine) SetJointPosition(id physics.BodyID, joint int,
	value float64) error {
	b, err := e.lookup(id)
	if err != nil {
		return fmt.Errorf("setJointPosition: %v", err)
	}
	if b.Kind != articulatedShape {
		return fmt.Errorf("setJointPosition: body %d has no joints", id.Index)
	}
	if joint < 0 || joint >= len(b.Joints) {
		return fmt.Errorf("setJointPosition: no joint %d", joint)
	}
	b.Joints[joint] = value
	return nil
}

// SetCamera sets the camera used by Render.
func (e *Engine) SetCamera(c physics.Camera) {
	e.camera = c
}

// SetLight sets the light used by Render.
func (e *Engine) SetLight(l physics.Light) {
	e.light = l
}

// Step advances the simulation by one fixed substep. Dynamic bodies
// integrate gravity and rest on the ground plane; static and
// articulated bodies are unaffected.
func (e *Engine) Step() error {
	for _, b := range e.bodies {
		if b.Mass <= 0 || b.Kind == planeShape ||
			b.Kind == articulatedShape {
			continue
		}

		b.Vel[2] -= Gravity * TimeStep
		b.Pos = b.Pos.Add(b.Vel.Mul(TimeStep))

		if rest := b.restHeight(); b.Pos.Z() <= rest {
			b.Pos[2] = rest
			b.Vel = mgl64.Vec3{}
		}
	}
	return nil
}

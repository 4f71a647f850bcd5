package manipulator

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/samuelfneumann/gomanip/arm"
	"github.com/samuelfneumann/gomanip/physics"
	"github.com/samuelfneumann/gomanip/texture"
)

// Fixed scene geometry
const (
	wallX float64 = 0.697

	objectMass float64 = 0.3

	// reachMargin widens the arm's reachable region beyond the table
	// bounds on every axis
	reachMargin float64 = 0.2

	// reachFloor keeps the gripper goal above the table surface
	reachFloor float64 = 0.05
)

// Mount block half extents
var (
	mountBaseHalfExtents = mgl64.Vec3{0.08, 0.10, 0.02}
	mountPostHalfExtents = mgl64.Vec3{0.02, 0.02, 0.1}
)

// scene holds the body handles of one episode's physics scene. All
// handles become stale when the engine scene is next torn down; a
// scene value never outlives its episode.
type scene struct {
	ground     physics.BodyID
	wall       physics.BodyID
	goalMarker physics.BodyID
	object     physics.BodyID
	mounts     [2]physics.BodyID
	armBody    physics.BodyID
}

// buildScene tears down the previous physics scene and constructs the
// new episode's scene: planes, goal marker, arm, mounts, and the
// graspable object. It returns the new scene's handles and the arm
// controller driving the new arm body.
func (m *Manipulator) buildScene(d *draw, goal, objPos mgl64.Vec3,
	shouldGrasp bool) (*scene, arm.Controller, error) {
	m.eng.ResetScene()
	sc := &scene{}

	var err error
	sc.goalMarker, err = m.eng.CreateSphere(d.goalRadius, 0, goal)
	if err != nil {
		return nil, nil, fmt.Errorf("buildScene: %v", err)
	}
	if err := m.eng.SetColor(sc.goalMarker, -1, d.goalColor); err != nil {
		return nil, nil, fmt.Errorf("buildScene: %v", err)
	}

	if err := m.buildRoom(sc, d); err != nil {
		return nil, nil, fmt.Errorf("buildScene: %v", err)
	}

	ctrl, err := m.buildArm(sc, d)
	if err != nil {
		return nil, nil, fmt.Errorf("buildScene: %v", err)
	}

	if m.config.HasObject {
		half := d.objHalfExtent
		sc.object, err = m.eng.CreateBox(mgl64.Vec3{half, half, half},
			objectMass, objPos, physics.YawQuat(d.objYaw))
		if err != nil {
			return nil, nil, fmt.Errorf("buildScene: %v", err)
		}
		if err := m.eng.SetColor(sc.object, -1, d.objColor); err != nil {
			return nil, nil, fmt.Errorf("buildScene: %v", err)
		}
		if err := ctrl.SetGraspableObject(sc.object, shouldGrasp); err != nil {
			return nil, nil, fmt.Errorf("buildScene: %v", err)
		}
	}

	// The gripper is initialized last, once every scene body exists
	if err := ctrl.InitGripper(); err != nil {
		return nil, nil, fmt.Errorf("buildScene: %v", err)
	}

	return sc, ctrl, nil
}

// buildRoom creates the ground and wall planes and applies the
// cosmetic randomization draw: camera, light, and synthesized
// textures.
func (m *Manipulator) buildRoom(sc *scene, d *draw) error {
	var err error
	sc.wall, err = m.eng.CreatePlane(mgl64.Vec3{wallX, 0, 0},
		mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{0, 1, 0}))
	if err != nil {
		return fmt.Errorf("buildRoom: %v", err)
	}
	sc.ground, err = m.eng.CreatePlane(mgl64.Vec3{},
		mgl64.QuatIdent())
	if err != nil {
		return fmt.Errorf("buildRoom: %v", err)
	}

	if d.camera != nil {
		m.eng.SetCamera(*d.camera)
	}
	if d.light != nil {
		m.eng.SetLight(*d.light)
	}

	if m.config.RandomizeTextures {
		wallFile, err := texture.CreateAndSave(
			texture.File(m.tmpDir, "wall", m.id), "cloud", d.wallColor,
			m.src)
		if err != nil {
			return fmt.Errorf("buildRoom: %v", err)
		}
		tableFile, err := texture.CreateAndSave(
			texture.File(m.tmpDir, "table", m.id), "cloud", d.woodColor,
			m.src)
		if err != nil {
			return fmt.Errorf("buildRoom: %v", err)
		}
		if err := m.eng.SetTexture(sc.ground, tableFile); err != nil {
			return fmt.Errorf("buildRoom: %v", err)
		}
		if err := m.eng.SetTexture(sc.wall, wallFile); err != nil {
			return fmt.Errorf("buildRoom: %v", err)
		}
	}
	return nil
}

// buildArm creates the arm with this draw's spawn pose and physical
// description, colors its wrist and finger rings, and attaches the two
// cosmetic mount blocks.
func (m *Manipulator) buildArm(sc *scene, d *draw) (arm.Controller,
	error) {
	reachLow := TableLow.Sub(mgl64.Vec3{reachMargin, reachMargin,
		reachMargin})
	reachHigh := TableHigh.Add(mgl64.Vec3{reachMargin, reachMargin,
		reachMargin})
	reachLow[2] = reachFloor

	ctrl, err := arm.NewSim(m.eng, d.armDesc, d.armSpawn, reachLow,
		reachHigh)
	if err != nil {
		return nil, fmt.Errorf("buildArm: %v", err)
	}
	sc.armBody = ctrl.Body()

	desc := arm.DefaultDescription()
	if d.armDesc != nil {
		desc = *d.armDesc
	}

	// Hide the wrist link and color the finger rings
	err = m.eng.SetColor(sc.armBody, arm.GripperLink,
		physics.Color{0, 0, 0, 0})
	if err != nil {
		return nil, fmt.Errorf("buildArm: %v", err)
	}
	for _, link := range []int{arm.FingerJointA, arm.FingerJointB} {
		if err := m.eng.SetColor(sc.armBody, link, desc.RingColor); err != nil {
			return nil, fmt.Errorf("buildArm: %v", err)
		}
	}

	halves := [2]mgl64.Vec3{mountBaseHalfExtents, mountPostHalfExtents}
	for i, half := range halves {
		mount, err := m.eng.CreateBox(half, 0, d.armSpawn,
			mgl64.QuatIdent())
		if err != nil {
			return nil, fmt.Errorf("buildArm: %v", err)
		}
		if err := m.eng.SetColor(mount, -1, desc.LinkColor); err != nil {
			return nil, fmt.Errorf("buildArm: %v", err)
		}
		sc.mounts[i] = mount
	}

	return ctrl, nil
}

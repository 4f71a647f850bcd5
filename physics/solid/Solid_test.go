package solid_test

import (
	"bytes"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/samuelfneumann/gomanip/physics"
	"github.com/samuelfneumann/gomanip/physics/solid"
)

func TestStaleHandleRejected(t *testing.T) {
	eng := solid.New()
	id, err := eng.CreateSphere(0.1, 1, mgl64.Vec3{0, 0, 0.5})
	if err != nil {
		t.Fatal(err)
	}

	eng.ResetScene()
	if _, _, err := eng.BasePose(id); err == nil {
		t.Error("a handle from a torn-down scene should be rejected")
	}

	// Handles from the new scene work even at the same index
	fresh, err := eng.CreateSphere(0.1, 1, mgl64.Vec3{0, 0, 0.5})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := eng.BasePose(fresh); err != nil {
		t.Errorf("a fresh handle should resolve: %v", err)
	}
}

func TestZeroHandleRejected(t *testing.T) {
	eng := solid.New()
	if _, _, err := eng.BasePose(physics.BodyID{}); err == nil {
		t.Error("the zero handle should never resolve")
	}
}

func TestGravitySettlesOnGround(t *testing.T) {
	eng := solid.New()
	radius := 0.05
	id, err := eng.CreateSphere(radius, 1, mgl64.Vec3{0, 0, 0.5})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2000; i++ {
		if err := eng.Step(); err != nil {
			t.Fatal(err)
		}
	}

	pos, _, err := eng.BasePose(id)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pos.Z()-radius) > 1e-9 {
		t.Errorf("sphere should rest at its radius height, got z %v",
			pos.Z())
	}
}

func TestStaticBodiesDoNotFall(t *testing.T) {
	eng := solid.New()
	id, err := eng.CreateSphere(0.025, 0, mgl64.Vec3{-0.4, 0.2, 0.3})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 100; i++ {
		if err := eng.Step(); err != nil {
			t.Fatal(err)
		}
	}

	pos, _, err := eng.BasePose(id)
	if err != nil {
		t.Fatal(err)
	}
	if pos != (mgl64.Vec3{-0.4, 0.2, 0.3}) {
		t.Errorf("massless bodies should stay put, got %v", pos)
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	eng := solid.New()
	id, err := eng.CreateBox(mgl64.Vec3{0.03, 0.03, 0.03}, 0.3,
		mgl64.Vec3{-0.3, 0.1, 0.06}, mgl64.QuatIdent())
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := eng.SaveState(&buf); err != nil {
		t.Fatal(err)
	}

	moved := mgl64.Vec3{0.2, 0.2, 0.2}
	if err := eng.SetBasePose(id, moved, mgl64.QuatIdent()); err != nil {
		t.Fatal(err)
	}

	if err := eng.RestoreState(&buf); err != nil {
		t.Fatal(err)
	}
	pos, _, err := eng.BasePose(id)
	if err != nil {
		t.Fatalf("handles should survive a restore: %v", err)
	}
	if pos != (mgl64.Vec3{-0.3, 0.1, 0.06}) {
		t.Errorf("restore should undo the move, got %v", pos)
	}
}

func TestRestoreRejectsBodyCountMismatch(t *testing.T) {
	eng := solid.New()
	if _, err := eng.CreateSphere(0.1, 1, mgl64.Vec3{0, 0, 0.5}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := eng.SaveState(&buf); err != nil {
		t.Fatal(err)
	}

	eng.ResetScene()
	if err := eng.RestoreState(&buf); err == nil {
		t.Error("restoring into a scene with a different body count " +
			"should fail")
	}
}

func TestRenderFrame(t *testing.T) {
	eng := solid.New()
	if _, err := eng.CreateSphere(0.1, 0, mgl64.Vec3{0, 0, 0.1}); err != nil {
		t.Fatal(err)
	}

	frame, err := eng.Render(84, 84)
	if err != nil {
		t.Fatal(err)
	}
	if frame.Width != 84 || frame.Height != 84 {
		t.Errorf("expected an 84x84 frame, got %dx%d", frame.Width,
			frame.Height)
	}
	if len(frame.RGB) != 84*84*3 {
		t.Errorf("expected %d RGB bytes, got %d", 84*84*3, len(frame.RGB))
	}
	if len(frame.Depth) != 84*84 {
		t.Errorf("expected %d depth values, got %d", 84*84,
			len(frame.Depth))
	}

	if _, err := eng.Render(0, 84); err == nil {
		t.Error("a non-positive frame size should be rejected")
	}
}

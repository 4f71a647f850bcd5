package solid

import (
	"encoding/gob"
	"fmt"
	"io"

	"github.com/samuelfneumann/gomanip/physics"
)

// snapshot is the serialized form of the full engine state
type snapshot struct {
	Bodies []*body
	Camera physics.Camera
	Light  physics.Light
}

// SaveState serializes the full engine state to w.
func (e *Engine) SaveState(w io.Writer) error {
	s := snapshot{
		Bodies: e.bodies,
		Camera: e.camera,
		Light:  e.light,
	}
	if err := gob.NewEncoder(w).Encode(&s); err != nil {
		return fmt.Errorf("saveState: %v", err)
	}
	return nil
}

// RestoreState replaces the engine state with one previously written
// by SaveState. The restored scene must have the same body count as
// the current one, so handles issued for the current scene remain
// valid: restoring is a state overwrite, not a scene rebuild. On error
// the current scene is left unchanged.
func (e *Engine) RestoreState(r io.Reader) error {
	var s snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("restoreState: %v", err)
	}
	if len(s.Bodies) != len(e.bodies) {
		return fmt.Errorf("restoreState: snapshot has %d bodies, scene "+
			"has %d", len(s.Bodies), len(e.bodies))
	}
	e.bodies = s.Bodies
	e.camera = s.Camera
	e.light = s.Light
	return nil
}

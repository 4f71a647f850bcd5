package manipulator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/gomanip/physics"
)

// Observation is a per-mode observation. Exactly the payloads implied
// by Type are non-nil: LowDim for LowDim and Composed, Pixels for
// Pixels and Composed, Depth for PixelsDepth.
type Observation struct {
	Type ObservationType

	// LowDim is the 22-element state vector
	LowDim *mat.VecDense

	// Pixels is a rendered image of shape (FrameHeight, FrameWidth, 3)
	// with uint8 channels
	Pixels *tensor.Dense

	// Depth is the rendered depth channel of shape
	// (FrameHeight, FrameWidth)
	Depth *mat.Dense
}

// Observe assembles the observation for the configured observation
// type from the current physics and actuator state.
func (m *Manipulator) Observe() (Observation, error) {
	if !m.ready {
		return Observation{}, fmt.Errorf("observe: no live episode")
	}
	obs := Observation{Type: m.config.ObservationType}

	switch m.config.ObservationType {
	case LowDim:
		state, err := m.stateVector()
		if err != nil {
			return Observation{}, fmt.Errorf("observe: %v", err)
		}
		obs.LowDim = state

	case Pixels:
		frame, err := m.renderFrame()
		if err != nil {
			return Observation{}, fmt.Errorf("observe: %v", err)
		}
		obs.Pixels = pixelTensor(frame)

	case PixelsDepth:
		frame, err := m.renderFrame()
		if err != nil {
			return Observation{}, fmt.Errorf("observe: %v", err)
		}
		depth := make([]float64, len(frame.Depth))
		copy(depth, frame.Depth)
		obs.Depth = mat.NewDense(FrameHeight, FrameWidth, depth)

	case Composed:
		state, err := m.stateVector()
		if err != nil {
			return Observation{}, fmt.Errorf("observe: %v", err)
		}
		frame, err := m.renderFrame()
		if err != nil {
			return Observation{}, fmt.Errorf("observe: %v", err)
		}
		obs.LowDim = state
		obs.Pixels = pixelTensor(frame)

	default:
		// Unreachable: Config.Validate rejects unknown observation
		// types
		panic(fmt.Sprintf("observe: unsupported observation type %v",
			m.config.ObservationType))
	}
	return obs, nil
}

// observationVector flattens the configured observation into the
// vector carried by timesteps, so that Reset and Step deliver exactly
// the shape ObservationSpec declares. Observe returns the structured
// form of the same payload.
func (m *Manipulator) observationVector() (*mat.VecDense, error) {
	switch m.config.ObservationType {
	case LowDim:
		return m.stateVector()

	case Pixels:
		frame, err := m.renderFrame()
		if err != nil {
			return nil, fmt.Errorf("observationVector: %v", err)
		}
		backing := make([]float64, len(frame.RGB))
		for i, channel := range frame.RGB {
			backing[i] = float64(channel)
		}
		return mat.NewVecDense(len(backing), backing), nil

	case PixelsDepth:
		frame, err := m.renderFrame()
		if err != nil {
			return nil, fmt.Errorf("observationVector: %v", err)
		}
		backing := make([]float64, len(frame.Depth))
		copy(backing, frame.Depth)
		return mat.NewVecDense(len(backing), backing), nil

	case Composed:
		state, err := m.stateVector()
		if err != nil {
			return nil, fmt.Errorf("observationVector: %v", err)
		}
		frame, err := m.renderFrame()
		if err != nil {
			return nil, fmt.Errorf("observationVector: %v", err)
		}
		backing := make([]float64, StateDim+len(frame.RGB))
		copy(backing, state.RawVector().Data)
		for i, channel := range frame.RGB {
			backing[StateDim+i] = float64(channel)
		}
		return mat.NewVecDense(len(backing), backing), nil

	default:
		// Unreachable: Config.Validate rejects unknown observation
		// types
		panic(fmt.Sprintf("observationVector: unsupported observation "+
			"type %v", m.config.ObservationType))
	}
}

// renderFrame renders the scene and validates the frame shape.
func (m *Manipulator) renderFrame() (*physics.Frame, error) {
	frame, err := m.eng.Render(FrameWidth, FrameHeight)
	if err != nil {
		return nil, fmt.Errorf("renderFrame: %v", err)
	}
	if frame.Width != FrameWidth || frame.Height != FrameHeight ||
		len(frame.RGB) != FrameWidth*FrameHeight*3 {
		return nil, fmt.Errorf("renderFrame: engine returned a %dx%d "+
			"frame with %d bytes, want %dx%dx3", frame.Width, frame.Height,
			len(frame.RGB), FrameWidth, FrameHeight)
	}
	return frame, nil
}

// pixelTensor copies a rendered frame into an (H, W, 3) uint8 tensor
func pixelTensor(frame *physics.Frame) *tensor.Dense {
	backing := make([]uint8, len(frame.RGB))
	copy(backing, frame.RGB)
	return tensor.New(
		tensor.WithShape(frame.Height, frame.Width, 3),
		tensor.WithBacking(backing),
	)
}

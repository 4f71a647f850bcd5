package solid

import (
	"fmt"
	"math"
	"sort"

	"github.com/fogleman/gg"

	"github.com/samuelfneumann/gomanip/physics"
)

// Extent of the world region covered by a rendered frame, in world
// units from the origin along x and y
const viewExtent float64 = 0.9

// Render draws the current scene into a width x height frame. The
// renderer is a software orthographic projection looking down the
// world z axis: good enough for pixel observations, not for
// photorealism. Depth is measured from the camera's far plane toward
// the ground.
func (e *Engine) Render(width, height int) (*physics.Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: non-positive frame size %dx%d",
			width, height)
	}

	dc := gg.NewContext(width, height)
	shade := e.shade()

	if err := e.drawGround(dc, width, height, shade); err != nil {
		return nil, fmt.Errorf("render: %v", err)
	}

	// Low bodies first so higher ones paint over them
	ordered := make([]*body, 0, len(e.bodies))
	for _, b := range e.bodies {
		if b.Kind != planeShape {
			ordered = append(ordered, b)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Pos.Z() < ordered[j].Pos.Z()
	})

	scale := float64(width) / (2 * viewExtent)
	for _, b := range ordered {
		r, g, bl := shade(b.Color)
		dc.SetRGB(r, g, bl)
		switch b.Kind {
		case sphereShape:
			x, y := e.project(b.Pos.X(), b.Pos.Y(), width, height)
			dc.DrawCircle(x, y, b.Radius*scale)
			dc.Fill()
		case boxShape:
			x, y := e.project(b.Pos.X(), b.Pos.Y(), width, height)
			w := b.HalfExtents.X() * scale
			h := b.HalfExtents.Y() * scale
			yaw := 2 * math.Atan2(b.Orient.V.Z(), b.Orient.W)
			dc.Push()
			dc.RotateAbout(-yaw, x, y)
			dc.DrawRectangle(x-w, y-h, 2*w, 2*h)
			dc.Fill()
			dc.Pop()
		case articulatedShape:
			for _, l := range b.Links {
				x, y := e.project(l.Pos.X(), l.Pos.Y(), width, height)
				dc.DrawCircle(x, y, 0.02*scale)
				dc.Fill()
			}
		}
	}

	frame := &physics.Frame{
		Width:  width,
		Height: height,
		RGB:    make([]uint8, width*height*3),
		Depth:  e.depthBuffer(width, height),
	}
	im := dc.Image()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := im.At(x, y).RGBA()
			i := (y*width + x) * 3
			frame.RGB[i] = uint8(r >> 8)
			frame.RGB[i+1] = uint8(g >> 8)
			frame.RGB[i+2] = uint8(b >> 8)
		}
	}
	return frame, nil
}

// shade returns a function applying the scene light to a body color
func (e *Engine) shade() func(physics.Color) (float64, float64, float64) {
	f := e.light.Ambient + e.light.Diffuse
	if f > 1 {
		f = 1
	}
	return func(c physics.Color) (float64, float64, float64) {
		return c[0] * f * e.light.Color[0],
			c[1] * f * e.light.Color[1],
			c[2] * f * e.light.Color[2]
	}
}

// drawGround fills the frame with the ground plane's texture or color
func (e *Engine) drawGround(dc *gg.Context, width, height int,
	shade func(physics.Color) (float64, float64, float64)) error {
	var ground *body
	for _, b := range e.bodies {
		// The first horizontal plane is the ground
		if b.Kind == planeShape && b.Orient.V.Y() == 0 {
			ground = b
			break
		}
	}
	if ground == nil {
		dc.SetRGB(0, 0, 0)
		dc.Clear()
		return nil
	}
	if ground.Texture != "" {
		im, err := gg.LoadImage(ground.Texture)
		if err != nil {
			return fmt.Errorf("drawGround: %v", err)
		}
		bounds := im.Bounds()
		dc.Push()
		dc.Scale(float64(width)/float64(bounds.Dx()),
			float64(height)/float64(bounds.Dy()))
		dc.DrawImage(im, 0, 0)
		dc.Pop()
		return nil
	}
	r, g, b := shade(ground.Color)
	dc.SetRGB(r, g, b)
	dc.Clear()
	return nil
}

// project maps world (x, y) to pixel coordinates
func (e *Engine) project(wx, wy float64, width, height int) (float64,
	float64) {
	px := (wx + viewExtent) / (2 * viewExtent) * float64(width)
	py := (1 - (wy+viewExtent)/(2*viewExtent)) * float64(height)
	return px, py
}

// depthBuffer rasterizes per-pixel depth from the camera far plane:
// pixels covered by no body take the ground depth.
func (e *Engine) depthBuffer(width, height int) []float64 {
	depth := make([]float64, width*height)
	far := e.camera.Far

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			wx := (float64(x)/float64(width))*2*viewExtent - viewExtent
			wy := viewExtent - (float64(y)/float64(height))*2*viewExtent

			top := 0.0
			for _, b := range e.bodies {
				var covers bool
				var h float64
				switch b.Kind {
				case sphereShape:
					dx, dy := wx-b.Pos.X(), wy-b.Pos.Y()
					covers = dx*dx+dy*dy <= b.Radius*b.Radius
					h = b.Pos.Z() + b.Radius
				case boxShape:
					covers = math.Abs(wx-b.Pos.X()) <= b.HalfExtents.X() &&
						math.Abs(wy-b.Pos.Y()) <= b.HalfExtents.Y()
					h = b.Pos.Z() + b.HalfExtents.Z()
				}
				if covers && h > top {
					top = h
				}
			}
			depth[y*width+x] = far - top
		}
	}
	return depth
}

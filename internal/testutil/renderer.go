package testutil

import (
	"fmt"

	"github.com/roach88/puzzlebox/internal/ir"
)

// Frame records one ShowFrame call.
type Frame struct {
	Handle int
	Frame  int
}

// Distortion records one SetDistortion call.
type Distortion struct {
	Angle float64
	Scale float64
}

// Renderer is a recording render collaborator.
type Renderer struct {
	// Missing lists animation files PlayAnimation fails for.
	Missing map[string]bool

	Animations  map[int]string
	Frames      []Frame
	Stopped     []int
	Background  string
	Offset      int
	Distortions []Distortion
	ResetCount  int
	Regions     map[string]int // effect name → applications
	Cleared     []string
	Text        string // last text drawn, empty once cleared
	TextDraws   int

	nextHandle int
}

// NewRenderer creates an empty recording renderer.
func NewRenderer() *Renderer {
	return &Renderer{
		Missing:    make(map[string]bool),
		Animations: make(map[int]string),
		Regions:    make(map[string]int),
	}
}

func (r *Renderer) PlayAnimation(file string, _ ir.Rect) (int, error) {
	if r.Missing[file] {
		return 0, fmt.Errorf("animation %s not found", file)
	}
	r.nextHandle++
	r.Animations[r.nextHandle] = file
	return r.nextHandle, nil
}

func (r *Renderer) ShowFrame(handle, frame int) {
	r.Frames = append(r.Frames, Frame{Handle: handle, Frame: frame})
}

func (r *Renderer) StopAnimation(handle int) {
	r.Stopped = append(r.Stopped, handle)
	delete(r.Animations, handle)
}

func (r *Renderer) SetBackground(file string) error {
	if r.Missing[file] {
		return fmt.Errorf("image %s not found", file)
	}
	r.Background = file
	return nil
}

func (r *Renderer) ViewportOffset() int          { return r.Offset }
func (r *Renderer) SetViewportOffset(offset int) { r.Offset = offset }

func (r *Renderer) SetDistortion(angle, scale float64) {
	r.Distortions = append(r.Distortions, Distortion{Angle: angle, Scale: scale})
}

func (r *Renderer) ResetDistortion() { r.ResetCount++ }

func (r *Renderer) ApplyRegionEffect(name string, _ ir.Rect) { r.Regions[name]++ }

func (r *Renderer) ClearRegionEffect(name string, _ ir.Rect) {
	r.Cleared = append(r.Cleared, name)
}

func (r *Renderer) DrawText(text string, _ ir.Rect) {
	r.Text = text
	r.TextDraws++
}

func (r *Renderer) ClearText(ir.Rect) { r.Text = "" }

// LastFrame returns the most recent frame shown for handle, or -1.
func (r *Renderer) LastFrame(handle int) int {
	for i := len(r.Frames) - 1; i >= 0; i-- {
		if r.Frames[i].Handle == handle {
			return r.Frames[i].Frame
		}
	}
	return -1
}

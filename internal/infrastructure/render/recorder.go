package render

import (
	"sync"

	"floorview/internal/core/domain"
)

// Op is one recorded drawing call.
type Op struct {
	Name      string
	X, Y      int
	X1, Y1    int
	Size      int
	Color     domain.Color
	Text      string
	Thickness int
}

// Recorder is a headless surface that keeps every call since the last Clear.
type Recorder struct {
	mu       sync.Mutex
	width    int
	height   int
	density  int
	ops      []Op
	frames   int
	lastShow []Op
}

func NewRecorder(width, height, density int) *Recorder {
	return &Recorder{width: width, height: height, density: density}
}

func (r *Recorder) Resize(width, height int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.width, r.height = width, height
}

func (r *Recorder) record(op Op) {
	r.mu.Lock()
	r.ops = append(r.ops, op)
	r.mu.Unlock()
}

func (r *Recorder) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *Recorder) Density() int { return r.density }

func (r *Recorder) Clear(bg domain.Color) {
	r.mu.Lock()
	r.ops = r.ops[:0]
	r.mu.Unlock()
	r.record(Op{Name: "clear", Color: bg})
}

func (r *Recorder) DashedLine(x0, y0, x1, y1 int, c domain.Color, dash int) {
	r.record(Op{Name: "line", X: x0, Y: y0, X1: x1, Y1: y1, Color: c, Size: dash})
}

func (r *Recorder) Rect(x, y, w, h int, c domain.Color, thickness int) {
	r.record(Op{Name: "rect", X: x, Y: y, X1: x + w, Y1: y + h, Color: c, Thickness: thickness})
}

func (r *Recorder) Disc(cx, cy, rad int, c domain.Color) {
	r.record(Op{Name: "disc", X: cx, Y: cy, Size: rad, Color: c})
}

func (r *Recorder) Ring(cx, cy, rad int, c domain.Color) {
	r.record(Op{Name: "ring", X: cx, Y: cy, Size: rad, Color: c})
}

func (r *Recorder) Text(x, y int, s string, fg domain.Color) {
	r.record(Op{Name: "text", X: x, Y: y, Text: s, Color: fg})
}

func (r *Recorder) Show() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames++
	r.lastShow = append(r.lastShow[:0], r.ops...)
}

// Frames is the number of Show calls.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// LastFrame returns the calls of the most recent shown frame, optionally
// filtered by name.
func (r *Recorder) LastFrame(name string) []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Op
	for _, op := range r.lastShow {
		if name == "" || op.Name == name {
			out = append(out, op)
		}
	}
	return out
}

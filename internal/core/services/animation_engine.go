package services

import (
	"fmt"
	"math"
	"strings"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"

	"github.com/dustin/go-humanize"
)

// DefaultParticleStep is the per-frame progress increment.
const DefaultParticleStep = 0.02

// Particle is one part in transit from the inspection point to a bin.
type Particle struct {
	PartID      string
	Origin      domain.Point
	Destination domain.Point
	Color       domain.Color
	Progress    float64
}

// Position is the eased position of the particle in layout space.
func (p Particle) Position() domain.Point {
	return p.Origin.Lerp(p.Destination, EaseInOutQuad(p.Progress))
}

func EaseInOutQuad(t float64) float64 {
	if t < 0.5 {
		return 2 * t * t
	}
	return -1 + (4-2*t)*t
}

// Step advances every particle by increment and drops those that reach the
// end. The input is not modified.
func Step(particles []Particle, increment float64) []Particle {
	out := make([]Particle, 0, len(particles))
	for _, p := range particles {
		p.Progress += increment
		if p.Progress >= 1 {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Viewport maps layout space onto a pixel area.
type Viewport struct {
	X, Y          int
	Width, Height int
}

func (v Viewport) ToPixel(p domain.Point) (int, int) {
	x := v.X + int(math.Round(p.X*float64(max(v.Width-1, 0))))
	y := v.Y + int(math.Round(p.Y*float64(max(v.Height-1, 0))))
	return x, y
}

// Frame is everything besides particles that a paint needs.
type Frame struct {
	Dashboard domain.Dashboard
	Stream    domain.ConnState
	Service   domain.ServiceStatus
}

// AnimationEngine owns the particle set and paints the scene. It is driven
// from a single goroutine.
type AnimationEngine struct {
	layout    *domain.Layout
	step      float64
	logRows   int
	particles []Particle

	surfaceW, surfaceH int
	density            int
	scene              Viewport
}

func NewAnimationEngine(layout *domain.Layout, step float64, logRows int) (*AnimationEngine, error) {
	if layout == nil {
		return nil, fmt.Errorf("layout is required")
	}
	if step <= 0 || step > 1 {
		return nil, fmt.Errorf("particle step must be in (0,1], got %v", step)
	}
	if logRows < 0 {
		logRows = 0
	}
	return &AnimationEngine{layout: layout, step: step, logRows: logRows, density: 1}, nil
}

// Spawn starts a particle at the inspection point heading for the trigger's
// bin, or the fallback position when the bin is unknown.
func (e *AnimationEngine) Spawn(tr domain.Trigger) {
	e.particles = append(e.particles, Particle{
		PartID:      tr.PartID,
		Origin:      e.layout.Inspection,
		Destination: e.layout.Position(tr.Target),
		Color:       tr.Color,
	})
}

// Tick advances the animation by one frame.
func (e *AnimationEngine) Tick() {
	e.particles = Step(e.particles, e.step)
}

func (e *AnimationEngine) Particles() []Particle {
	out := make([]Particle, len(e.particles))
	copy(out, e.particles)
	return out
}

// Resize recomputes the scene viewport for a surface of w by h device pixels.
// One header text row sits above the scene and logRows text rows below it.
func (e *AnimationEngine) Resize(w, h, density int) {
	if density < 1 {
		density = 1
	}
	e.surfaceW, e.surfaceH, e.density = w, h, density

	top := density
	bottom := e.logRows * density
	if bottom > 0 {
		bottom += density
	}
	sceneH := h - top - bottom
	if sceneH < 2*density {
		// too small for the log pane, give everything to the scene
		bottom = 0
		sceneH = max(h-top, 1)
	}
	const margin = 2
	e.scene = Viewport{
		X:      margin,
		Y:      top + margin,
		Width:  max(w-2*margin, 1),
		Height: max(sceneH-2*margin, 1),
	}
}

func (e *AnimationEngine) Viewport() Viewport {
	return e.scene
}

// Paint draws the current state onto s. Particles are not advanced; only the
// viewport follows a surface whose size changed.
func (e *AnimationEngine) Paint(s ports.Surface, f Frame) {
	w, h := s.Size()
	if w != e.surfaceW || h != e.surfaceH || s.Density() != e.density {
		e.Resize(w, h, s.Density())
	}

	s.Clear(domain.BackgroundColor)
	e.paintPaths(s)
	e.paintNodes(s)
	e.paintBins(s, f.Dashboard.Bins)
	e.paintParticles(s)
	e.paintHeader(s, f)
	e.paintLog(s, f.Dashboard.Log)
	s.Show()
}

var (
	pathColor  = domain.Color{R: 0x33, G: 0x41, B: 0x55}
	nodeColor  = domain.Color{R: 0x64, G: 0x74, B: 0x8b}
	textColor  = domain.Color{R: 0xe2, G: 0xe8, B: 0xf0}
	mutedColor = domain.Color{R: 0x94, G: 0xa3, B: 0xb8}
)

func (e *AnimationEngine) paintPaths(s ports.Surface) {
	dash := 2 * e.density
	sx, sy := e.scene.ToPixel(e.layout.Source)
	ix, iy := e.scene.ToPixel(e.layout.Inspection)
	s.DashedLine(sx, sy, ix, iy, pathColor, dash)
	for _, b := range e.layout.Bins() {
		bx, by := e.scene.ToPixel(b.Position)
		s.DashedLine(ix, iy, bx, by, pathColor, dash)
	}
}

func (e *AnimationEngine) paintNodes(s ports.Surface) {
	r := max(e.density, 1)
	sx, sy := e.scene.ToPixel(e.layout.Source)
	s.Disc(sx, sy, r, nodeColor)
	e.centerText(s, sx, sy+r+1, "FEED", mutedColor)

	ix, iy := e.scene.ToPixel(e.layout.Inspection)
	s.Disc(ix, iy, r+1, textColor)
	s.Ring(ix, iy, r+3, nodeColor)
	e.centerText(s, ix, iy+r+4, "INSPECT", mutedColor)
}

func (e *AnimationEngine) binBox() (int, int) {
	bw := max(e.scene.Width/7, 12)
	bh := max(e.scene.Height/8, 3*e.density)
	return bw, bh
}

func (e *AnimationEngine) paintBins(s ports.Surface, states []domain.BinState) {
	counts := make(map[string]int, len(states))
	for _, b := range states {
		counts[b.ID] = b.Count
	}

	bw, bh := e.binBox()
	for _, b := range e.layout.Bins() {
		cx, cy := e.scene.ToPixel(b.Position)
		x, y := cx-bw/2, cy-bh/2

		thickness := 1
		if b.Emphasized {
			thickness = 2
		}
		s.Rect(x, y, bw, bh, b.Color, thickness)

		e.centerText(s, cx, cy-e.density, b.Label, b.Color)
		e.centerText(s, cx, cy, humanize.Comma(int64(counts[b.ID])), textColor)
	}
}

func (e *AnimationEngine) paintParticles(s ports.Surface) {
	r := max(e.density, 1)
	for _, p := range e.particles {
		x, y := e.scene.ToPixel(p.Position())
		s.Ring(x, y, r+2, p.Color.Over(domain.BackgroundColor, 1-p.Progress))
		s.Disc(x, y, r, p.Color)
	}
}

func (e *AnimationEngine) paintHeader(s ports.Surface, f Frame) {
	st := f.Dashboard.Stats
	parts := []string{
		"parts " + humanize.Comma(int64(st.Total)),
		fmt.Sprintf("pass %.1f%%", st.PassRate*100),
		fmt.Sprintf("conf %.2f", st.AvgConfidence),
		"rejected " + humanize.Comma(int64(st.Rejected)),
		"review " + humanize.Comma(int64(st.ManualReviews)),
		"stream " + f.Stream.String(),
	}
	if f.Service.Available {
		camera := "off"
		if f.Service.Camera {
			camera = f.Service.CameraBackend
			if camera == "" {
				camera = "on"
			}
		}
		parts = append(parts, "camera "+camera, fmt.Sprintf("clients %d", f.Service.WSClients))
	} else {
		parts = append(parts, "no service")
	}
	if pol := f.Dashboard.Policy; pol != nil {
		parts = append(parts, "policy "+pol.PolicyID+" "+pol.Status)
	}
	s.Text(0, 0, strings.Join(parts, "  "), textColor)
}

func (e *AnimationEngine) paintLog(s ports.Surface, log []domain.LogEntry) {
	if e.logRows == 0 {
		return
	}
	top := e.scene.Y + e.scene.Height + 2 + e.density
	if top >= e.surfaceH {
		return
	}
	for i := 0; i < e.logRows && i < len(log); i++ {
		y := top + i*e.density
		if y >= e.surfaceH {
			return
		}
		entry := log[i]
		s.Text(0, y, "■", entry.Color)
		s.Text(2, y, formatLogEntry(entry), mutedColor)
	}
}

func formatLogEntry(entry domain.LogEntry) string {
	target := entry.TargetBin
	if target == "" {
		target = "-"
	}
	return fmt.Sprintf("%s  %-10s  %-10s  %-13s  %.2f",
		entry.Timestamp.Format("15:04:05"), entry.PartID, target, entry.Action, entry.Confidence)
}

func (e *AnimationEngine) centerText(s ports.Surface, cx, y int, text string, c domain.Color) {
	s.Text(cx-len([]rune(text))/2, y, text, c)
}

package services

import (
	"strings"
	"testing"

	"floorview/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawCall struct {
	op    string
	x, y  int
	size  int
	color domain.Color
	text  string
}

type recordingSurface struct {
	w, h, density int
	calls         []drawCall
	shown         int
}

func (r *recordingSurface) Size() (int, int) { return r.w, r.h }
func (r *recordingSurface) Density() int     { return r.density }
func (r *recordingSurface) Clear(bg domain.Color) {
	r.calls = append(r.calls, drawCall{op: "clear", color: bg})
}
func (r *recordingSurface) DashedLine(x0, y0, x1, y1 int, c domain.Color, dash int) {
	r.calls = append(r.calls, drawCall{op: "line", x: x1, y: y1, color: c})
}
func (r *recordingSurface) Rect(x, y, w, h int, c domain.Color, thickness int) {
	r.calls = append(r.calls, drawCall{op: "rect", x: x, y: y, size: thickness, color: c})
}
func (r *recordingSurface) Disc(cx, cy, rad int, c domain.Color) {
	r.calls = append(r.calls, drawCall{op: "disc", x: cx, y: cy, size: rad, color: c})
}
func (r *recordingSurface) Ring(cx, cy, rad int, c domain.Color) {
	r.calls = append(r.calls, drawCall{op: "ring", x: cx, y: cy, size: rad, color: c})
}
func (r *recordingSurface) Text(x, y int, s string, fg domain.Color) {
	r.calls = append(r.calls, drawCall{op: "text", x: x, y: y, text: s, color: fg})
}
func (r *recordingSurface) Show() { r.shown++ }

func (r *recordingSurface) ops(op string) []drawCall {
	var out []drawCall
	for _, c := range r.calls {
		if c.op == op {
			out = append(out, c)
		}
	}
	return out
}

func newEngine(t *testing.T) *AnimationEngine {
	t.Helper()
	e, err := NewAnimationEngine(domain.DefaultLayout(), DefaultParticleStep, 4)
	require.NoError(t, err)
	return e
}

func TestEaseInOutQuad(t *testing.T) {
	assert.Equal(t, 0.0, EaseInOutQuad(0))
	assert.InDelta(t, 0.5, EaseInOutQuad(0.5), 1e-12)
	assert.InDelta(t, 1.0, EaseInOutQuad(1), 1e-12)
	assert.InDelta(t, 0.125, EaseInOutQuad(0.25), 1e-12)
	assert.InDelta(t, 0.875, EaseInOutQuad(0.75), 1e-12)

	prev := -1.0
	for i := 0; i <= 100; i++ {
		v := EaseInOutQuad(float64(i) / 100)
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestStep_IsPure(t *testing.T) {
	in := []Particle{{Progress: 0.1}, {Progress: 0.99}}
	out := Step(in, 0.02)

	assert.Equal(t, 0.1, in[0].Progress)
	require.Len(t, out, 1)
	assert.InDelta(t, 0.12, out[0].Progress, 1e-12)
}

func TestEngine_ProgressMonotonicAndRetires(t *testing.T) {
	e := newEngine(t)
	e.Spawn(domain.Trigger{Target: domain.BinA, Color: domain.NeutralColor})

	prev := -1.0
	frames := 0
	for len(e.Particles()) > 0 {
		ps := e.Particles()
		require.Len(t, ps, 1)
		p := ps[0]
		assert.Greater(t, p.Progress, prev, "progress strictly increases")
		assert.Less(t, p.Progress, 1.0, "a rendered particle never reaches 1")
		prev = p.Progress

		e.Tick()
		frames++
		require.Less(t, frames, 1000)
	}

	// 0.02 per frame reaches 1 after about 50 frames
	assert.InDelta(t, 50, frames, 1)
}

func TestEngine_SpawnUsesLayout(t *testing.T) {
	layout := domain.DefaultLayout()
	e := newEngine(t)

	e.Spawn(domain.Trigger{Target: domain.BinB, PartID: "p1"})
	e.Spawn(domain.Trigger{Target: "NOT_A_BIN", PartID: "p2"})

	ps := e.Particles()
	require.Len(t, ps, 2)
	binB, _ := layout.Bin(domain.BinB)
	review, _ := layout.Bin(domain.ReviewBin)

	assert.Equal(t, layout.Inspection, ps[0].Origin)
	assert.Equal(t, binB.Position, ps[0].Destination)
	assert.Equal(t, review.Position, ps[1].Destination, "unknown targets go to review")
	assert.Equal(t, layout.Inspection, ps[1].Position())
}

func TestEngine_PositionFollowsEasing(t *testing.T) {
	p := Particle{Origin: domain.Point{X: 0, Y: 0}, Destination: domain.Point{X: 1, Y: 0.5}, Progress: 0.25}
	pos := p.Position()
	assert.InDelta(t, 0.125, pos.X, 1e-12)
	assert.InDelta(t, 0.0625, pos.Y, 1e-12)
}

func TestNewAnimationEngine_Validates(t *testing.T) {
	_, err := NewAnimationEngine(nil, 0.02, 0)
	assert.Error(t, err)
	_, err = NewAnimationEngine(domain.DefaultLayout(), 0, 0)
	assert.Error(t, err)
	_, err = NewAnimationEngine(domain.DefaultLayout(), 1.5, 0)
	assert.Error(t, err)
}

func TestEngine_ResizeMapsCorners(t *testing.T) {
	e := newEngine(t)
	e.Resize(120, 80, 2)

	vp := e.Viewport()
	x0, y0 := vp.ToPixel(domain.Point{X: 0, Y: 0})
	x1, y1 := vp.ToPixel(domain.Point{X: 1, Y: 1})

	assert.Equal(t, vp.X, x0)
	assert.Equal(t, vp.Y, y0)
	assert.Equal(t, vp.X+vp.Width-1, x1)
	assert.Equal(t, vp.Y+vp.Height-1, y1)
	assert.Less(t, y1, 80-4*2, "log rows stay below the scene")

	e.Resize(240, 160, 2)
	assert.Greater(t, e.Viewport().Width, vp.Width)
}

func TestEngine_Paint(t *testing.T) {
	layout := domain.DefaultLayout()
	e := newEngine(t)
	red := domain.ColorOr("red", domain.NeutralColor)
	e.Spawn(domain.Trigger{Target: domain.BinA, Color: red})
	for i := 0; i < 25; i++ {
		e.Tick()
	}

	d := domain.NewDashboard(layout)
	for i := 0; i < 1233; i++ {
		d = Apply(d, inspection("p", domain.RejectBin, domain.ActionReject, 0.9))
	}
	d = Apply(d, inspection("part-0001", domain.BinA, domain.ActionSort, 0.9))

	s := &recordingSurface{w: 160, h: 96, density: 2}
	before := e.Particles()
	e.Paint(s, Frame{Dashboard: d, Stream: domain.StateOpen})

	assert.Equal(t, before, e.Particles(), "painting does not advance particles")
	assert.Equal(t, 1, s.shown)
	require.NotEmpty(t, s.calls)
	assert.Equal(t, "clear", s.calls[0].op)

	assert.Len(t, s.ops("line"), 1+len(layout.Bins()), "feed path plus one path per bin")

	rects := s.ops("rect")
	require.Len(t, rects, len(layout.Bins()))
	for i, b := range layout.Bins() {
		want := 1
		if b.ID == domain.RejectBin {
			want = 2
		}
		assert.Equal(t, want, rects[i].size, "border of %s", b.ID)
	}

	var texts []string
	for _, c := range s.ops("text") {
		texts = append(texts, c.text)
	}
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "1,233", "counts are humanized")
	assert.Contains(t, joined, "REJECT")
	assert.Contains(t, joined, "stream OPEN")
	assert.Contains(t, joined, "no service")
	assert.Contains(t, joined, "part-0001")

	// the particle ring fades as 1 - progress
	p := e.Particles()[0]
	wantRing := red.Over(domain.BackgroundColor, 1-p.Progress)
	found := false
	for _, c := range s.ops("ring") {
		if c.color == wantRing {
			found = true
		}
	}
	assert.True(t, found, "ring color %v not drawn", wantRing)
}

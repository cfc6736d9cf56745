// Package render implements drawing surfaces for the animation engine.
package render

import (
	"math"

	"floorview/internal/core/domain"

	"github.com/gdamore/tcell/v2"
)

// PixelsPerCell is the vertical pixel density of the half-block surface.
const PixelsPerCell = 2

const halfBlock = '▀'

type glyph struct {
	r  rune
	fg domain.Color
	ok bool
}

// TerminalSurface draws into a tcell screen. At density 2 each cell shows two
// stacked pixels using the upper half block, so the surface is cols x rows*2
// pixels. At density 1 a cell is one pixel painted as its background.
// Text is snapped to cells and drawn over the pixels.
type TerminalSurface struct {
	screen  tcell.Screen
	density int

	cols, rows int
	pixels     []domain.Color
	glyphs     []glyph
}

// NewTerminalSurface wraps screen. Densities other than 1 use PixelsPerCell.
func NewTerminalSurface(screen tcell.Screen, density int) *TerminalSurface {
	if density != 1 {
		density = PixelsPerCell
	}
	s := &TerminalSurface{screen: screen, density: density}
	s.sync()
	return s
}

// sync reallocates the buffers when the terminal size changed.
func (s *TerminalSurface) sync() {
	cols, rows := s.screen.Size()
	if cols == s.cols && rows == s.rows && s.pixels != nil {
		return
	}
	s.cols, s.rows = max(cols, 0), max(rows, 0)
	s.pixels = make([]domain.Color, s.cols*s.rows*s.density)
	s.glyphs = make([]glyph, s.cols*s.rows)
}

func (s *TerminalSurface) Size() (int, int) {
	s.sync()
	return s.cols, s.rows * s.density
}

func (s *TerminalSurface) Density() int { return s.density }

func (s *TerminalSurface) Clear(bg domain.Color) {
	s.sync()
	for i := range s.pixels {
		s.pixels[i] = bg
	}
	for i := range s.glyphs {
		s.glyphs[i] = glyph{}
	}
}

func (s *TerminalSurface) set(x, y int, c domain.Color) {
	if x < 0 || y < 0 || x >= s.cols || y >= s.rows*s.density {
		return
	}
	s.pixels[y*s.cols+x] = c
}

// DashedLine walks the line with Bresenham and draws dash pixels on, dash off.
func (s *TerminalSurface) DashedLine(x0, y0, x1, y1 int, c domain.Color, dash int) {
	if dash < 1 {
		dash = 1
	}
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy

	for i := 0; ; i++ {
		if (i/dash)%2 == 0 {
			s.set(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (s *TerminalSurface) Rect(x, y, w, h int, c domain.Color, thickness int) {
	for k := 0; k < thickness && 2*k < w && 2*k < h; k++ {
		left, top := x+k, y+k
		right, bottom := x+w-1-k, y+h-1-k
		for px := left; px <= right; px++ {
			s.set(px, top, c)
			s.set(px, bottom, c)
		}
		for py := top; py <= bottom; py++ {
			s.set(left, py, c)
			s.set(right, py, c)
		}
	}
}

func (s *TerminalSurface) Disc(cx, cy, r int, c domain.Color) {
	limit := r*r + r
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= limit {
				s.set(cx+dx, cy+dy, c)
			}
		}
	}
}

func (s *TerminalSurface) Ring(cx, cy, r int, c domain.Color) {
	for dy := -r - 1; dy <= r+1; dy++ {
		for dx := -r - 1; dx <= r+1; dx++ {
			d := math.Hypot(float64(dx), float64(dy))
			if math.Abs(d-float64(r)) < 0.5 {
				s.set(cx+dx, cy+dy, c)
			}
		}
	}
}

func (s *TerminalSurface) Text(x, y int, text string, fg domain.Color) {
	row := y / s.density
	if y < 0 || row >= s.rows {
		return
	}
	col := x
	for _, r := range text {
		if col >= s.cols {
			return
		}
		if col >= 0 {
			s.glyphs[row*s.cols+col] = glyph{r: r, fg: fg, ok: true}
		}
		col++
	}
}

// Show flushes the buffers to the screen.
func (s *TerminalSurface) Show() {
	for row := 0; row < s.rows; row++ {
		for col := 0; col < s.cols; col++ {
			upper := s.pixels[(row*s.density)*s.cols+col]

			if g := s.glyphs[row*s.cols+col]; g.ok {
				style := tcell.StyleDefault.Foreground(toTcell(g.fg)).Background(toTcell(upper))
				s.screen.SetContent(col, row, g.r, nil, style)
				continue
			}
			if s.density == 1 {
				s.screen.SetContent(col, row, ' ', nil, tcell.StyleDefault.Background(toTcell(upper)))
				continue
			}
			lower := s.pixels[(row*s.density+1)*s.cols+col]
			style := tcell.StyleDefault.Foreground(toTcell(upper)).Background(toTcell(lower))
			s.screen.SetContent(col, row, halfBlock, nil, style)
		}
	}
	s.screen.Show()
}

func toTcell(c domain.Color) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

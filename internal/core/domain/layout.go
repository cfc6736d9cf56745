package domain

import "fmt"

const (
	BinA      = "BIN_A"
	BinB      = "BIN_B"
	BinC      = "BIN_C"
	RejectBin = "REJECT_BIN"
	ReviewBin = "REVIEW_BIN"
)

// Point is a position in normalized layout space, both axes in [0,1].
type Point struct {
	X, Y float64
}

// Lerp interpolates linearly from p to q.
func (p Point) Lerp(q Point, t float64) Point {
	return Point{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

type BinSpec struct {
	ID       string
	Label    string
	Position Point
	Color    Color
	// Emphasized bins are drawn with a heavier border.
	Emphasized bool
}

// Layout holds the fixed scene geometry. It is read-only after construction.
type Layout struct {
	Source     Point
	Inspection Point
	bins       []BinSpec
	index      map[string]int
	fallback   Point
}

// NewLayout validates coordinates and resolves the fallback bin position.
func NewLayout(source, inspection Point, bins []BinSpec, fallbackID string) (*Layout, error) {
	if !inUnit(source) || !inUnit(inspection) {
		return nil, fmt.Errorf("%w: source and inspection must lie in [0,1]", ErrInvalidLayout)
	}
	if len(bins) == 0 {
		return nil, fmt.Errorf("%w: at least one bin is required", ErrInvalidLayout)
	}

	l := &Layout{
		Source:     source,
		Inspection: inspection,
		bins:       make([]BinSpec, len(bins)),
		index:      make(map[string]int, len(bins)),
	}
	copy(l.bins, bins)

	for i, b := range l.bins {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: bin %d has no id", ErrInvalidLayout, i)
		}
		if _, dup := l.index[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate bin %s", ErrInvalidLayout, b.ID)
		}
		if !inUnit(b.Position) {
			return nil, fmt.Errorf("%w: bin %s position out of range", ErrInvalidLayout, b.ID)
		}
		if b.Label == "" {
			l.bins[i].Label = b.ID
		}
		l.index[b.ID] = i
	}

	fi, ok := l.index[fallbackID]
	if !ok {
		return nil, fmt.Errorf("%w: fallback bin %s is not in the layout", ErrInvalidLayout, fallbackID)
	}
	l.fallback = l.bins[fi].Position
	return l, nil
}

// DefaultLayout is the five-bin sorting cell.
func DefaultLayout() *Layout {
	l, err := NewLayout(
		Point{X: 0.06, Y: 0.5},
		Point{X: 0.34, Y: 0.5},
		DefaultBins(),
		ReviewBin,
	)
	if err != nil {
		panic(err)
	}
	return l
}

func DefaultBins() []BinSpec {
	return []BinSpec{
		{ID: BinA, Label: "BIN A", Position: Point{X: 0.82, Y: 0.12}, Color: namedColors["red"]},
		{ID: BinB, Label: "BIN B", Position: Point{X: 0.82, Y: 0.31}, Color: namedColors["blue"]},
		{ID: BinC, Label: "BIN C", Position: Point{X: 0.82, Y: 0.50}, Color: namedColors["green"]},
		{ID: RejectBin, Label: "REJECT", Position: Point{X: 0.82, Y: 0.69}, Color: Color{R: 0xdc, G: 0x26, B: 0x26}, Emphasized: true},
		{ID: ReviewBin, Label: "REVIEW", Position: Point{X: 0.82, Y: 0.88}, Color: namedColors["yellow"]},
	}
}

// Bins returns the bins in display order.
func (l *Layout) Bins() []BinSpec {
	out := make([]BinSpec, len(l.bins))
	copy(out, l.bins)
	return out
}

func (l *Layout) Bin(id string) (BinSpec, bool) {
	i, ok := l.index[id]
	if !ok {
		return BinSpec{}, false
	}
	return l.bins[i], true
}

// Position returns the bin position, or the fallback review position for ids
// the layout does not know.
func (l *Layout) Position(id string) Point {
	if i, ok := l.index[id]; ok {
		return l.bins[i].Position
	}
	return l.fallback
}

func (l *Layout) Fallback() Point {
	return l.fallback
}

func inUnit(p Point) bool {
	return p.X >= 0 && p.X <= 1 && p.Y >= 0 && p.Y <= 1
}

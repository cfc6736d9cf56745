package ports

import "floorview/internal/core/domain"

// Surface is a pixel canvas. Coordinates are device pixels with the origin at
// the top left; Density is the number of device pixels per layout unit row.
type Surface interface {
	Size() (width, height int)
	Density() int

	Clear(bg domain.Color)
	DashedLine(x0, y0, x1, y1 int, c domain.Color, dash int)
	Rect(x, y, w, h int, c domain.Color, thickness int)
	Disc(cx, cy, r int, c domain.Color)
	Ring(cx, cy, r int, c domain.Color)
	// Text writes s starting at pixel (x, y); surfaces snap it to their own
	// glyph grid.
	Text(x, y int, s string, fg domain.Color)

	Show()
}

package domain

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an sRGB display color.
type Color struct {
	R, G, B uint8
}

var (
	NeutralColor    = Color{R: 0x9c, G: 0xa3, B: 0xaf}
	BackgroundColor = Color{R: 0x0f, G: 0x17, B: 0x2a}
)

// part colors reported by the vision classifier
var namedColors = map[string]Color{
	"red":    {R: 0xef, G: 0x44, B: 0x44},
	"blue":   {R: 0x3b, G: 0x82, B: 0xf6},
	"green":  {R: 0x22, G: 0xc5, B: 0x5e},
	"yellow": {R: 0xea, G: 0xb3, B: 0x08},
	"orange": {R: 0xf9, G: 0x73, B: 0x16},
	"purple": {R: 0xa8, G: 0x55, B: 0xf7},
	"white":  {R: 0xf8, G: 0xfa, B: 0xfc},
	"black":  {R: 0x1f, G: 0x29, B: 0x37},
	"gray":   NeutralColor,
	"grey":   NeutralColor,
}

// ParseColor accepts "#rrggbb" or a classifier color name.
func ParseColor(s string) (Color, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Color{}, false
	}
	if c, ok := namedColors[s]; ok {
		return c, true
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, false
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b}, true
}

// ColorOr parses s, returning fallback when s is empty or unparseable.
func ColorOr(s string, fallback Color) Color {
	if c, ok := ParseColor(s); ok {
		return c
	}
	return fallback
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// Over composites c with the given opacity on top of bg.
func (c Color) Over(bg Color, opacity float64) Color {
	if opacity <= 0 {
		return bg
	}
	if opacity >= 1 {
		return c
	}
	r, g, b := bg.colorful().BlendRgb(c.colorful(), opacity).Clamped().RGB255()
	return Color{R: r, G: g, B: b}
}

func (c Color) Hex() string {
	return c.colorful().Hex()
}

package netgraph

import (
	"io"

	"github.com/fogleman/gg"
)

// Canvas is the drawing surface the engine renders onto.
// Colours are hex strings such as "#ffffff".
type Canvas interface {
	Clear(color string)
	Line(x1, y1, x2, y2 float64, color string, width float64)
	Circle(x, y, r float64, fill string)
	Ring(x, y, r float64, stroke string, width float64)
	Text(s string, x, y float64, color string)
}

// BitmapCanvas draws into an in-memory RGBA bitmap.
type BitmapCanvas struct {
	dc *gg.Context
}

// NewBitmapCanvas allocates a bitmap of the given size
func NewBitmapCanvas(width, height int) *BitmapCanvas {
	return &BitmapCanvas{dc: gg.NewContext(width, height)}
}

func (c *BitmapCanvas) Clear(color string) {
	c.dc.SetHexColor(color)
	c.dc.Clear()
}

func (c *BitmapCanvas) Line(x1, y1, x2, y2 float64, color string, width float64) {
	c.dc.SetHexColor(color)
	c.dc.SetLineWidth(width)
	c.dc.DrawLine(x1, y1, x2, y2)
	c.dc.Stroke()
}

func (c *BitmapCanvas) Circle(x, y, r float64, fill string) {
	c.dc.SetHexColor(fill)
	c.dc.DrawCircle(x, y, r)
	c.dc.Fill()
}

func (c *BitmapCanvas) Ring(x, y, r float64, stroke string, width float64) {
	c.dc.SetHexColor(stroke)
	c.dc.SetLineWidth(width)
	c.dc.DrawCircle(x, y, r)
	c.dc.Stroke()
}

// Text draws s horizontally centred on x with its top edge at y.
func (c *BitmapCanvas) Text(s string, x, y float64, color string) {
	c.dc.SetHexColor(color)
	c.dc.DrawStringAnchored(s, x, y, 0.5, 1)
}

// EncodePNG writes the bitmap as PNG
func (c *BitmapCanvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

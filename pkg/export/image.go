package export

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ritzau/mindmesh/pkg/render"
)

// PNGOptions configures rasterisation.
type PNGOptions struct {
	Supersample int         // render at this multiple and downscale
	Background  color.Color // painted under everything, must be opaque
}

// DefaultPNGOptions renders at 4x on white.
func DefaultPNGOptions() PNGOptions {
	return PNGOptions{Supersample: 4, Background: color.White}
}

type canvas struct {
	img   *image.RGBA
	scale float64
	face  font.Face
}

// RenderPNG rasterises frame onto an opaque background and encodes it as
// PNG.
func RenderPNG(w io.Writer, frame render.Frame, opts PNGOptions) error {
	if opts.Supersample < 1 {
		opts.Supersample = DefaultPNGOptions().Supersample
	}
	if opts.Background == nil {
		opts.Background = color.White
	}

	width, height := int(math.Ceil(frame.Width)), int(math.Ceil(frame.Height))
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid frame size %gx%g", frame.Width, frame.Height)
	}

	large, err := rasterise(frame, width, height, opts)
	if err != nil {
		return err
	}

	final := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(final, final.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(final, final.Bounds(), large, large.Bounds(), draw.Over, nil)

	return png.Encode(w, final)
}

func rasterise(frame render.Frame, width, height int, opts PNGOptions) (*image.RGBA, error) {
	scale := opts.Supersample
	img := image.NewRGBA(image.Rect(0, 0, width*scale, height*scale))
	draw.Draw(img, img.Bounds(), image.NewUniform(opts.Background), image.Point{}, draw.Src)

	fnt, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	face, err := opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    render.LabelFontSize * float64(scale),
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create font face: %w", err)
	}
	defer face.Close()

	c := &canvas{img: img, scale: float64(scale), face: face}

	edge := parseHex(frame.Palette.Edge)
	for _, e := range frame.Edges {
		c.line(e.X1, e.Y1, e.X2, e.Y2, render.EdgeWidth, edge, render.EdgeOpacity)
	}
	for _, n := range frame.Nodes {
		c.circle(n.X, n.Y, n.Radius, n.StrokeWidth, parseHex(n.Fill), parseHex(n.Stroke))
	}
	label := parseHex(frame.Palette.Label)
	for _, n := range frame.Nodes {
		c.text(n.X+render.LabelOffsetX, n.Y+render.LabelOffsetY, n.Label, label)
	}
	return img, nil
}

// blend paints col over the pixel at (x, y) with the given coverage.
func (c *canvas) blend(x, y int, col color.RGBA, alpha float64) {
	if !(image.Point{X: x, Y: y}).In(c.img.Bounds()) {
		return
	}
	if alpha >= 1 {
		c.img.SetRGBA(x, y, col)
		return
	}
	dst := c.img.RGBAAt(x, y)
	mix := func(s, d uint8) uint8 {
		return uint8(math.Round(float64(s)*alpha + float64(d)*(1-alpha)))
	}
	c.img.SetRGBA(x, y, color.RGBA{mix(col.R, dst.R), mix(col.G, dst.G), mix(col.B, dst.B), 255})
}

// line draws a segment in viewport coordinates.
func (c *canvas) line(x1, y1, x2, y2, width float64, col color.RGBA, alpha float64) {
	x1, y1, x2, y2 = x1*c.scale, y1*c.scale, x2*c.scale, y2*c.scale
	half := width * c.scale / 2

	minX := int(math.Floor(math.Min(x1, x2) - half))
	maxX := int(math.Ceil(math.Max(x1, x2) + half))
	minY := int(math.Floor(math.Min(y1, y2) - half))
	maxY := int(math.Ceil(math.Max(y1, y2) + half))

	dx, dy := x2-x1, y2-y1
	lenSq := dx*dx + dy*dy

	for py := minY; py <= maxY; py++ {
		for px := minX; px <= maxX; px++ {
			fx, fy := float64(px)+0.5, float64(py)+0.5
			t := 0.0
			if lenSq > 0 {
				t = math.Max(0, math.Min(1, ((fx-x1)*dx+(fy-y1)*dy)/lenSq))
			}
			if math.Hypot(fx-(x1+t*dx), fy-(y1+t*dy)) <= half {
				c.blend(px, py, col, alpha)
			}
		}
	}
}

// circle draws a filled disc with a stroke centred on its boundary.
func (c *canvas) circle(cx, cy, r, strokeWidth float64, fill, stroke color.RGBA) {
	cx, cy, r = cx*c.scale, cy*c.scale, r*c.scale
	half := strokeWidth * c.scale / 2
	outer := r + half

	for py := int(math.Floor(cy - outer)); py <= int(math.Ceil(cy+outer)); py++ {
		for px := int(math.Floor(cx - outer)); px <= int(math.Ceil(cx+outer)); px++ {
			d := math.Hypot(float64(px)+0.5-cx, float64(py)+0.5-cy)
			switch {
			case d <= r-half:
				c.blend(px, py, fill, 1)
			case d <= outer:
				c.blend(px, py, stroke, 1)
			}
		}
	}
}

// text draws s with its baseline starting at (x, y).
func (c *canvas) text(x, y float64, s string, col color.RGBA) {
	d := &font.Drawer{
		Dst:  c.img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.Point26_6{X: fixed.I(int(x * c.scale)), Y: fixed.I(int(y * c.scale))},
	}
	d.DrawString(s)
}

// parseHex reads #rgb or #rrggbb; anything else is the unknown-node gray.
func parseHex(s string) color.RGBA {
	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return parseHex(render.UnknownColor)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return parseHex(render.UnknownColor)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}
}

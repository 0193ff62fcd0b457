// Package overlay burns text banners into an image before it is encoded.
package overlay

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Limits on overlay lists
const (
	MaxOverlays = 20
	MaxTextLen  = 256
)

// Placement is the vertical position of a banner
type Placement string

const (
	PlaceTop    Placement = "top"
	PlaceBottom Placement = "bottom"
	PlaceCenter Placement = "center"
)

// Align is the horizontal position of a banner
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Spec describes one text banner
type Spec struct {
	Text       string    `yaml:"text"`
	Placement  Placement `yaml:"placement"`  // top, bottom or center (default top)
	Align      Align     `yaml:"align"`      // left, center or right (default center)
	Color      string    `yaml:"color"`      // Text colour, #rrggbb (default white)
	Background string    `yaml:"background"` // Banner colour, #rrggbb, empty for none
	Padding    int       `yaml:"padding"`    // Pixels around the text before scaling
	Scale      int       `yaml:"scale"`      // Integer magnification of the 7x13 font (default 2)
}

// Banner returns a centered white-on-black banner.
func Banner(text string, placement Placement) Spec {
	return Spec{
		Text:       text,
		Placement:  placement,
		Align:      AlignCenter,
		Color:      "#ffffff",
		Background: "#000000",
		Padding:    2,
		Scale:      2,
	}
}

// withDefaults fills zero fields
func (s Spec) withDefaults() Spec {
	if s.Placement == "" {
		s.Placement = PlaceTop
	}
	if s.Align == "" {
		s.Align = AlignCenter
	}
	if s.Color == "" {
		s.Color = "#ffffff"
	}
	if s.Scale <= 0 {
		s.Scale = 2
	}
	if s.Padding < 0 {
		s.Padding = 0
	}
	return s
}

// Validate checks a single overlay
func (s Spec) Validate() error {
	if s.Text == "" {
		return fmt.Errorf("overlay text is empty")
	}
	if len(s.Text) > MaxTextLen {
		return fmt.Errorf("overlay text exceeds %d characters", MaxTextLen)
	}
	s = s.withDefaults()
	switch s.Placement {
	case PlaceTop, PlaceBottom, PlaceCenter:
	default:
		return fmt.Errorf("invalid overlay placement %q", s.Placement)
	}
	switch s.Align {
	case AlignLeft, AlignCenter, AlignRight:
	default:
		return fmt.Errorf("invalid overlay alignment %q", s.Align)
	}
	if _, err := ParseColor(s.Color); err != nil {
		return err
	}
	if s.Background != "" {
		if _, err := ParseColor(s.Background); err != nil {
			return err
		}
	}
	return nil
}

// ParseColor parses #rrggbb or rrggbb
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q (want #rrggbb)", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Apply draws every overlay onto dst in order.
func Apply(dst draw.Image, specs []Spec) error {
	if len(specs) > MaxOverlays {
		return fmt.Errorf("too many overlays: %d (max %d)", len(specs), MaxOverlays)
	}
	for i, s := range specs {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("overlay %d: %w", i, err)
		}
	}
	for _, s := range specs {
		render(dst, s.withDefaults())
	}
	return nil
}

// render draws one validated overlay
func render(dst draw.Image, s Spec) {
	face := basicfont.Face7x13
	fg, _ := ParseColor(s.Color)

	textW := font.MeasureString(face, s.Text).Ceil()
	metrics := face.Metrics()
	textH := metrics.Height.Ceil()

	// Draw at 1:1 first, then magnify
	banner := image.NewRGBA(image.Rect(0, 0, textW+2*s.Padding, textH+2*s.Padding))
	if s.Background != "" {
		bg, _ := ParseColor(s.Background)
		draw.Draw(banner, banner.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}
	d := &font.Drawer{
		Dst:  banner,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(s.Padding, s.Padding+metrics.Ascent.Ceil()),
	}
	d.DrawString(s.Text)

	bounds := dst.Bounds()
	scale := s.Scale
	for scale > 1 && banner.Bounds().Dx()*scale > bounds.Dx() {
		scale--
	}
	w := banner.Bounds().Dx() * scale
	h := banner.Bounds().Dy() * scale

	var x, y int
	switch s.Align {
	case AlignLeft:
		x = bounds.Min.X
	case AlignRight:
		x = bounds.Max.X - w
	default:
		x = bounds.Min.X + (bounds.Dx()-w)/2
	}
	switch s.Placement {
	case PlaceBottom:
		y = bounds.Max.Y - h
	case PlaceCenter:
		y = bounds.Min.Y + (bounds.Dy()-h)/2
	default:
		y = bounds.Min.Y
	}

	draw.NearestNeighbor.Scale(dst, image.Rect(x, y, x+w, y+h), banner, banner.Bounds(), draw.Over, nil)
}

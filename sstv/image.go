package sstv

import (
	"image"
	"image/color"
	"image/draw"
)

// Image is an owned RGB raster, three bytes per pixel, row-major.
// It satisfies image.Image and draw.Image so the x/image scalers can
// read from and write into it.
type Image struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewImage allocates a black image of the given size.
func NewImage(width, height int) *Image {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// FromImage copies any decoded image into an RGB raster. Alpha is dropped.
func FromImage(src image.Image) *Image {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	img := NewImage(b.Dx(), b.Dy())

	// Fast path for the common decoder output
	if rgba, ok := src.(*image.RGBA); ok {
		for y := 0; y < img.Height; y++ {
			row := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			for x := 0; x < img.Width; x++ {
				o := (y*img.Width + x) * 3
				img.Pix[o] = row[x*4]
				img.Pix[o+1] = row[x*4+1]
				img.Pix[o+2] = row[x*4+2]
			}
		}
		return img
	}

	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			c := color.RGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			img.SetRGB(x, y, c.R, c.G, c.B)
		}
	}
	return img
}

// valid reports whether the raster has pixels and a consistent buffer.
func (m *Image) valid() bool {
	return m != nil && m.Width > 0 && m.Height > 0 && len(m.Pix) == m.Width*m.Height*3
}

// RGB returns the pixel at (x, y).
func (m *Image) RGB(x, y int) (r, g, b uint8) {
	o := (y*m.Width + x) * 3
	return m.Pix[o], m.Pix[o+1], m.Pix[o+2]
}

// SetRGB stores the pixel at (x, y).
func (m *Image) SetRGB(x, y int, r, g, b uint8) {
	o := (y*m.Width + x) * 3
	m.Pix[o] = r
	m.Pix[o+1] = g
	m.Pix[o+2] = b
}

// Clone returns a deep copy.
func (m *Image) Clone() *Image {
	c := &Image{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

func (m *Image) ColorModel() color.Model { return color.RGBAModel }

func (m *Image) Bounds() image.Rectangle { return image.Rect(0, 0, m.Width, m.Height) }

func (m *Image) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(m.Bounds())) {
		return color.RGBA{}
	}
	r, g, b := m.RGB(x, y)
	return color.RGBA{R: r, G: g, B: b, A: 0xff}
}

func (m *Image) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(m.Bounds())) {
		return
	}
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	m.SetRGB(x, y, rgba.R, rgba.G, rgba.B)
}

// RGBA converts the raster to an opaque *image.RGBA.
func (m *Image) RGBA() *image.RGBA {
	dst := image.NewRGBA(m.Bounds())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			o := (y*m.Width + x) * 3
			d := dst.PixOffset(x, y)
			dst.Pix[d] = m.Pix[o]
			dst.Pix[d+1] = m.Pix[o+1]
			dst.Pix[d+2] = m.Pix[o+2]
			dst.Pix[d+3] = 0xff
		}
	}
	return dst
}

var _ draw.Image = (*Image)(nil)

package sstv

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromImageCopiesPixels(t *testing.T) {
	src := image.NewNRGBA(image.Rect(5, 5, 9, 7))
	src.Set(5, 5, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	src.Set(8, 6, color.NRGBA{R: 200, G: 150, B: 100, A: 255})

	img := FromImage(src)
	assert.Equal(t, 4, img.Width)
	assert.Equal(t, 2, img.Height)

	r, g, b := img.RGB(0, 0)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b})
	r, g, b = img.RGB(3, 1)
	assert.Equal(t, [3]uint8{200, 150, 100}, [3]uint8{r, g, b})
}

func TestFromImageRGBAFastPath(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 3))
	src.Set(2, 1, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	img := FromImage(src)
	r, g, b := img.RGB(2, 1)
	assert.Equal(t, [3]uint8{1, 2, 3}, [3]uint8{r, g, b})

	back := img.RGBA()
	assert.Equal(t, color.RGBA{R: 1, G: 2, B: 3, A: 255}, back.RGBAAt(2, 1))
}

func TestImageSetOutOfBoundsIgnored(t *testing.T) {
	img := NewImage(2, 2)
	img.Set(5, 5, color.White)
	assert.Equal(t, make([]uint8, 12), img.Pix)
	assert.Equal(t, color.RGBA{}, img.At(-1, 0))
}

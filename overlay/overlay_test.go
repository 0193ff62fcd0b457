package overlay

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func whiteCanvas(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

func countColor(img *image.RGBA, rect image.Rectangle, c color.RGBA) int {
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if img.RGBAAt(x, y) == c {
				n++
			}
		}
	}
	return n
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#ff8000")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 128, B: 0, A: 255}, c)

	c, err = ParseColor("0000ff")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, c)

	for _, bad := range []string{"", "#fff", "#gggggg", "red"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestApplyTopBanner(t *testing.T) {
	img := whiteCanvas(320, 256)
	spec := Banner("N0CALL", PlaceTop)
	spec.Color = "#ff0000"

	require.NoError(t, Apply(img, []Spec{spec}))

	// 7x13 glyphs, padding 2, scale 2 -> 34 rows
	banner := image.Rect(0, 0, 320, 34)
	red := color.RGBA{R: 255, A: 255}
	black := color.RGBA{A: 255}
	assert.Greater(t, countColor(img, banner, red), 0)
	assert.Greater(t, countColor(img, banner, black), 0)

	// Below the banner the canvas is untouched
	rest := image.Rect(0, 40, 320, 256)
	assert.Equal(t, rest.Dx()*rest.Dy(), countColor(img, rest, white))
}

func TestApplyBottomRightBanner(t *testing.T) {
	img := whiteCanvas(320, 256)
	spec := Spec{Text: "FN31", Placement: PlaceBottom, Align: AlignRight, Background: "#0000ff", Padding: 2, Scale: 1}

	require.NoError(t, Apply(img, []Spec{spec}))

	blue := color.RGBA{B: 255, A: 255}
	assert.Equal(t, blue, img.RGBAAt(319, 255))
	assert.Equal(t, white, img.RGBAAt(0, 255))
	assert.Equal(t, white, img.RGBAAt(319, 0))
}

func TestApplyShrinksScaleToFit(t *testing.T) {
	img := whiteCanvas(100, 100)
	spec := Banner("ABCDEFGHIJ", PlaceTop)
	spec.Scale = 4

	require.NoError(t, Apply(img, []Spec{spec}))
	// 10 glyphs * 7 + 4 padding = 74 wide, so scale drops to 1 and the banner is 17 rows
	assert.Equal(t, white, img.RGBAAt(50, 20))
}

func TestApplyValidation(t *testing.T) {
	img := whiteCanvas(10, 10)

	assert.Error(t, Apply(img, []Spec{{Text: ""}}))
	assert.Error(t, Apply(img, []Spec{{Text: strings.Repeat("A", MaxTextLen+1)}}))
	assert.Error(t, Apply(img, []Spec{{Text: "A", Placement: "left"}}))
	assert.Error(t, Apply(img, []Spec{{Text: "A", Align: "top"}}))
	assert.Error(t, Apply(img, []Spec{{Text: "A", Color: "blue"}}))
	assert.Error(t, Apply(img, make([]Spec, MaxOverlays+1)))
}

package sstv

import (
	"image"
	"math"
	"strings"

	"golang.org/x/image/draw"
)

// AspectMode selects how a source image is fitted to the protocol raster
type AspectMode string

const (
	// AspectCenter scales to cover the target and crops the overflow symmetrically
	AspectCenter AspectMode = "center"
	// AspectPad scales to fit inside the target and fills the border with black
	AspectPad AspectMode = "pad"
	// AspectStretch resizes directly to the target, ignoring proportions
	AspectStretch AspectMode = "stretch"
)

// AspectModes lists the accepted aspect mode names.
var AspectModes = []AspectMode{AspectCenter, AspectPad, AspectStretch}

// ParseAspectMode validates an aspect mode name. Names are lowercase only.
func ParseAspectMode(name string) (AspectMode, error) {
	for _, m := range AspectModes {
		if string(m) == name {
			return m, nil
		}
	}
	names := make([]string, len(AspectModes))
	for i, m := range AspectModes {
		names[i] = string(m)
	}
	return "", newError(KindInvalidAspectMode, "unknown aspect mode %q (valid: %s)", name, strings.Join(names, ", "))
}

// scaler is the interpolator used for all aspect operations
var scaler draw.Interpolator = draw.CatmullRom

// Normalize returns a new image of exactly width x height derived from src.
// src is never modified.
func Normalize(src *Image, width, height int, mode AspectMode) (*Image, error) {
	if !src.valid() {
		return nil, newError(KindNoInputImage, "input image is empty")
	}
	if _, err := ParseAspectMode(string(mode)); err != nil {
		return nil, err
	}

	if src.Width == width && src.Height == height {
		return src.Clone(), nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	rgba := src.RGBA()

	switch mode {
	case AspectStretch:
		scaler.Scale(dst, dst.Bounds(), rgba, rgba.Bounds(), draw.Src, nil)

	case AspectCenter:
		scaler.Scale(dst, dst.Bounds(), rgba, coverCrop(src.Width, src.Height, width, height), draw.Src, nil)

	case AspectPad:
		draw.Draw(dst, dst.Bounds(), image.Black, image.Point{}, draw.Src)
		scaler.Scale(dst, fitRect(src.Width, src.Height, width, height), rgba, rgba.Bounds(), draw.Src, nil)
	}

	return FromImage(dst), nil
}

// coverCrop returns the centered source rectangle with the target's proportions.
func coverCrop(sw, sh, tw, th int) image.Rectangle {
	scale := math.Max(float64(tw)/float64(sw), float64(th)/float64(sh))
	cw := clampInt(int(math.Round(float64(tw)/scale)), 1, sw)
	ch := clampInt(int(math.Round(float64(th)/scale)), 1, sh)
	x0 := (sw - cw) / 2
	y0 := (sh - ch) / 2
	return image.Rect(x0, y0, x0+cw, y0+ch)
}

// fitRect returns the centered target rectangle the scaled source occupies.
func fitRect(sw, sh, tw, th int) image.Rectangle {
	scale := math.Min(float64(tw)/float64(sw), float64(th)/float64(sh))
	w := clampInt(int(math.Round(float64(sw)*scale)), 1, tw)
	h := clampInt(int(math.Round(float64(sh)*scale)), 1, th)
	x0 := (tw - w) / 2
	y0 := (th - h) / 2
	return image.Rect(x0, y0, x0+w, y0+h)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

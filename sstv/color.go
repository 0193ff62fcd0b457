package sstv

import "math"

// PixelFreq maps a channel value to its scan frequency, 0 -> 1500 Hz, 255 -> 2300 Hz.
func PixelFreq(v uint8) float64 {
	return FreqBlack + float64(v)*(FreqWhite-FreqBlack)/255
}

// clip rounds and limits a value to the 0-255 range
func clip(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// rgbToYUV converts a pixel to full-range luma and colour differences.
// The chroma scaling is the inverse of the receive-side reconstruction
// R = Y + 1.40(R-Y - 127.5), B = Y + 1.78(B-Y - 127.5).
func rgbToYUV(r, g, b uint8) (y, ry, by float64) {
	rf, gf, bf := float64(r), float64(g), float64(b)
	y = 0.299*rf + 0.587*gf + 0.114*bf
	ry = 127.5 + (rf-y)/1.40
	by = 127.5 + (bf-y)/1.78
	return y, ry, by
}

// Package analysis measures generated sample streams: dominant tone,
// single-frequency power and level statistics.
package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

/*
 * FFT Helper Functions
 * Using gonum's FFT implementation
 */

// minFFTSize bounds the frequency resolution of DominantFrequency
const minFFTSize = 4096

// ToFloat converts biased unsigned samples to the range [-1, 1).
func ToFloat(samples []uint16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = (float64(s) - 32768) / 32768
	}
	return out
}

// nextPow2 returns the smallest power of two >= n
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// hann returns a Hann window of length n
func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

// Spectrum returns magnitudes of the Hann-windowed, zero-padded input and
// the bin width in Hz.
func Spectrum(x []float64, sampleRate int) ([]float64, float64) {
	n := nextPow2(len(x))
	if n < minFFTSize {
		n = minFFTSize
	}
	input := make([]float64, n)
	w := hann(len(x))
	for i, v := range x {
		input[i] = v * w[i]
	}

	coeffs := fourier.NewFFT(n).Coefficients(nil, input)
	mags := make([]float64, len(coeffs))
	for i, c := range coeffs {
		mags[i] = cmplx.Abs(c)
	}
	return mags, float64(sampleRate) / float64(n)
}

// DominantFrequency returns the frequency of the strongest spectral peak,
// refined by parabolic interpolation over the neighbouring bins.
// It returns 0 for an empty or silent input.
func DominantFrequency(samples []uint16, sampleRate int) float64 {
	if len(samples) == 0 || sampleRate <= 0 {
		return 0
	}
	mags, binHz := Spectrum(ToFloat(samples), sampleRate)

	peak := 0
	for i := 1; i < len(mags); i++ {
		if mags[i] > mags[peak] {
			peak = i
		}
	}
	if mags[peak] == 0 {
		return 0
	}
	if peak == 0 || peak == len(mags)-1 {
		return float64(peak) * binHz
	}

	a, b, c := mags[peak-1], mags[peak], mags[peak+1]
	offset := 0.0
	if den := a - 2*b + c; den != 0 {
		offset = 0.5 * (a - c) / den
	}
	return (float64(peak) + offset) * binHz
}

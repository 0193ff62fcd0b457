package analysis

import "math"

// GoertzelFilter implements the Goertzel algorithm for single-frequency detection
type GoertzelFilter struct {
	sampleRate int
	frequency  float64
	coeff      float64
	cosw, sinw float64

	// State variables
	s1, s2 float64
	count  int
}

// NewGoertzelFilter creates a new Goertzel filter
func NewGoertzelFilter(sampleRate int, frequency float64) *GoertzelFilter {
	omega := 2.0 * math.Pi * frequency / float64(sampleRate)
	return &GoertzelFilter{
		sampleRate: sampleRate,
		frequency:  frequency,
		coeff:      2.0 * math.Cos(omega),
		cosw:       math.Cos(omega),
		sinw:       math.Sin(omega),
	}
}

// Process feeds one sample
func (gf *GoertzelFilter) Process(sample float64) {
	s0 := sample + gf.coeff*gf.s1 - gf.s2
	gf.s2 = gf.s1
	gf.s1 = s0
	gf.count++
}

// Magnitude returns the normalized amplitude at the filter frequency for
// the samples processed so far. A full-scale sine reads about 0.5.
func (gf *GoertzelFilter) Magnitude() float64 {
	if gf.count == 0 {
		return 0
	}
	real := gf.s1 - gf.s2*gf.cosw
	imag := gf.s2 * gf.sinw
	return math.Sqrt(real*real+imag*imag) / float64(gf.count)
}

// Reset clears the filter state
func (gf *GoertzelFilter) Reset() {
	gf.s1 = 0
	gf.s2 = 0
	gf.count = 0
}

// ToneLevel returns the Goertzel magnitude of samples at freq.
func ToneLevel(samples []uint16, sampleRate int, freq float64) float64 {
	gf := NewGoertzelFilter(sampleRate, freq)
	for _, v := range ToFloat(samples) {
		gf.Process(v)
	}
	return gf.Magnitude()
}

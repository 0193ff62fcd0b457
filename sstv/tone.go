package sstv

import "math"

/*
 * Phase-continuous tone synthesis
 *
 * Samples are unsigned 16-bit with a 32768 bias. Each segment asks for
 * round((duration + carry) * rate) samples and carries the rounding error
 * into the next segment, so sub-sample segments (Martin pixels are about
 * ten samples at 22050 Hz) never accumulate drift across a frame.
 */

const (
	// SampleBias is the unsigned sample value representing zero amplitude.
	SampleBias = 32768

	// DefaultAmplitude is the peak level as a fraction of full scale.
	DefaultAmplitude = 0.65

	// releaseTime bounds the fade applied when a tone runs into silence.
	releaseTime = 5e-3
)

// Synthesizer appends tones to a stream. It owns the oscillator phase and
// the fractional-sample carry, so one Synthesizer must be used per stream.
type Synthesizer struct {
	stream *Stream
	rate   float64
	scale  float64

	theta float64 // Oscillator phase, radians in [0, 2pi)
	carry float64 // Rounding error carried into the next segment (seconds)

	lastFreq float64 // Frequency of the most recent tone, 0 after silence
}

// NewSynthesizer creates a synthesizer writing into stream.
// amplitude is a fraction of full scale; values outside (0, 1] use DefaultAmplitude.
func NewSynthesizer(stream *Stream, amplitude float64) *Synthesizer {
	if amplitude <= 0 || amplitude > 1 {
		amplitude = DefaultAmplitude
	}
	return &Synthesizer{
		stream: stream,
		rate:   float64(stream.SampleRate),
		scale:  amplitude * 32767,
	}
}

// sampleCount returns the number of samples for a segment and updates the carry.
func (s *Synthesizer) sampleCount(duration float64) int {
	if duration <= 0 {
		return 0
	}
	want := duration + s.carry
	n := int(math.Round(want * s.rate))
	if n < 0 {
		n = 0
	}
	s.carry = want - float64(n)/s.rate
	return n
}

// quantize converts a signed level in [-1, 1] times scale to a biased sample.
func (s *Synthesizer) quantize(v float64) uint16 {
	x := math.Round(SampleBias + v)
	if x < 0 {
		x = 0
	} else if x > math.MaxUint16 {
		x = math.MaxUint16
	}
	return uint16(x)
}

// advance steps the oscillator one sample at freq.
func (s *Synthesizer) advance(freq float64) {
	s.theta += 2 * math.Pi * freq / s.rate
	if s.theta >= 2*math.Pi {
		s.theta = math.Mod(s.theta, 2*math.Pi)
	}
}

// Tone appends a phase-continuous tone and returns the number of samples written.
// A frequency of zero appends silence.
func (s *Synthesizer) Tone(freq, duration float64) int {
	if freq <= 0 {
		return s.Silence(duration)
	}
	n := s.sampleCount(duration)
	if n == 0 {
		return 0
	}
	buf := s.stream.grow(n)
	for i := range buf {
		buf[i] = s.quantize(math.Sin(s.theta) * s.scale)
		s.advance(freq)
	}
	s.lastFreq = freq
	return n
}

// Silence appends bias-level samples. If a tone was playing, its last
// few milliseconds already in the stream are faded out in place with a
// raised-cosine release, so the silence itself carries no tone energy.
// The oscillator phase restarts at zero for the next tone.
func (s *Synthesizer) Silence(duration float64) int {
	n := s.sampleCount(duration)
	if n == 0 {
		return 0
	}
	if s.lastFreq > 0 {
		s.release()
	}
	buf := s.stream.grow(n)
	for i := range buf {
		buf[i] = SampleBias
	}

	s.theta = 0
	s.lastFreq = 0
	return n
}

// release fades the tail of the stream to bias. The final sample of the
// ramp is exactly bias.
func (s *Synthesizer) release() {
	tail := s.stream.Samples
	r := int(math.Round(releaseTime * s.rate))
	if r > len(tail) {
		r = len(tail)
	}
	tail = tail[len(tail)-r:]
	for i := range tail {
		env := 0.5 * (1 + math.Cos(math.Pi*float64(i+1)/float64(r)))
		tail[i] = s.quantize((float64(tail[i]) - SampleBias) * env)
	}
}

// KeyedTone appends a tone shaped by raised-cosine attack and release ramps
// of length ramp seconds. The ramp is limited to half the tone.
// The tone starts and ends at zero amplitude, so it may follow or precede silence.
func (s *Synthesizer) KeyedTone(freq, duration, ramp float64) int {
	n := s.sampleCount(duration)
	if n == 0 {
		return 0
	}
	r := int(math.Round(ramp * s.rate))
	if r > n/2 {
		r = n / 2
	}
	buf := s.stream.grow(n)
	for i := range buf {
		env := 1.0
		switch {
		case r > 0 && i < r:
			t := float64(i) / float64(r)
			env = 0.5 * (1 - math.Cos(math.Pi*t))
		case r > 0 && i >= n-r:
			t := float64(i-(n-r)+1) / float64(r)
			env = 0.5 * (1 + math.Cos(math.Pi*t))
		}
		buf[i] = s.quantize(math.Sin(s.theta) * s.scale * env)
		s.advance(freq)
	}
	// Envelope already closed; the following silence needs no release.
	s.lastFreq = 0
	s.theta = 0
	return n
}

// Carry returns the rounding error currently carried, in seconds.
func (s *Synthesizer) Carry() float64 {
	return s.carry
}

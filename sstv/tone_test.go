package sstv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// maxSineStep is the largest step a full-amplitude sine at freq can take between samples
func maxSineStep(freq float64, rate int) float64 {
	return DefaultAmplitude * 32767 * 2 * math.Sin(math.Pi*freq/float64(rate))
}

func TestToneCarryKeepsTotalLength(t *testing.T) {
	stream := NewStream(8000, 0)
	synth := NewSynthesizer(stream, 0)

	const pixel = 0.4576e-3
	for i := 0; i < 1000; i++ {
		synth.Tone(1500+float64(i%800), pixel)
	}

	want := math.Round(1000 * pixel * 8000)
	assert.InDelta(t, want, float64(stream.Len()), 1)
	assert.Less(t, math.Abs(synth.Carry()), 1.0/8000)
}

func TestToneNonPositiveDurationWritesNothing(t *testing.T) {
	stream := NewStream(22050, 0)
	synth := NewSynthesizer(stream, 0)

	assert.Equal(t, 0, synth.Tone(1900, 0))
	assert.Equal(t, 0, synth.Tone(1900, -1))
	assert.Equal(t, 0, synth.Silence(0))
	assert.Equal(t, 0, stream.Len())
}

func TestSilenceIsExactBias(t *testing.T) {
	stream := NewStream(8000, 0)
	synth := NewSynthesizer(stream, 0)

	n := synth.Silence(0.5)
	require.Equal(t, 4000, n)
	for _, s := range stream.Samples {
		require.Equal(t, uint16(SampleBias), s)
	}
}

func TestToneAmplitudeStaysInRange(t *testing.T) {
	stream := NewStream(48000, 0)
	synth := NewSynthesizer(stream, 0)
	synth.Tone(1200, 0.1)

	peak := 0.0
	for _, s := range stream.Samples {
		peak = math.Max(peak, math.Abs(float64(s)-SampleBias))
	}
	assert.InDelta(t, DefaultAmplitude*32767, peak, 100)
}

func TestToneBoundaryIsPhaseContinuous(t *testing.T) {
	const rate = 11025
	stream := NewStream(rate, 0)
	synth := NewSynthesizer(stream, 0)

	freqs := []float64{1500, 2300, 1200, 1900, 1500, 2300}
	for _, f := range freqs {
		synth.Tone(f, 0.0013)
	}

	limit := maxSineStep(2300, rate) + 2
	for i := 1; i < stream.Len(); i++ {
		d := math.Abs(float64(stream.Samples[i]) - float64(stream.Samples[i-1]))
		require.LessOrEqual(t, d, limit, "step at sample %d", i)
	}
}

func TestSilenceReleasesPreviousTone(t *testing.T) {
	const rate = 22050
	stream := NewStream(rate, 0)
	synth := NewSynthesizer(stream, 0)

	synth.Tone(2300, 0.0101)
	split := stream.Len()
	synth.Silence(0.05)
	require.Equal(t, split+int(math.Round(0.05*rate)), stream.Len())

	release := int(math.Round(releaseTime * float64(stream.SampleRate)))
	limit := maxSineStep(2300, rate) + 2
	for i := split - release - 1; i < split+2; i++ {
		d := math.Abs(float64(stream.Samples[i+1]) - float64(stream.Samples[i]))
		require.LessOrEqual(t, d, limit)
	}
	// The ramp closes inside the tone, so the silence is pure bias
	assert.Equal(t, uint16(SampleBias), stream.Samples[split-1])
	for _, s := range stream.Samples[split:] {
		require.Equal(t, uint16(SampleBias), s)
	}
}

func TestKeyedToneStartsAndEndsAtBias(t *testing.T) {
	stream := NewStream(8000, 0)
	synth := NewSynthesizer(stream, 0)

	n := synth.KeyedTone(700, 0.06, 0.015)
	require.Equal(t, 480, n)

	assert.InDelta(t, SampleBias, float64(stream.Samples[0]), 1)
	assert.InDelta(t, SampleBias, float64(stream.Samples[n-1]), 1)

	peak := 0.0
	for _, s := range stream.Samples {
		peak = math.Max(peak, math.Abs(float64(s)-SampleBias))
	}
	assert.Greater(t, peak, 0.9*DefaultAmplitude*32767)
}

func TestStreamInt16RemovesBias(t *testing.T) {
	s := &Stream{SampleRate: 8000, Samples: []uint16{0, 32768, 65535}}
	assert.Equal(t, []int16{-32768, 0, 32767}, s.Int16())
	assert.InDelta(t, 3.0/8000, s.Duration(), 1e-12)
}

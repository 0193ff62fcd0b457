package sstv

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/ka9q_sstvtx/analysis"
)

// gradientImage returns a deterministic test image
func gradientImage(w, h int) *Image {
	img := NewImage(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGB(x, y, uint8(x), uint8(y), uint8(x^y))
		}
	}
	return img
}

func baseOptions(protocol string, rate int) Options {
	return Options{
		Protocol:   protocol,
		Aspect:     AspectCenter,
		SampleRate: rate,
	}
}

func TestEncodeDurationPerProtocol(t *testing.T) {
	const rate = 8000
	src := gradientImage(400, 300)

	for _, p := range Protocols {
		t.Run(p.Key, func(t *testing.T) {
			stream, err := Encode(src, baseOptions(p.Key, rate))
			require.NoError(t, err)

			// Published image time plus the VIS header
			assert.InEpsilon(t, p.NominalTime+VISDuration, stream.Duration(), 0.01)

			want := p.TransmissionTime()
			assert.InDelta(t, math.Round(want*rate), float64(stream.Len()), 2)

			img := stream.SectionSamples(SectionImage)
			assert.InEpsilon(t, p.NominalTime, float64(len(img))/rate, 0.01)

			vis, ok := stream.Section(SectionVIS)
			require.True(t, ok)
			assert.Equal(t, 0, vis.Start)
			assert.InDelta(t, VISDuration*rate, float64(vis.Len()), 1)
		})
	}
}

func TestEncodeWithPreambleTrailerAndCW(t *testing.T) {
	opts := baseOptions("r36", 11025)
	opts.Preamble = true
	opts.Trailer = true
	opts.CW = &CWSpec{Callsign: "N0CALL", WPM: 20, ToneHz: 700}

	p, _ := Lookup("r36")
	stream, err := Encode(gradientImage(320, 240), opts)
	require.NoError(t, err)

	names := make([]string, len(stream.Sections))
	for i, s := range stream.Sections {
		names[i] = s.Name
	}
	assert.Equal(t, []string{SectionPreamble, SectionVIS, SectionImage, SectionTrailer, SectionCWGap, SectionCW}, names)

	// Sections are contiguous and cover the stream
	for i := 1; i < len(stream.Sections); i++ {
		assert.Equal(t, stream.Sections[i-1].End, stream.Sections[i].Start)
	}
	assert.Equal(t, stream.Len(), stream.Sections[len(stream.Sections)-1].End)

	assert.InEpsilon(t, opts.ExpectedDuration(p), stream.Duration(), 0.01)
}

func TestEncodeCWTailFrequency(t *testing.T) {
	const rate = 22050
	opts := baseOptions("r36", rate)
	opts.CW = &CWSpec{Callsign: "N0CALL", WPM: 20, ToneHz: 700}

	stream, err := Encode(gradientImage(320, 240), opts)
	require.NoError(t, err)

	cw := stream.SectionSamples(SectionCW)
	require.NotEmpty(t, cw)
	assert.InDelta(t, 700, analysis.DominantFrequency(cw, rate), 10)

	tone := analysis.ToneLevel(cw, rate, 700)
	for _, f := range []float64{1200, 1500, 1900, 2300} {
		assert.Greater(t, tone, 20*analysis.ToneLevel(cw, rate, f), "%v Hz", f)
	}

	// The last image tone is released before the gap starts
	gap := stream.SectionSamples(SectionCWGap)
	require.NotEmpty(t, gap)
	for _, s := range gap {
		require.Equal(t, uint16(SampleBias), s)
	}
}

func TestEncodeCWGapHasNoImageTones(t *testing.T) {
	const rate = 22050
	opts := baseOptions("m1", rate)
	opts.CW = &CWSpec{Callsign: "N0CALL", WPM: 20, ToneHz: 700}

	stream, err := Encode(gradientImage(320, 256), opts)
	require.NoError(t, err)

	gap := stream.SectionSamples(SectionCWGap)
	require.NotEmpty(t, gap)
	head := gap[:int(math.Round(releaseTime*float64(stream.SampleRate)))]
	for _, f := range []float64{1200, 1500, 1900, 2300} {
		assert.Zero(t, analysis.ToneLevel(head, rate, f), "%v Hz", f)
	}
}

func TestEncodeRobot36GrayImage(t *testing.T) {
	const rate = 11025
	p, _ := Lookup("r36")
	stream, err := Encode(solidImage(320, 240, 128, 128, 128), baseOptions("r36", rate))
	require.NoError(t, err)

	img, _ := stream.Section(SectionImage)
	want := PixelFreq(128) // ~1902 Hz

	for _, line := range []int{0, 1, 100, 239} {
		lineStart := float64(img.Start)/rate + float64(line)*p.LineTime
		yStart := lineStart + p.SyncTime + p.PorchTime
		cStart := yStart + p.ScanTime + p.SeptrTime + robotChromaPorch

		y := stream.Samples[int((yStart+0.002)*rate):int((yStart+p.ScanTime-0.002)*rate)]
		c := stream.Samples[int((cStart+0.002)*rate):int((cStart+p.ChromaTime-0.002)*rate)]

		assert.InDelta(t, want, analysis.DominantFrequency(y, rate), 10, "luma line %d", line)
		assert.InDelta(t, want, analysis.DominantFrequency(c, rate), 10, "chroma line %d", line)
	}
}

func TestEncodeMartinSyncPulses(t *testing.T) {
	const rate = 48000
	p, _ := Lookup("m1")
	stream, err := Encode(solidImage(320, 256, 255, 255, 255), baseOptions("m1", rate))
	require.NoError(t, err)

	img, _ := stream.Section(SectionImage)
	lineStart := float64(img.Start)/rate + 5*p.LineTime
	green := lineStart + p.SyncTime + p.PorchTime

	g := stream.Samples[int((green+0.005)*rate):int((green+p.ScanTime-0.005)*rate)]
	assert.InDelta(t, FreqWhite, analysis.DominantFrequency(g, rate), 10)

	sync := stream.Samples[int(lineStart*rate):int((lineStart+p.SyncTime)*rate)]
	assert.Greater(t, analysis.ToneLevel(sync, rate, FreqSync), 5*analysis.ToneLevel(sync, rate, FreqWhite))
}

func TestEncodeIsDeterministic(t *testing.T) {
	src := gradientImage(200, 150)
	opts := baseOptions("s2", 8000)
	opts.CW = NewCWSpec("K1ABC")

	a, err := Encode(src, opts)
	require.NoError(t, err)
	b, err := Encode(src, opts)
	require.NoError(t, err)
	assert.Equal(t, a.Samples, b.Samples)
}

func TestEncodeConcurrent(t *testing.T) {
	src := gradientImage(320, 240)
	opts := baseOptions("r36", 8000)
	opts.CW = &CWSpec{Callsign: "n0call", WPM: 30, ToneHz: 700, Prefix: "sstv de"}

	want, err := Encode(src, opts)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Stream, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Encode(src, opts)
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, want.Samples, r.Samples)
	}
}

func TestEncodeDCBias(t *testing.T) {
	stream, err := Encode(gradientImage(320, 256), baseOptions("m2", 8000))
	require.NoError(t, err)

	mean := analysis.Mean(stream.Samples)
	assert.InDelta(t, SampleBias, mean, 0.005*SampleBias)
}

func TestEncodeValidation(t *testing.T) {
	img := gradientImage(64, 64)

	tests := []struct {
		name   string
		modify func(*Options)
		want   error
	}{
		{"rate 7999", func(o *Options) { o.SampleRate = 7999 }, ErrInvalidSampleRate},
		{"rate 48001", func(o *Options) { o.SampleRate = 48001 }, ErrInvalidSampleRate},
		{"uppercase protocol", func(o *Options) { o.Protocol = "M1" }, ErrInvalidProtocol},
		{"aspect", func(o *Options) { o.Aspect = "fill" }, ErrInvalidAspectMode},
		{"wpm 0", func(o *Options) { o.CW = &CWSpec{Callsign: "N0CALL", ToneHz: 800} }, ErrInvalidWpm},
		{"wpm 51", func(o *Options) { o.CW = &CWSpec{Callsign: "N0CALL", WPM: 51, ToneHz: 800} }, ErrInvalidWpm},
		{"tone 399", func(o *Options) { o.CW = &CWSpec{Callsign: "N0CALL", WPM: 15, ToneHz: 399} }, ErrInvalidTone},
		{"tone 2001", func(o *Options) { o.CW = &CWSpec{Callsign: "N0CALL", WPM: 15, ToneHz: 2001} }, ErrInvalidTone},
		{"cw without call", func(o *Options) { o.CW = &CWSpec{WPM: 20} }, ErrCwRequiresCallsign},
		{"bad call", func(o *Options) { o.CW = NewCWSpec("N0_CALL") }, ErrInvalidCallsign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := baseOptions("m1", 22050)
			tt.modify(&opts)
			stream, err := Encode(img, opts)
			assert.Nil(t, stream)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestEncodeSampleRateBoundsAccepted(t *testing.T) {
	img := gradientImage(32, 32)
	for _, rate := range []int{MinSampleRate, MaxSampleRate} {
		opts := baseOptions("r36", rate)
		_, err := opts.Validate()
		assert.NoError(t, err)
	}
	_, err := Encode(img, baseOptions("r36", MinSampleRate))
	assert.NoError(t, err)
}

func TestEncodeRejectsMissingImage(t *testing.T) {
	_, err := Encode(nil, baseOptions("m1", 22050))
	assert.True(t, errors.Is(err, ErrNoInputImage))

	_, err = Encode(&Image{Width: 10, Height: 10}, baseOptions("m1", 22050))
	assert.True(t, errors.Is(err, ErrNoInputImage))
}

func TestRenderRequiresFittedImage(t *testing.T) {
	p, _ := Lookup("m1")
	_, err := Render(gradientImage(100, 100), p, baseOptions("m1", 8000))
	assert.True(t, errors.Is(err, ErrNoInputImage))
}

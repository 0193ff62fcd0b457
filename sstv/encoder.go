package sstv

import (
	"log"
	"math"
)

// Sample rate limits
const (
	MinSampleRate     = 8000
	MaxSampleRate     = 48000
	DefaultSampleRate = 22050
)

// Options configures one encode. The zero value is not valid; Protocol,
// Aspect and SampleRate must be set.
type Options struct {
	Protocol   string     // Protocol key, e.g. "m1"
	Aspect     AspectMode // How the source is fitted to the protocol raster
	SampleRate int        // Output sample rate in Hz
	CW         *CWSpec    // Optional Morse identifier, nil for none
	CWGap      float64    // Silence before the identifier in seconds, 0 for DefaultCWGap
	Preamble   bool       // Send silence and attention tones before the VIS header
	Trailer    bool       // Send end-of-frame tones after the image
	Amplitude  float64    // Peak level as a fraction of full scale, 0 for DefaultAmplitude
	Verbose    bool       // Log progress
}

func (o *Options) logf(format string, args ...interface{}) {
	if o.Verbose {
		log.Printf("[SSTV Encoder] "+format, args...)
	}
}

// Validate checks every option and returns the selected protocol.
// Checks run in the order protocol, aspect, sample rate, CW.
func (o *Options) Validate() (*Protocol, error) {
	p, err := Lookup(o.Protocol)
	if err != nil {
		return nil, err
	}
	if _, err := ParseAspectMode(string(o.Aspect)); err != nil {
		return nil, err
	}
	if o.SampleRate < MinSampleRate || o.SampleRate > MaxSampleRate {
		return nil, newError(KindInvalidSampleRate, "sample rate %d Hz out of range (%d-%d)", o.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if o.CW != nil {
		if err := o.CW.Validate(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// cwGap returns the configured gap, falling back to the default
func (o *Options) cwGap() float64 {
	if o.CWGap > 0 {
		return o.CWGap
	}
	return DefaultCWGap
}

// ExpectedDuration returns the nominal stream length for the options in seconds.
func (o *Options) ExpectedDuration(p *Protocol) float64 {
	d := p.TransmissionTime()
	if o.Preamble {
		d += PreambleDuration
	}
	if o.Trailer {
		d += TrailerDuration
	}
	if o.CW != nil {
		d += o.cwGap() + CWDuration(o.CW)
	}
	return d
}

// Prepare validates the options and fits img to the protocol raster.
// The returned image is a new buffer; img is not modified.
func Prepare(img *Image, opts Options) (*Image, *Protocol, error) {
	if !img.valid() {
		return nil, nil, newError(KindNoInputImage, "no input image")
	}
	p, err := opts.Validate()
	if err != nil {
		return nil, nil, err
	}
	norm, err := Normalize(img, p.Width, p.Height, opts.Aspect)
	if err != nil {
		return nil, nil, err
	}
	opts.logf("Normalized %dx%d -> %dx%d (%s)", img.Width, img.Height, p.Width, p.Height, opts.Aspect)
	return norm, p, nil
}

// Render synthesizes the transmission for an image already fitted to p.
func Render(img *Image, p *Protocol, opts Options) (*Stream, error) {
	if !img.valid() || img.Width != p.Width || img.Height != p.Height {
		return nil, newError(KindNoInputImage, "image must be %dx%d for %s", p.Width, p.Height, p.Name)
	}
	if _, err := opts.Validate(); err != nil {
		return nil, err
	}

	hint := int(math.Ceil(opts.ExpectedDuration(p)*float64(opts.SampleRate))) + 16
	stream := NewStream(opts.SampleRate, hint)
	synth := NewSynthesizer(stream, opts.Amplitude)

	opts.logf("Encoding %s (VIS %d) at %d Hz, expected %.2fs", p.Name, p.VIS, opts.SampleRate, opts.ExpectedDuration(p))

	if opts.Preamble {
		stream.mark(SectionPreamble, synth.WritePreamble)
	}
	stream.mark(SectionVIS, func() { synth.WriteVIS(p.VIS) })

	encode, ok := lineEncoders[p.Format]
	if !ok {
		return nil, newError(KindInvalidProtocol, "no line encoder for %s", p.Name)
	}
	progress := func(line int) {
		if (line+1)%64 == 0 || line+1 == p.Height {
			opts.logf("Line %d/%d", line+1, p.Height)
		}
	}
	stream.mark(SectionImage, func() { encode(synth, p, img, progress) })

	if opts.Trailer {
		stream.mark(SectionTrailer, synth.WriteTrailer)
	}

	if opts.CW != nil {
		stream.mark(SectionCWGap, func() { synth.Silence(opts.cwGap()) })
		var cwErr error
		stream.mark(SectionCW, func() { cwErr = synth.WriteCW(opts.CW) })
		if cwErr != nil {
			return nil, cwErr
		}
		opts.logf("CW ID %q at %d WPM, %d Hz", opts.CW.Message(), opts.CW.WPM, opts.CW.ToneHz)
	}

	opts.logf("Done: %d samples, %.3fs", stream.Len(), stream.Duration())
	return stream, nil
}

// Encode fits img to the selected protocol and renders the full transmission.
// No samples are produced unless every option is valid.
func Encode(img *Image, opts Options) (*Stream, error) {
	norm, p, err := Prepare(img, opts)
	if err != nil {
		return nil, err
	}
	return Render(norm, p, opts)
}

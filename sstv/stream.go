package sstv

// Section names recorded on a stream
const (
	SectionPreamble = "preamble"
	SectionVIS      = "vis"
	SectionImage    = "image"
	SectionTrailer  = "trailer"
	SectionCWGap    = "cw-gap"
	SectionCW       = "cw"
)

// Section is a named half-open sample range [Start, End)
type Section struct {
	Name  string
	Start int
	End   int
}

// Len returns the number of samples in the section.
func (s Section) Len() int {
	return s.End - s.Start
}

// Stream is a mono sequence of unsigned 16-bit samples biased at 32768.
type Stream struct {
	SampleRate int
	Samples    []uint16
	Sections   []Section
}

// NewStream creates an empty stream. sizeHint preallocates sample capacity.
func NewStream(sampleRate, sizeHint int) *Stream {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Stream{
		SampleRate: sampleRate,
		Samples:    make([]uint16, 0, sizeHint),
	}
}

// grow extends the stream by n samples and returns the new tail for writing.
func (s *Stream) grow(n int) []uint16 {
	start := len(s.Samples)
	if cap(s.Samples)-start < n {
		next := make([]uint16, start, 2*cap(s.Samples)+n)
		copy(next, s.Samples)
		s.Samples = next
	}
	s.Samples = s.Samples[:start+n]
	return s.Samples[start:]
}

// Len returns the number of samples.
func (s *Stream) Len() int {
	return len(s.Samples)
}

// Duration returns the stream length in seconds.
func (s *Stream) Duration() float64 {
	if s.SampleRate == 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}

// Section returns the named section and whether it exists.
func (s *Stream) Section(name string) (Section, bool) {
	for _, sec := range s.Sections {
		if sec.Name == name {
			return sec, true
		}
	}
	return Section{}, false
}

// SectionSamples returns the samples of a named section, or nil.
func (s *Stream) SectionSamples(name string) []uint16 {
	sec, ok := s.Section(name)
	if !ok {
		return nil
	}
	return s.Samples[sec.Start:sec.End]
}

// mark runs fn and records the samples it appended as a section.
func (s *Stream) mark(name string, fn func()) {
	start := len(s.Samples)
	fn()
	s.Sections = append(s.Sections, Section{Name: name, Start: start, End: len(s.Samples)})
}

// Int16 converts the stream to signed samples by removing the bias.
func (s *Stream) Int16() []int16 {
	out := make([]int16, len(s.Samples))
	for i, v := range s.Samples {
		out[i] = int16(int32(v) - SampleBias)
	}
	return out
}

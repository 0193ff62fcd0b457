package sstv

/*
 * VIS Code Generation
 *
 * VIS (Vertical Interval Signaling) Code Structure:
 * - 300ms 1900 Hz calibration tone (leader)
 * - 10ms 1200 Hz break
 * - 300ms 1900 Hz leader
 * - 30ms 1200 Hz start bit
 * - 7 x 30ms data bits, LSB first (1100 Hz = 1, 1300 Hz = 0)
 * - 30ms parity bit, even parity over the data bits
 * - 30ms 1200 Hz stop bit
 */

const (
	visLeaderTime = 300e-3
	visBreakTime  = 10e-3
	visBitTime    = 30e-3

	// FreqVISOne and FreqVISZero key the VIS data and parity bits.
	FreqVISOne  = 1100.0
	FreqVISZero = 1300.0

	// VISDuration is the total length of the VIS header.
	VISDuration = 2*visLeaderTime + visBreakTime + 10*visBitTime
)

// tone is a single (frequency, duration) step
type tone struct {
	freq float64
	dur  float64
}

// Preamble: 500ms silence, then eight 100ms attention tones
var preambleTones = []tone{
	{0, 500e-3},
	{1900, 100e-3}, {1500, 100e-3}, {1900, 100e-3}, {1500, 100e-3},
	{2300, 100e-3}, {1500, 100e-3}, {2300, 100e-3}, {1500, 100e-3},
}

// Trailer: end-of-frame tones, then 500ms silence
var trailerTones = []tone{
	{2300, 300e-3},
	{1200, 10e-3},
	{2300, 100e-3},
	{1200, 30e-3},
	{0, 500e-3},
}

// PreambleDuration and TrailerDuration are the lengths of the optional sections.
var (
	PreambleDuration = totalDuration(preambleTones)
	TrailerDuration  = totalDuration(trailerTones)
)

func totalDuration(tones []tone) float64 {
	var d float64
	for _, t := range tones {
		d += t.dur
	}
	return d
}

// VISBitOffset returns the start of bit i (0-6 data, 7 parity) measured
// from the beginning of the VIS header, and the bit length, in seconds.
func VISBitOffset(i int) (start, length float64) {
	return 2*visLeaderTime + visBreakTime + float64(i+1)*visBitTime, visBitTime
}

// visBits returns the 8 transmitted bits (7 data LSB first, then even parity).
func visBits(code uint8) [8]bool {
	var bits [8]bool
	ones := 0
	for i := 0; i < 7; i++ {
		bits[i] = code&(1<<i) != 0
		if bits[i] {
			ones++
		}
	}
	bits[7] = ones%2 == 1
	return bits
}

// visTones returns the tone sequence of the VIS header for a code.
func visTones(code uint8) []tone {
	seq := make([]tone, 0, 14)
	seq = append(seq,
		tone{FreqLeader, visLeaderTime},
		tone{FreqSync, visBreakTime},
		tone{FreqLeader, visLeaderTime},
		tone{FreqSync, visBitTime}, // start bit
	)
	for _, bit := range visBits(code) {
		if bit {
			seq = append(seq, tone{FreqVISOne, visBitTime})
		} else {
			seq = append(seq, tone{FreqVISZero, visBitTime})
		}
	}
	return append(seq, tone{FreqSync, visBitTime}) // stop bit
}

func (s *Synthesizer) play(tones []tone) {
	for _, t := range tones {
		s.Tone(t.freq, t.dur)
	}
}

// WriteVIS appends the VIS header for code.
func (s *Synthesizer) WriteVIS(code uint8) {
	s.play(visTones(code))
}

// WritePreamble appends the attention preamble.
func (s *Synthesizer) WritePreamble() {
	s.play(preambleTones)
}

// WriteTrailer appends the end-of-frame trailer.
func (s *Synthesizer) WriteTrailer() {
	s.play(trailerTones)
}

package sstv

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

/*
 * CW (Morse) Station Identification
 *
 * Timing, in units of 1200/WPM ms (PARIS standard):
 * - dit = 1, dah = 3
 * - gap between elements of a character = 1
 * - gap between characters = 3
 * - gap between words = 7
 *
 * Each dit and dah is keyed with raised-cosine attack and release ramps
 * so the identifier does not splatter.
 */

// CW limits and defaults
const (
	DefaultWPM    = 15
	DefaultToneHz = 800
	DefaultCWGap  = 2.0 // seconds of silence between image and CW

	MinWPM         = 1
	MaxWPM         = 50
	MinToneHz      = 400
	MaxToneHz      = 2000
	MaxCallsignLen = 49

	minRampTime = 5e-3
	maxRampTime = 40e-3
)

// CWSpec configures the trailing Morse identification.
// A zero WPM or ToneHz is only valid together with an empty callsign,
// which NewCWSpec avoids by filling in the defaults.
type CWSpec struct {
	Callsign string
	WPM      int
	ToneHz   int
	Prefix   string // Sent before the callsign, e.g. "SSTV DE"
}

// NewCWSpec returns a spec for callsign with default speed and tone.
func NewCWSpec(callsign string) *CWSpec {
	return &CWSpec{
		Callsign: callsign,
		WPM:      DefaultWPM,
		ToneHz:   DefaultToneHz,
	}
}

// toUpper uppercases s with a fresh Caser; Casers are stateful and must
// not be shared between concurrent encodes.
func toUpper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// NormalizeCallsign validates a callsign and returns it uppercased.
// Accepted characters are letters, digits and '/'.
func NormalizeCallsign(callsign string) (string, error) {
	if callsign == "" {
		return "", newError(KindInvalidCallsign, "callsign is empty")
	}
	if len(callsign) > MaxCallsignLen {
		return "", newError(KindInvalidCallsign, "callsign exceeds %d characters", MaxCallsignLen)
	}
	for _, c := range callsign {
		isAlnum := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
		if !isAlnum && c != '/' {
			return "", newError(KindInvalidCallsign, "callsign %q contains invalid character %q", callsign, c)
		}
	}
	return toUpper(callsign), nil
}

// Validate checks the identifier settings. Errors are reported in the order
// callsign, speed, tone.
func (c *CWSpec) Validate() error {
	if c.Callsign == "" {
		if c.WPM != 0 || c.ToneHz != 0 {
			return newError(KindCwRequiresCallsign, "CW speed or tone given without a callsign")
		}
		return newError(KindInvalidCallsign, "callsign is empty")
	}
	if _, err := NormalizeCallsign(c.Callsign); err != nil {
		return err
	}
	if c.WPM < MinWPM || c.WPM > MaxWPM {
		return newError(KindInvalidWpm, "CW speed %d WPM out of range (%d-%d)", c.WPM, MinWPM, MaxWPM)
	}
	if c.ToneHz < MinToneHz || c.ToneHz > MaxToneHz {
		return newError(KindInvalidTone, "CW tone %d Hz out of range (%d-%d)", c.ToneHz, MinToneHz, MaxToneHz)
	}
	if _, err := MorseElements(c.Message()); err != nil {
		return err
	}
	return nil
}

// Message returns the text sent in Morse.
func (c *CWSpec) Message() string {
	call := toUpper(c.Callsign)
	prefix := strings.TrimSpace(toUpper(c.Prefix))
	if prefix == "" {
		return call
	}
	return prefix + " " + call
}

// ElementKind is a keyed element or a gap
type ElementKind int

const (
	Dit ElementKind = iota
	Dah
	ElementGap // between dits and dahs of one character
	CharGap    // between characters
	WordGap    // between words
)

// Element is one step of a Morse sequence, in units
type Element struct {
	Kind  ElementKind
	Units int
}

// Keyed reports whether the element carries tone.
func (e Element) Keyed() bool {
	return e.Kind == Dit || e.Kind == Dah
}

// MorseElements converts text to the element sequence. Runs of spaces
// collapse into one word gap; leading and trailing spaces are ignored.
// A character without a Morse pattern is an InvalidCallsign error.
func MorseElements(text string) ([]Element, error) {
	words := strings.Fields(toUpper(text))
	var seq []Element
	for wi, word := range words {
		if wi > 0 {
			seq = append(seq, Element{WordGap, 7})
		}
		for ci, c := range word {
			pattern, ok := charToMorse(c)
			if !ok {
				return nil, newError(KindInvalidCallsign, "character %q has no Morse representation", c)
			}
			if ci > 0 {
				seq = append(seq, Element{CharGap, 3})
			}
			for i, sym := range pattern {
				if i > 0 {
					seq = append(seq, Element{ElementGap, 1})
				}
				if sym == '.' {
					seq = append(seq, Element{Dit, 1})
				} else {
					seq = append(seq, Element{Dah, 3})
				}
			}
		}
	}
	return seq, nil
}

// UnitDuration returns the length of one Morse unit at wpm, in seconds.
func UnitDuration(wpm int) float64 {
	return 1.2 / float64(wpm)
}

// rampTime is a quarter of the element, bounded to 5-40ms.
func rampTime(duration float64) float64 {
	return math.Min(math.Max(duration*0.25, minRampTime), maxRampTime)
}

// CWDuration returns the nominal length of the identifier in seconds.
func CWDuration(c *CWSpec) float64 {
	seq, err := MorseElements(c.Message())
	if err != nil || c.WPM <= 0 {
		return 0
	}
	units := 0
	for _, e := range seq {
		units += e.Units
	}
	return float64(units) * UnitDuration(c.WPM)
}

// WriteCW appends the Morse identifier. The spec must already be valid.
func (s *Synthesizer) WriteCW(c *CWSpec) error {
	seq, err := MorseElements(c.Message())
	if err != nil {
		return err
	}
	unit := UnitDuration(c.WPM)
	freq := float64(c.ToneHz)
	for _, e := range seq {
		d := float64(e.Units) * unit
		if e.Keyed() {
			s.KeyedTone(freq, d, rampTime(d))
		} else {
			s.Silence(d)
		}
	}
	return nil
}

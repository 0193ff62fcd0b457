package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the level statistics of a block of samples
type Summary struct {
	Samples  int     `json:"samples"`          // Number of samples
	Duration float64 `json:"duration_seconds"` // Length in seconds
	Mean     float64 `json:"mean"`             // Mean of the raw unsigned samples
	RMS      float64 `json:"rms"`              // RMS about the 32768 bias, as a fraction of full scale
	Peak     float64 `json:"peak"`             // Largest absolute deviation from bias, as a fraction of full scale
	MaxStep  int     `json:"max_step"`         // Largest sample-to-sample difference
	StdDev   float64 `json:"std_dev"`          // Standard deviation of the raw samples
}

// Summarize computes level statistics for samples.
func Summarize(samples []uint16, sampleRate int) Summary {
	s := Summary{Samples: len(samples)}
	if len(samples) == 0 {
		return s
	}
	if sampleRate > 0 {
		s.Duration = float64(len(samples)) / float64(sampleRate)
	}

	raw := make([]float64, len(samples))
	for i, v := range samples {
		raw[i] = float64(v)
	}
	s.Mean, s.StdDev = stat.MeanStdDev(raw, nil)

	x := ToFloat(samples)
	s.RMS = floats.Norm(x, 2) / math.Sqrt(float64(len(x)))
	s.Peak = math.Max(math.Abs(floats.Max(x)), math.Abs(floats.Min(x)))
	s.MaxStep = MaxStep(samples)
	return s
}

// MaxStep returns the largest absolute difference between adjacent samples.
func MaxStep(samples []uint16) int {
	max := 0
	for i := 1; i < len(samples); i++ {
		d := int(samples[i]) - int(samples[i-1])
		if d < 0 {
			d = -d
		}
		if d > max {
			max = d
		}
	}
	return max
}

// Mean returns the mean of the raw unsigned samples.
func Mean(samples []uint16) float64 {
	if len(samples) == 0 {
		return 0
	}
	raw := make([]float64, len(samples))
	for i, v := range samples {
		raw[i] = float64(v)
	}
	return stat.Mean(raw, nil)
}

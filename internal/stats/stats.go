// Package stats reduces timing samples to the min/mean/stddev triple reported
// per backend and size.
package stats

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var ErrEmptyInput = errors.New("empty sample sequence")

// Summary is the reduction of one sample sequence. Times are in seconds.
type Summary struct {
	Min    float64
	Mean   float64
	StdDev float64
	Count  int
}

// Mean returns the arithmetic mean of samples.
func Mean(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyInput
	}
	return stat.Mean(samples, nil), nil
}

// StdDev returns the population standard deviation (dividing by N).
func StdDev(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyInput
	}
	_, std := popMeanStdDev(samples)
	return std, nil
}

func Min(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrEmptyInput
	}
	return floats.Min(samples), nil
}

// Summarize computes every field of Summary in one pass over the bounds and
// one over the moments.
func Summarize(samples []float64) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, ErrEmptyInput
	}
	mean, std := popMeanStdDev(samples)
	return Summary{
		Min:    floats.Min(samples),
		Mean:   mean,
		StdDev: std,
		Count:  len(samples),
	}, nil
}

// popMeanStdDev pins the deviation of constant input to exactly zero; the
// compensated two-pass sum can otherwise leave a residue of a few ulps.
func popMeanStdDev(samples []float64) (mean, std float64) {
	mean, std = stat.PopMeanStdDev(samples, nil)
	if floats.Min(samples) == floats.Max(samples) {
		return samples[0], 0
	}
	return mean, std
}

package vad

import (
	"math"

	"github.com/TreasureProject/voxagent/pkg/audio"
)

// Features holds the three per-window classification criteria. Exposed so
// callers can log why a window was (not) classified as speech.
type Features struct {
	// RMS is the root-mean-square energy of the normalised window.
	RMS float64

	// ZCR is the fraction of adjacent sample pairs whose sign differs.
	ZCR float64

	// Centroid is the magnitude-weighted spectral-content proxy computed
	// over sample pairs treated as a coarse complex-magnitude series.
	Centroid float64
}

// rmsEnergy computes the root-mean-square of samples normalised to [-1, 1].
func rmsEnergy(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := audio.Normalize(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// zeroCrossingRate computes the fraction of adjacent-sample sign changes.
// Zero samples count as non-negative.
func zeroCrossingRate(samples []int16) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i] >= 0) != (samples[i-1] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// spectralCentroid computes a cheap spectral-content proxy: consecutive
// sample pairs are treated as the real/imaginary parts of a coarse complex
// series and the centroid of their magnitudes is taken. Voiced speech
// spreads energy across the series and scores high; near-silence and steady
// tones concentrate it and score low.
func spectralCentroid(samples []int16) float64 {
	if len(samples) < 2 {
		return 0
	}

	n := len(samples) / 2
	magnitudes := make([]float64, 0, n)
	for i := 0; i+1 < len(samples); i += 2 {
		re := audio.Normalize(samples[i])
		im := audio.Normalize(samples[i+1])
		magnitudes = append(magnitudes, math.Sqrt(re*re+im*im))
	}

	var total float64
	for _, m := range magnitudes {
		total += m
	}
	if total <= 0 {
		return 0
	}

	var centroid float64
	for i, m := range magnitudes {
		centroid += float64(i) * m / total
	}
	return centroid
}

// analyze computes all three features over one analysis window.
func analyze(samples []int16) Features {
	return Features{
		RMS:      rmsEnergy(samples),
		ZCR:      zeroCrossingRate(samples),
		Centroid: spectralCentroid(samples),
	}
}

// classify applies the majority vote: speech is declared when at least two
// of the three criteria pass.
func classify(f Features, cfg Config) bool {
	votes := 0
	if f.RMS > cfg.EnergyThreshold {
		votes++
	}
	if f.ZCR > cfg.ZCRMin && f.ZCR < cfg.ZCRMax {
		votes++
	}
	if f.Centroid > cfg.SpectralFloor {
		votes++
	}
	return votes >= 2
}

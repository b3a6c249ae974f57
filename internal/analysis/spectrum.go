package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// PowerSpectrum returns |F_k|^2/n of the mean-free series for k in [0, n/2].
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}

	var mean float64
	for _, v := range data {
		mean += v
	}
	mean /= float64(n)

	centered := make([]float64, n)
	for i, v := range data {
		centered[i] = v - mean
	}

	spectrum := fft.FFTReal(centered)
	ps := make([]float64, n/2+1)
	for i := range ps {
		a := cmplx.Abs(spectrum[i])
		ps[i] = a * a / float64(n)
	}
	return ps
}

// Frequencies returns the frequency of each PowerSpectrum bin for n samples
// spaced dt apart.
func Frequencies(n int, dt float64) []float64 {
	if n == 0 || dt <= 0 {
		return nil
	}
	freqs := make([]float64, n/2+1)
	for i := range freqs {
		freqs[i] = float64(i) / (float64(n) * dt)
	}
	return freqs
}

// DominantFrequency returns the frequency and power of the strongest bin
// above zero frequency.
func DominantFrequency(data []float64, dt float64) (float64, float64) {
	ps := PowerSpectrum(data)
	freqs := Frequencies(len(data), dt)
	if len(ps) < 2 || freqs == nil {
		return 0, 0
	}

	best := 1
	for i := 2; i < len(ps); i++ {
		if ps[i] > ps[best] {
			best = i
		}
	}
	return freqs[best], ps[best]
}

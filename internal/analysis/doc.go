// Package analysis characterizes stored trajectories.
//
//   - [PowerSpectrum]: power spectrum of an observable series
//   - [DominantFrequency]: strongest non-zero frequency of a series
//   - [NewPhasePortrait]: position/velocity portrait of one atom coordinate
//
// A harmonically bound atom shows up as a single spectral peak at
// sqrt(k/m)/(2 pi) and an ellipse in its phase portrait:
//
//	freq, _ := analysis.DominantFrequency(series, dt)
package analysis

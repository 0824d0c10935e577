package analysis

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

// Autocorrelation returns the normalized autocorrelation of series for lags
// 0..maxLag, computed through a zero-padded FFT. A constant series returns
// nil.
func Autocorrelation(series []float64, maxLag int) []float64 {
	n := len(series)
	if n < 2 {
		return nil
	}
	if maxLag >= n || maxLag < 0 {
		maxLag = n - 1
	}

	mean := stat.Mean(series, nil)
	size := 1
	for size < 2*n {
		size <<= 1
	}
	padded := make([]float64, size)
	for i, v := range series {
		padded[i] = v - mean
	}

	fft := fourier.NewFFT(size)
	coeff := fft.Coefficients(nil, padded)
	for k, c := range coeff {
		re, im := real(c), imag(c)
		coeff[k] = complex(re*re+im*im, 0)
	}
	raw := fft.Sequence(nil, coeff)

	if raw[0] == 0 {
		return nil
	}
	acf := make([]float64, maxLag+1)
	for k := range acf {
		acf[k] = raw[k] / raw[0]
	}
	return acf
}

// IntegratedTime estimates the integrated autocorrelation time
// τ = 1 + 2·Σρ(k), truncating the sum at the first non-positive ρ.
// Independent samples give τ ≈ 1.
func IntegratedTime(series []float64) float64 {
	acf := Autocorrelation(series, len(series)/2)
	if acf == nil {
		return math.NaN()
	}
	tau := 1.0
	for k := 1; k < len(acf); k++ {
		if acf[k] <= 0 {
			break
		}
		tau += 2 * acf[k]
	}
	return tau
}

// Package analysis reduces sampled trajectories to the statistics used to
// judge a scheme's bias:
//
//   - [Angles]: planar angle of a coordinate pair for every sample
//   - [MeanCos]: ⟨cos θ⟩ with its standard error
//   - [Histogram] and [ChiSquareUniform]: uniformity test of sampled angles
//   - [Autocorrelation] and [IntegratedTime]: sample correlation along a
//     trajectory, for choosing a sampling stride
//   - [NewScatter] and [ScatterToASCII]: terminal scatter plot of samples
//   - [RadialDistribution]: quasi-2D pair correlation g(r) of blobs above
//     a wall
//
// # Bias Check
//
// On the unit circle with mobility m(x) = 1 + x/2 an unbiased scheme samples
// the uniform distribution:
//
//	angles := analysis.Angles(states, 0, 1)
//	est := analysis.MeanCos(angles)
//	if math.Abs(est.Mean) > 3*est.StdErr {
//	    // drift correction is missing
//	}
package analysis

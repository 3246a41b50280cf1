package qmap

const (
	// Epsilon guards divisions by a standard deviation or variance that is
	// numerically zero.
	Epsilon = 1e-10

	MinFitPoints   = 2
	MinGammaPoints = 3

	// gamma quantiles are evaluated at most at this probability so that the
	// corrected value stays finite
	maxGammaProbability = 1 - 1e-12

	// shape of a gamma fitted to (nearly) constant data diverges, cap it
	maxGammaShape      = 1e6
	minGammaLogGap     = 1e-12
	gammaMaxIterations = 100
	gammaTolerance     = 1e-10

	KernelCut         = 3.0
	KernelMinGridSize = 200
)

var (
	ReportPercentiles = []float64{10, 25, 50, 75, 90}
)

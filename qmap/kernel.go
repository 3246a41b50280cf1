package qmap

import "github.com/uyouii/weather-calibration/kde"

// kernelMapping composes the smoothed model CDF with the inverse of the
// smoothed observation CDF.
type kernelMapping struct {
	model *kde.KDEUnivariate
	obs   *kde.KDEUnivariate
}

func newKernelMapping(modelData, obsData []float64) *kernelMapping {
	// inputs are validated by Fit, construction cannot fail here
	modelKde, _ := kde.NewKDEUnivariate(modelData, 1.0, KernelCut, KernelMinGridSize)
	obsKde, _ := kde.NewKDEUnivariate(obsData, 1.0, KernelCut, KernelMinGridSize)
	return &kernelMapping{
		model: modelKde,
		obs:   obsKde,
	}
}

func (m *kernelMapping) apply(x float64) float64 {
	return m.obs.Quantile(m.model.CDF(x)).Value
}

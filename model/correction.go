package model

type ReductionStatistics struct {
	Before           float64 `json:"before" yaml:"before"`
	After            float64 `json:"after" yaml:"after"`
	ReductionPercent float64 `json:"reduction_percent" yaml:"reduction_percent"`
}

type VarianceRatio struct {
	Before float64 `json:"before" yaml:"before"`
	After  float64 `json:"after" yaml:"after"`
	Target float64 `json:"target" yaml:"target"`
}

type KsResult struct {
	Statistic float64 `json:"statistic" yaml:"statistic"`
	PValue    float64 `json:"pvalue" yaml:"pvalue"`
}

type KsComparison struct {
	Before KsResult `json:"before" yaml:"before"`
	After  KsResult `json:"after" yaml:"after"`
}

type CorrectionStatistics struct {
	Bias          ReductionStatistics `json:"bias" yaml:"bias"`
	Rmse          ReductionStatistics `json:"rmse" yaml:"rmse"`
	VarianceRatio VarianceRatio       `json:"variance_ratio" yaml:"variance_ratio"`
	KsTest        KsComparison        `json:"ks_test" yaml:"ks_test"`
}

type PercentileComparison struct {
	Percentiles    []float64 `json:"percentiles" yaml:"percentiles"`
	Observations   []float64 `json:"observations" yaml:"observations"`
	ModelRaw       []float64 `json:"model_raw" yaml:"model_raw"`
	ModelCorrected []float64 `json:"model_corrected" yaml:"model_corrected"`
}

type DistributionComparison struct {
	Observations   DistributionSummary `json:"observations" yaml:"observations"`
	ModelRaw       DistributionSummary `json:"model_raw" yaml:"model_raw"`
	ModelCorrected DistributionSummary `json:"model_corrected" yaml:"model_corrected"`
}

type CorrectionReport struct {
	Algorithm string `json:"algorithm" yaml:"algorithm"`
	// Method is the requested method name, FittedMethod the one actually
	// used (gamma may fall back to empirical).
	Method               string                 `json:"method" yaml:"method"`
	FittedMethod         string                 `json:"fitted_method" yaml:"fitted_method"`
	CorrectedValues      []float64              `json:"corrected_values" yaml:"corrected_values"`
	Statistics           *CorrectionStatistics  `json:"statistics" yaml:"statistics"`
	PercentileComparison *PercentileComparison  `json:"percentile_comparison" yaml:"percentile_comparison"`
	DistributionSummary  DistributionComparison `json:"distribution_summary" yaml:"distribution_summary"`
}

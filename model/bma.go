package model

// BmaPrediction holds per time step results. Variance is always
// WithinVariance + BetweenVariance.
type BmaPrediction struct {
	Mean            []float64 `json:"mean" yaml:"mean"`
	Std             []float64 `json:"std" yaml:"std"`
	Lower95         []float64 `json:"lower_95" yaml:"lower_95"`
	Upper95         []float64 `json:"upper_95" yaml:"upper_95"`
	Variance        []float64 `json:"variance" yaml:"variance"`
	WithinVariance  []float64 `json:"within_variance" yaml:"within_variance"`
	BetweenVariance []float64 `json:"between_variance" yaml:"between_variance"`
}

func (p *BmaPrediction) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Mean)
}

type ModelMetrics struct {
	MAE      float64 `json:"mae" yaml:"mae"`
	RMSE     float64 `json:"rmse" yaml:"rmse"`
	Bias     float64 `json:"bias" yaml:"bias"`
	Variance float64 `json:"variance" yaml:"variance"`
}

type BmaMetrics struct {
	MAE              float64 `json:"mae" yaml:"mae"`
	RMSE             float64 `json:"rmse" yaml:"rmse"`
	SkillImprovement float64 `json:"skill_improvement" yaml:"skill_improvement"`
}

type BmaReport struct {
	Algorithm        string                   `json:"algorithm" yaml:"algorithm"`
	PosteriorWeights map[string]float64       `json:"posterior_weights" yaml:"posterior_weights"`
	PriorWeights     map[string]float64       `json:"prior_weights" yaml:"prior_weights"`
	ModelMetrics     map[string]*ModelMetrics `json:"model_metrics" yaml:"model_metrics"`
	Prediction       *BmaPrediction           `json:"bma_prediction" yaml:"bma_prediction"`
	Metrics          BmaMetrics               `json:"bma_metrics" yaml:"bma_metrics"`
	ModelCount       int                      `json:"n_models" yaml:"n_models"`
	ObservationCount int                      `json:"n_observations" yaml:"n_observations"`
}

type ForecastReport struct {
	Estimators   []string             `json:"estimators" yaml:"estimators"`
	Predictions  map[string][]float64 `json:"predictions" yaml:"predictions"`
	Bma          *BmaReport           `json:"bma" yaml:"bma"`
	ChangePoints []*ChangePoint       `json:"change_points" yaml:"change_points"`

	// Forecast is the Kalman extrapolation past the last observation.
	Forecast []float64 `json:"forecast,omitempty" yaml:"forecast,omitempty"`
}

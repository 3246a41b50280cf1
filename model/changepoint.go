package model

type ChangePointType string

const (
	IncreaseChangePoint ChangePointType = "increase"
	DecreaseChangePoint ChangePointType = "decrease"
)

// ChangePoint marks the first value of a new regime in a series.
type ChangePoint struct {
	Index           int             `json:"index" yaml:"index"`
	Value           float64         `json:"value" yaml:"value"`
	ChangePointType ChangePointType `json:"type" yaml:"type"`
}

package common

import "errors"

var (
	ErrorInvalidValue = errors.New("invalid value")

	// ErrorConfiguration covers bad method names, empty or mismatched series
	// and too few points to fit.
	ErrorConfiguration = errors.New("configuration error")

	// ErrorState is returned when an operation runs before its required
	// prior step, e.g. transform before fit.
	ErrorState = errors.New("state error")
)

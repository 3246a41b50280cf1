package qmap

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/common"
)

type Method string

const (
	MethodEmpirical        Method = "empirical"
	MethodParametricNormal Method = "parametric_normal"
	MethodParametricGamma  Method = "parametric_gamma"
	MethodKernel           Method = "kernel"
)

// request level aliases
var methodAliases = map[string]Method{
	"quantile": MethodEmpirical,
	"linear":   MethodParametricNormal,
	"normal":   MethodParametricNormal,
	"gamma":    MethodParametricGamma,
	"kde":      MethodKernel,
}

func (m Method) String() string {
	return string(m)
}

func (m Method) Valid() bool {
	switch m {
	case MethodEmpirical, MethodParametricNormal, MethodParametricGamma, MethodKernel:
		return true
	}
	return false
}

// ParseMethod accepts the canonical method names and their aliases,
// case-insensitively.
func ParseMethod(name string) (Method, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if m := Method(name); m.Valid() {
		return m, nil
	}
	if m, ok := methodAliases[name]; ok {
		return m, nil
	}
	return "", errors.Wrapf(common.ErrorConfiguration, "unsupported correction method %q", name)
}

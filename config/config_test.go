package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uyouii/weather-calibration/bocd"
	"github.com/uyouii/weather-calibration/common"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wxcal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "empirical", cfg.Correction.Method)
	assert.Equal(t, 0.1, cfg.Kalman.ProcessNoise)
	assert.Equal(t, 1.0, cfg.Kalman.MeasurementNoise)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.Equal(t, bocd.DefaultOptions(), cfg.Bocd.Options())
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log:
  level: DEBUG
  development: true
correction:
  method: gamma
kalman:
  process_noise: 0.5
bocd:
  hazard: 0.01
  observe_window: 3
output:
  format: yml
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "parametric_gamma", cfg.Correction.Method)
	assert.Equal(t, 0.5, cfg.Kalman.ProcessNoise)
	assert.Equal(t, 1.0, cfg.Kalman.MeasurementNoise)
	assert.Equal(t, FormatYAML, cfg.Output.Format)
	assert.Equal(t, bocd.Options{Hazard: 0.01, Threshold: 0.75, ObserveWindow: 3}, cfg.Bocd.Options())
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, "correction:\n  method: normal\n")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvLogDevelopment, "true")
	t.Setenv(EnvCorrectionMethod, "kde")
	t.Setenv(EnvKalmanQ, "0.2")
	t.Setenv(EnvKalmanR, "4")
	t.Setenv(EnvOutputFormat, "yaml")
	t.Setenv(EnvBocdHazard, "0.05")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, "kernel", cfg.Correction.Method)
	assert.Equal(t, 0.2, cfg.Kalman.ProcessNoise)
	assert.Equal(t, 4.0, cfg.Kalman.MeasurementNoise)
	assert.Equal(t, FormatYAML, cfg.Output.Format)
	assert.Equal(t, 0.05, cfg.Bocd.Hazard)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "unknown field", content: "kalman:\n  gain: 1\n"},
		{name: "bad yaml", content: "log: [\n"},
		{name: "bad level", content: "log:\n  level: loud\n"},
		{name: "bad method", content: "correction:\n  method: wavelet\n"},
		{name: "non positive noise", content: "kalman:\n  measurement_noise: 0\n"},
		{name: "bad format", content: "output:\n  format: xml\n"},
		{name: "bad hazard", content: "bocd:\n  hazard: 1\n"},
		{name: "bad observe window", content: "bocd:\n  observe_window: 0\n"},
		{name: "bad env float", env: map[string]string{EnvKalmanQ: "abc"}},
		{name: "bad env bool", env: map[string]string{EnvLogDevelopment: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, common.ErrorConfiguration)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, common.ErrorConfiguration)
}

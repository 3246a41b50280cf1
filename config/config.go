package config

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/uyouii/weather-calibration/bocd"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/estimator"
	"github.com/uyouii/weather-calibration/qmap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	EnvLogLevel         = "WXCAL_LOG_LEVEL"
	EnvLogDevelopment   = "WXCAL_LOG_DEVELOPMENT"
	EnvCorrectionMethod = "WXCAL_CORRECTION_METHOD"
	EnvKalmanQ          = "WXCAL_KALMAN_Q"
	EnvKalmanR          = "WXCAL_KALMAN_R"
	EnvOutputFormat     = "WXCAL_OUTPUT_FORMAT"
	EnvBocdHazard       = "WXCAL_BOCD_HAZARD"

	FormatJSON = "json"
	FormatYAML = "yaml"
)

type Config struct {
	Log        LogConfig        `yaml:"log"`
	Correction CorrectionConfig `yaml:"correction"`
	Kalman     KalmanConfig     `yaml:"kalman"`
	Bocd       BocdConfig       `yaml:"bocd"`
	Output     OutputConfig     `yaml:"output"`
}

type LogConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type CorrectionConfig struct {
	Method string `yaml:"method" validate:"required"`
}

type KalmanConfig struct {
	ProcessNoise     float64 `yaml:"process_noise" validate:"gt=0"`
	MeasurementNoise float64 `yaml:"measurement_noise" validate:"gt=0"`
}

type BocdConfig struct {
	Hazard        float64 `yaml:"hazard" validate:"gt=0,lt=1"`
	Threshold     float64 `yaml:"threshold" validate:"gt=0,lte=1"`
	ObserveWindow int     `yaml:"observe_window" validate:"gte=1"`
}

func (c BocdConfig) Options() bocd.Options {
	return bocd.Options{
		Hazard:        c.Hazard,
		Threshold:     c.Threshold,
		ObserveWindow: c.ObserveWindow,
	}
}

type OutputConfig struct {
	Format string `yaml:"format" validate:"oneof=json yaml"`
}

var validate = validator.New()

func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Correction: CorrectionConfig{
			Method: qmap.MethodEmpirical.String(),
		},
		Kalman: KalmanConfig{
			ProcessNoise:     estimator.DefaultProcessNoise,
			MeasurementNoise: estimator.DefaultMeasurementNoise,
		},
		Bocd: BocdConfig{
			Hazard:        bocd.DefaultHazard,
			Threshold:     bocd.DefaultThreshold,
			ObserveWindow: bocd.DefaultObserveWindow,
		},
		Output: OutputConfig{
			Format: FormatJSON,
		},
	}
}

// Load builds the config from defaults, then the YAML file at path (skipped
// when path is empty), then WXCAL_* environment variables. A .env file in the
// working directory is loaded first if present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(common.ErrorConfiguration, "reading config %s: %v", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(common.ErrorConfiguration, "parsing config %s: %v", path, err)
		}
	}

	if err := godotenv.Load(); err != nil {
		zap.L().Debug("no .env file loaded", zap.Error(err))
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes aliases (yml, method aliases) and checks every field.
func (c *Config) Validate() error {
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "yml" {
		c.Output.Format = FormatYAML
	}

	if err := validate.Struct(c); err != nil {
		return errors.Wrapf(common.ErrorConfiguration, "invalid config: %v", err)
	}

	method, err := qmap.ParseMethod(c.Correction.Method)
	if err != nil {
		return err
	}
	c.Correction.Method = method.String()
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogDevelopment); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(common.ErrorConfiguration, "invalid %s: %q", EnvLogDevelopment, v)
		}
		c.Log.Development = b
	}
	if v := os.Getenv(EnvCorrectionMethod); v != "" {
		c.Correction.Method = v
	}
	if v := os.Getenv(EnvKalmanQ); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(common.ErrorConfiguration, "invalid %s: %q", EnvKalmanQ, v)
		}
		c.Kalman.ProcessNoise = f
	}
	if v := os.Getenv(EnvKalmanR); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(common.ErrorConfiguration, "invalid %s: %q", EnvKalmanR, v)
		}
		c.Kalman.MeasurementNoise = f
	}
	if v := os.Getenv(EnvBocdHazard); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.Wrapf(common.ErrorConfiguration, "invalid %s: %q", EnvBocdHazard, v)
		}
		c.Bocd.Hazard = f
	}
	if v := os.Getenv(EnvOutputFormat); v != "" {
		c.Output.Format = v
	}
	return nil
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	urfave "github.com/urfave/cli/v3"
	"github.com/uyouii/weather-calibration/common"
	"github.com/uyouii/weather-calibration/config"
	"github.com/uyouii/weather-calibration/utils"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	version = "v0.0.1-default"
	commit  = ""
)

const (
	configFlagName = "config"
	debugFlagName  = "debug"
	formatFlagName = "format"
)

type appStateKey struct{}

type appState struct {
	cfg    *config.Config
	format string
	runID  string
}

func getState(ctx context.Context) *appState {
	if s, ok := ctx.Value(appStateKey{}).(*appState); ok {
		return s
	}
	return &appState{cfg: config.Default(), format: config.FormatJSON}
}

// Execute creates and runs the CLI application.
func Execute() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		zap.L().Error("fatal error", zap.Error(err))
		os.Exit(1)
	}
}

func newApp() *urfave.Command {
	return &urfave.Command{
		Name:            "wxcal",
		Version:         fmt.Sprintf("%s (%s)", version, commit),
		Usage:           "Bias correction and model averaging for weather forecasts",
		HideHelpCommand: true,
		Flags: []urfave.Flag{
			&urfave.StringFlag{
				Name:  configFlagName,
				Usage: "Path to the YAML config file (optional)",
			},
			&urfave.BoolFlag{
				Name:  debugFlagName,
				Usage: "Prints verbose logs (optional, default: false)",
			},
			&urfave.StringFlag{
				Name:  formatFlagName,
				Usage: "Output format [json, yaml] (optional, defaults to the config value)",
			},
		},
		Commands: []*urfave.Command{
			correctCmd(),
			bmaCmd(),
			forecastCmd(),
		},
		Before: func(ctx context.Context, cmd *urfave.Command) (context.Context, error) {
			cfg, err := config.Load(cmd.String(configFlagName))
			if err != nil {
				return ctx, err
			}
			if cmd.Bool(debugFlagName) {
				cfg.Log.Level = "debug"
			}
			if f := cmd.String(formatFlagName); f != "" {
				cfg.Output.Format = f
				if err := cfg.Validate(); err != nil {
					return ctx, err
				}
			}
			if err := utils.InitLogger(cfg.Log.Level, cfg.Log.Development); err != nil {
				return ctx, errors.Wrapf(common.ErrorConfiguration, "init logger: %v", err)
			}

			state := &appState{
				cfg:    cfg,
				format: cfg.Output.Format,
				runID:  uuid.NewString(),
			}
			ctx = utils.WithRunID(ctx, state.runID)
			utils.GetLogger(ctx).Debug("wxcal started",
				zap.String("command", strings.Join(cmd.Args().Slice(), " ")),
				zap.String("format", state.format),
				zap.String("correction_method", cfg.Correction.Method))
			return context.WithValue(ctx, appStateKey{}, state), nil
		},
	}
}

func encode(w io.Writer, format string, v any) error {
	if format == config.FormatYAML {
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(v)
	}
	e := json.NewEncoder(w)
	e.SetIndent("", "  ")
	return e.Encode(v)
}

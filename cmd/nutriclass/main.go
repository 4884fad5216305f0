package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/YuminosukeSato/nutriclass/pipeline"
	"github.com/YuminosukeSato/nutriclass/pkg/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type options struct {
	configPath  string
	logLevel    string
	logFormat   string
	testSize    float64
	randomState int64
	maxIter     int
	c           float64
	multiClass  string
	penalty     string
	classWeight string
	scaler      string
	chartPath   string
	weightsOut  string
	head        int
}

func newRootCmd() (*cobra.Command, *options) {
	opts := &options{}
	defaults := pipeline.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "nutriclass [flags] <food_items.csv>",
		Short: "Classify food items for diabetic patients with logistic regression",
		Long: `nutriclass loads a nutrition table, explores it, scales the nutrient columns,
trains a multinomial logistic regression on the class column and prints
accuracy, recall, precision and f1-score on a stratified hold-out set.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := setupLogging(opts); err != nil {
				return err
			}
			cfg, err := buildConfig(cmd, opts, args)
			if err != nil {
				return err
			}
			_, err = pipeline.Run(cmd.Context(), cfg, cmd.OutOrStdout())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")
	f.StringVar(&opts.logFormat, "log-format", "auto", "log format (auto|console|json)")
	f.Float64Var(&opts.testSize, "test-size", defaults.TestSize, "fraction of rows held out for testing")
	f.Int64Var(&opts.randomState, "random-state", defaults.RandomState, "random seed for the split")
	f.IntVar(&opts.maxIter, "max-iter", defaults.Model.MaxIter, "maximum lbfgs iterations")
	f.Float64Var(&opts.c, "C", defaults.Model.C, "inverse regularization strength")
	f.StringVar(&opts.multiClass, "multi-class", defaults.Model.MultiClass, "multi-class strategy (auto|ovr|multinomial)")
	f.StringVar(&opts.penalty, "penalty", defaults.Model.Penalty, "regularization (l2|none)")
	f.StringVar(&opts.classWeight, "class-weight", defaults.Model.ClassWeight, "class weighting (none|balanced)")
	f.StringVar(&opts.scaler, "scaler", defaults.Scaler, "feature scaler (minmax|standard)")
	f.StringVar(&opts.chartPath, "chart", defaults.ChartPath, "class distribution chart path, empty to skip")
	f.StringVar(&opts.weightsOut, "weights-out", "", "write fitted coefficients as JSON to this path")
	f.IntVar(&opts.head, "head", defaults.Head, "number of rows to preview")

	return cmd, opts
}

// buildConfig layers the config file, the positional data path and any
// explicitly set flags, in that order.
func buildConfig(cmd *cobra.Command, opts *options, args []string) (pipeline.Config, error) {
	cfg := pipeline.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = pipeline.LoadConfig(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if len(args) == 1 {
		cfg.DataPath = args[0]
	}

	f := cmd.Flags()
	if f.Changed("test-size") {
		cfg.TestSize = opts.testSize
	}
	if f.Changed("random-state") {
		cfg.RandomState = opts.randomState
	}
	if f.Changed("max-iter") {
		cfg.Model.MaxIter = opts.maxIter
	}
	if f.Changed("C") {
		cfg.Model.C = opts.c
	}
	if f.Changed("multi-class") {
		cfg.Model.MultiClass = opts.multiClass
	}
	if f.Changed("penalty") {
		cfg.Model.Penalty = opts.penalty
	}
	if f.Changed("class-weight") {
		cfg.Model.ClassWeight = opts.classWeight
	}
	if f.Changed("scaler") {
		cfg.Scaler = opts.scaler
	}
	if f.Changed("chart") {
		cfg.ChartPath = opts.chartPath
	}
	if f.Changed("weights-out") {
		cfg.WeightsPath = opts.weightsOut
	}
	if f.Changed("head") {
		cfg.Head = opts.head
	}
	return cfg, cfg.Validate()
}

func setupLogging(opts *options) error {
	console := false
	switch opts.logFormat {
	case "console":
		console = true
	case "json":
	default:
		console = term.IsTerminal(int(os.Stderr.Fd()))
	}
	return log.SetupLogger(opts.logLevel, os.Stderr, console)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, _ := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		log.GetLoggerWithName("cli").Error("nutriclass failed", err)
		stop()
		os.Exit(1)
	}
}

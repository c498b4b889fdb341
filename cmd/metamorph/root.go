package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/metamorph/internal/config"
	"github.com/YuminosukeSato/metamorph/pkg/log"
	"github.com/YuminosukeSato/metamorph/transform"
)

// globalFlags はすべてのサブコマンドで共有されるフラグ
type globalFlags struct {
	configPath  string
	logLevel    string
	metricsPath string
	resultsDir  string
	modelsDir   string
	lexicon     string
	seed        int64
	jsonLogs    bool
}

// app はフラグと設定ファイルを解決した後の実行環境
type app struct {
	flags globalFlags
	cfg   config.Config
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{})
}

func newRootCmdFor(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "metamorph",
		Short: "Metamorphic and mutamorphic robustness testing for text classifiers",
		Long: "metamorph derives transformed datasets from a labelled corpus, scores a\n" +
			"sentiment classifier on original and transformed texts, and records\n" +
			"robustness metrics in a JSON metrics store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.Version = version

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", "YAML config file")
	f.StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.StringVar(&a.flags.metricsPath, "metrics", "", "metrics store path")
	f.StringVar(&a.flags.resultsDir, "results-dir", "", "directory for prediction files")
	f.StringVar(&a.flags.modelsDir, "models-dir", "", "directory holding model artifacts")
	f.StringVar(&a.flags.lexicon, "lexicon", "", "YAML synonym lexicon (default: embedded)")
	f.Int64Var(&a.flags.seed, "seed", 0, "random seed for partitioning and transformations")
	f.BoolVar(&a.flags.jsonLogs, "json-logs", false, "emit JSON log lines instead of console output")

	root.AddCommand(newGenerateCmd(a))
	root.AddCommand(newMetamorphicCmd(a))
	root.AddCommand(newMutamorphicCmd(a))
	root.AddCommand(newReportCmd(a))
	return root
}

// setup は設定ファイル、環境変数、フラグの順に設定を解決し、ロガーを初期化する
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.flags.logLevel
	}
	if flags.Changed("metrics") {
		cfg.MetricsPath = a.flags.metricsPath
	}
	if flags.Changed("results-dir") {
		cfg.ResultsDir = a.flags.resultsDir
	}
	if flags.Changed("models-dir") {
		cfg.ModelsDir = a.flags.modelsDir
	}
	if flags.Changed("lexicon") {
		cfg.LexiconPath = a.flags.lexicon
	}
	if flags.Changed("seed") {
		cfg.Seed = a.flags.seed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	return log.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr(), !a.flags.jsonLogs)
}

func (a *app) lexicon() (transform.Lexicon, error) {
	if a.cfg.LexiconPath == "" {
		return transform.DefaultLexicon(), nil
	}
	return transform.LoadLexicon(a.cfg.LexiconPath)
}

// siblingPath は入力ファイルと同じディレクトリの name を返す
func siblingPath(input, name string) string {
	return filepath.Join(filepath.Dir(input), name)
}

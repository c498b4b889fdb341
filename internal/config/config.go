// Package config loads run settings for the metamorph command.
//
// Values are resolved in order: built-in defaults, then the YAML file (if
// any), then METAMORPH_* environment variables. Command-line flags are applied
// last by the caller.
package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/pkg/log"
)

// Config holds every tunable of a robustness run.
type Config struct {
	// ResultsDir receives prediction artifacts.
	ResultsDir string `yaml:"results_dir"`

	// ModelsDir contains <version>/<version>_Sentiment_Model.gob and the
	// shared vectorizer artifact.
	ModelsDir string `yaml:"models_dir"`

	// MetricsPath is the metrics store document.
	MetricsPath string `yaml:"metrics_path"`

	// Seed drives the partition shuffle and every transformation.
	Seed int64 `yaml:"seed"`

	// Precision is the number of decimals kept for float metrics.
	Precision int `yaml:"precision"`

	// MaxFeatures caps the vocabulary of the mutamorphic vectorizer.
	MaxFeatures int `yaml:"max_features"`

	// LexiconPath points at a YAML synonym file. Empty uses the embedded lexicon.
	LexiconPath string `yaml:"lexicon_path"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		ResultsDir:  filepath.Join("tests", "results"),
		ModelsDir:   "models",
		MetricsPath: "metrics.json",
		Seed:        42,
		Precision:   3,
		MaxFeatures: 1420,
		LogLevel:    "info",
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, errors.NewMissingArtifactError("config", path)
			}
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && err != io.EOF {
			return cfg, errors.Wrapf(err, "parse config %s", path)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"METAMORPH_RESULTS_DIR":  &cfg.ResultsDir,
		"METAMORPH_MODELS_DIR":   &cfg.ModelsDir,
		"METAMORPH_METRICS_PATH": &cfg.MetricsPath,
		"METAMORPH_LEXICON_PATH": &cfg.LexiconPath,
		"METAMORPH_LOG_LEVEL":    &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v := os.Getenv("METAMORPH_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return errors.NewValidationError("METAMORPH_SEED", "must be an integer", v)
		}
		cfg.Seed = seed
	}
	ints := map[string]*int{
		"METAMORPH_PRECISION":    &cfg.Precision,
		"METAMORPH_MAX_FEATURES": &cfg.MaxFeatures,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(key, "must be an integer", v)
		}
		*dst = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ResultsDir) == "" {
		return errors.NewValidationError("results_dir", "must not be empty", c.ResultsDir)
	}
	if strings.TrimSpace(c.ModelsDir) == "" {
		return errors.NewValidationError("models_dir", "must not be empty", c.ModelsDir)
	}
	if strings.TrimSpace(c.MetricsPath) == "" {
		return errors.NewValidationError("metrics_path", "must not be empty", c.MetricsPath)
	}
	if c.Precision < 0 || c.Precision > 15 {
		return errors.NewValidationError("precision", "must be between 0 and 15", c.Precision)
	}
	if c.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be zero (unlimited) or positive", c.MaxFeatures)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidationError("log_level", "must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// ModelPath returns the classifier artifact path for version.
func (c Config) ModelPath(version string) string {
	return filepath.Join(c.ModelsDir, version, version+"_Sentiment_Model.gob")
}

// VectorizerPath returns the shared bag-of-words artifact path.
func (c Config) VectorizerPath() string {
	return filepath.Join(c.ModelsDir, "c1_BoW_Sentiment_Model.gob")
}

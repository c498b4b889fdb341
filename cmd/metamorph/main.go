// metamorph runs metamorphic and mutamorphic robustness tests against a
// sentiment classifier.
//
// Usage:
//
//	metamorph generate --input data.tsv [--mode metamorphic|mutamorphic]
//	metamorph metamorphic --input data.tsv [--model-version v1]
//	metamorph mutamorphic --input data.tsv [--model-version test_model_dev]
//	metamorph report [--output metrics.png] [--category METAMORPHIC_TESTING]
package main

import (
	"fmt"
	"os"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/metamorph/dataset"
	"github.com/YuminosukeSato/metamorph/mutation"
	"github.com/YuminosukeSato/metamorph/pkg/errors"
	"github.com/YuminosukeSato/metamorph/pkg/log"
)

const (
	modeMetamorphic = "metamorphic"
	modeMutamorphic = "mutamorphic"
)

type generateParams struct {
	input  string
	output string
	mode   string
}

func newGenerateCmd(a *app) *cobra.Command {
	var p generateParams
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the transformed dataset for a corpus",
		Long: "generate partitions the corpus into four subsets, applies one\n" +
			"transformation per subset and writes the 4-column TSV next to the input.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, out, err := a.runGenerate(p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d transformed rows to %s\n", ds.Len(), out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&p.input, "input", "i", "", "input corpus TSV (text<TAB>label)")
	f.StringVarP(&p.output, "output", "o", "", "output TSV (default: next to the input)")
	f.StringVar(&p.mode, "mode", modeMetamorphic, "artifact name to use: metamorphic or mutamorphic")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// runGenerate は変換済みデータセットを生成して書き出し、書き出し先を返す
func (a *app) runGenerate(p generateParams) (*dataset.TransformedDataset, string, error) {
	out := p.output
	if out == "" {
		switch p.mode {
		case modeMetamorphic:
			out = siblingPath(p.input, mutation.MetamorphicDataFile)
		case modeMutamorphic:
			out = siblingPath(p.input, mutation.MutamorphicDataFile)
		default:
			return nil, "", errors.NewValidationError("mode", "must be metamorphic or mutamorphic", p.mode)
		}
	}

	gen, err := a.generator()
	if err != nil {
		return nil, "", err
	}
	ds, err := gen.GenerateFile(p.input, out, a.cfg.Seed)
	if err != nil {
		return nil, "", err
	}
	return ds, out, nil
}

func (a *app) generator() (*mutation.Generator, error) {
	lex, err := a.lexicon()
	if err != nil {
		return nil, err
	}
	return mutation.NewGenerator(
		mutation.WithLexicon(lex),
		mutation.WithLogger(log.GetLoggerWithName("mutation")),
	), nil
}

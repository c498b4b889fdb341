package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/metamorph/pkg/log"
	"github.com/YuminosukeSato/metamorph/recorder"
	"github.com/YuminosukeSato/metamorph/report"
)

type reportParams struct {
	output   string
	category string
}

func newReportCmd(a *app) *cobra.Command {
	var p reportParams
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Plot the numeric metrics of the metrics store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.runReport(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", p.output)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&p.output, "output", "o", "metrics.png", "chart path; the extension selects the format")
	f.StringVar(&p.category, "category", "", "only plot metrics of this category")
	return cmd
}

func (a *app) runReport(p reportParams) error {
	store, err := recorder.Open(a.cfg.MetricsPath, recorder.WithLogger(log.GetLoggerWithName("recorder")))
	if err != nil {
		return err
	}
	doc, err := store.Load()
	if err != nil {
		return err
	}
	return report.PlotMetrics(doc, p.category, p.output)
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go-incident-analysis-ui/internal/analysis"
	"go-incident-analysis-ui/internal/incident"
	"go-incident-analysis-ui/internal/selection"
)

type analyzeReport struct {
	Insight    incident.InsightView      `json:"insight"`
	Dimensions map[string][]analysis.Row `json:"dimensions"`
}

func newAnalyzeCommand(v *viper.Viper) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "analyze [scenario]",
		Short: "Print the correlation verdict and breakdown tables for a scenario",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			source, closer, err := openSource(cfg)
			if err != nil {
				return err
			}
			defer closer.Close()

			name := cfg.DefaultScenario
			if len(args) == 1 {
				name = args[0]
			}

			ctx := commandContext(cmd)
			svc := incident.NewService(source, selection.NewMemoryStore(), cfg.DefaultScenario, nil)
			insight, err := svc.Insight(ctx, name)
			if err != nil {
				return err
			}
			report := analyzeReport{Insight: insight, Dimensions: map[string][]analysis.Row{}}
			for _, dim := range analysis.Dimensions() {
				rows, err := svc.Dimension(ctx, name, dim)
				if err != nil {
					return err
				}
				report.Dimensions[dim] = rows
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printReport(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func printReport(out io.Writer, r analyzeReport) error {
	in := r.Insight
	fmt.Fprintf(out, "Scenario:       %s\n", in.Scenario)
	fmt.Fprintf(out, "Conclusion:     %s\n", in.Conclusion)
	fmt.Fprintf(out, "Recommendation: %s\n", in.Recommendation)
	fmt.Fprintf(out, "Primary factor: %s %s (%s)\n", in.PrimaryFactor.Type, in.PrimaryFactor.Name, analysis.FormatPercent(in.PrimaryFactor.Impact))
	if in.Overridden && in.ComputedFactor != nil {
		fmt.Fprintf(out, "Computed:       %s %s (%s), replaced by alert status\n",
			in.ComputedFactor.Type, in.ComputedFactor.Name, analysis.FormatPercent(in.ComputedFactor.Impact))
	}
	fmt.Fprintf(out, "Distribution:   servers=%s clients=%s transTypes=%s\n",
		in.Distribution.Servers, in.Distribution.Clients, in.Distribution.TransTypes)

	for _, dim := range analysis.Dimensions() {
		rows := r.Dimensions[dim]
		fmt.Fprintf(out, "\n[%s]\n", dim)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tIMPACT\tOUTLIERNESS\tCNT\tSUCC\tFLAGS")
		for _, row := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
				row.Name, row.DisplayImpact, row.DisplayOutlier, row.Cnt, row.DisplaySucc, rowFlags(row))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func rowFlags(row analysis.Row) string {
	switch {
	case row.Outlier && row.Bold:
		return "outlier,bold"
	case row.Outlier:
		return "outlier"
	case row.Bold:
		return "bold"
	default:
		return ""
	}
}

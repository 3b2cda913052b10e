// Package plans prints the compiled-in plan catalog for operators and for
// provider dashboard setup.
package plans

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/lexora-inc/lexora/internal/domain/plan"
)

const (
	formatYAML = "yaml"
	formatJSON = "json"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "Inspect the plan catalog",
		Long:  `Print the tiers compiled into this binary with their prices, features and limits.`,
	}

	cmd.AddCommand(
		newListCommand(),
		newExportCommand(),
	)

	return cmd
}

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tiers with prices and limits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeTable(cmd.OutOrStdout(), plan.All())
		},
	}
}

func newExportCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the catalog as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return export(cmd.OutOrStdout(), format, plan.All())
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatYAML, "Output format (yaml, json)")

	return cmd
}

func writeTable(w io.Writer, defs []plan.Definition) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	header := []string{"TIER", "NAME", "MONTHLY", "ANNUAL"}
	for _, k := range plan.ListLimitKeys() {
		header = append(header, strings.ToUpper(k.String()))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, def := range defs {
		row := []string{
			string(def.Tier),
			def.Name,
			formatPrice(p, def.MonthlyPrice),
			formatPrice(p, def.AnnualPrice),
		}
		for _, k := range plan.ListLimitKeys() {
			row = append(row, formatLimit(p, def.Limits.Get(k)))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func formatPrice(p *message.Printer, cents *int64) string {
	if cents == nil {
		return "custom"
	}
	return p.Sprintf("$%d.%02d", *cents/100, *cents%100)
}

func formatLimit(p *message.Printer, v int64) string {
	if plan.IsUnlimited(v) {
		return "unlimited"
	}
	return p.Sprintf("%d", v)
}

func export(w io.Writer, format string, defs []plan.Definition) error {
	doc := struct {
		Plans           []plan.Definition             `json:"plans" yaml:"plans"`
		FeatureMinPlans map[plan.FeatureKey]plan.Tier `json:"featureMinPlans" yaml:"featureMinPlans"`
	}{defs, plan.FeatureMinPlans()}

	switch strings.ToLower(format) {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode catalog: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q (want yaml or json)", format)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nregsmp/nregsreport/internal/district"
	"github.com/nregsmp/nregsreport/internal/model"
)

// NewDistrictsCmd creates the districts command.
func NewDistrictsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "districts",
		Short: "List the districts a report can be generated for",
		Long: `List the 52 districts of Madhya Pradesh known to nregsreport,
grouped by revenue division.

Examples:
  # All districts
  nregsreport districts

  # Districts of one division
  nregsreport districts --division Rewa

  # As a Markdown table
  nregsreport districts -m`,
		Args: cobra.NoArgs,
		RunE: runDistrictsCmd,
	}

	cmd.Flags().StringP("division", "d", "",
		"Only list the districts of this division")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output as a Markdown table")

	return cmd
}

// runDistrictsCmd executes the districts command.
func runDistrictsCmd(cmd *cobra.Command, _ []string) error {
	division, err := cmd.Flags().GetString("division")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}
	markdownOutput, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return err
	}

	districts := district.All()
	if division != "" {
		districts = district.ByDivision(division)
		if len(districts) == 0 {
			return &model.ValidationError{
				Field: "division",
				Value: division,
				Err:   fmt.Errorf("unknown division: use one of %s", strings.Join(district.Divisions(), ", ")),
			}
		}
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOutput:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(districts)
	case markdownOutput:
		rows := make([][]string, 0, len(districts))
		for _, d := range districts {
			rows = append(rows, []string{d.Name, district.DisplayName(d), d.Division})
		}
		return markdown.NewMarkdown(out).
			H1("Districts of Madhya Pradesh").
			Table(markdown.TableSet{
				Header: []string{"District", "Name", "Division"},
				Rows:   rows,
			}).
			Build()
	}

	fmt.Fprintf(out, "Districts (%d):\n\n", len(districts))
	fmt.Fprintf(out, "  %-16s  %s\n", "District", "Division")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 32))
	for _, d := range districts {
		fmt.Fprintf(out, "  %-16s  %s\n", d.Name, d.Division)
	}
	fmt.Fprintln(out, "\nUse 'nregsreport generate <date> <district>' to generate a report.")

	return nil
}

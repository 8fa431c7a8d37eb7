package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/entailrag/internal/claim"
)

// decomposeCmd prints the sub-claims of a claim; it needs no providers
var decomposeCmd = &cobra.Command{
	Use:   "decompose <claim>",
	Short: "Split a compound claim into sub-claims",
	Long: `Decompose shows how the subclaim pipeline reads a claim.

Example:
  entailrag decompose "Giuseppe Verdi and Ambroise Thomas are both opera composers."`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		d := claim.NewDecomposer()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kind:      %s\n", d.Kind(text))
		fmt.Fprintf(out, "compound:  %v\n", d.IsCompound(text))
		if rule := d.Rule(text); rule != "" {
			fmt.Fprintf(out, "rule:      %s\n", rule)
		}
		fmt.Fprintf(out, "subclaims:\n")
		for i, s := range d.Subclaims(text) {
			fmt.Fprintf(out, "  %d. %s\n", i+1, s)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decomposeCmd)
}

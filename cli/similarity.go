package cli

import (
	"fmt"

	"proposal-ranker/dedupe"
	"proposal-ranker/similarity"

	"github.com/spf13/cobra"
)

var similarityCmd = &cobra.Command{
	Use:   "similarity <a> <b>",
	Short: "Print the string and title similarity of two values",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ratio: %.4f\n", similarity.Ratio(args[0], args[1]))
		fmt.Fprintf(out, "title_similarity: %.2f\n", dedupe.TitleSimilarity(args[0], args[1]))
		return nil
	},
}

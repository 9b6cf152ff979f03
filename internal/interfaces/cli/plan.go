package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/derril-tech/ai-patent-explorer/pkg/client"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

func newPlanCommand(opts *rootOptions) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "plan <query>",
		Short: "Expand a query into a retrieval plan",
		Long:  "Cleans the query, extracts technical terms, expands synonyms and CPC\ncodes, and prints the weighting strategy the retriever would use.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.newClient()
			plan, err := c.Plan(cmd.Context(), client.PlanRequest{
				WorkspaceID: opts.WorkspaceID,
				Query:       strings.Join(args, " "),
				Method:      patent.SearchMethod(method),
			})
			if err != nil {
				return err
			}
			return printResult(cmd, opts.OutputFormat, plan)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "hybrid", "search method (lexical, dense, hybrid)")
	return cmd
}

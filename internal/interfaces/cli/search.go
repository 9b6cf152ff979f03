package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/derril-tech/ai-patent-explorer/pkg/client"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var (
		method    string
		k         int
		cpcCodes  []string
		assignees []string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search prior art for a query",
		Long:  "Plans the query and runs lexical, dense, or hybrid retrieval against\nthe workspace corpus, printing ranked candidates.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.newClient()
			results, err := c.Search(cmd.Context(), client.SearchRequest{
				WorkspaceID: opts.WorkspaceID,
				Query:       strings.Join(args, " "),
				Method:      patent.SearchMethod(method),
				K:           k,
				Filters: patent.SearchFilters{
					CPCCodes:  cpcCodes,
					Assignees: assignees,
				},
			})
			if err != nil {
				return err
			}
			if opts.OutputFormat == "json" {
				return printResult(cmd, opts.OutputFormat, results)
			}
			return printSearchTable(cmd, results)
		},
	}

	cmd.Flags().StringVarP(&method, "method", "m", "hybrid", "search method (lexical, dense, hybrid)")
	cmd.Flags().IntVarP(&k, "top", "k", 0, "number of results (0 uses the server default)")
	cmd.Flags().StringSliceVar(&cpcCodes, "cpc", nil, "filter by CPC code prefix")
	cmd.Flags().StringSliceVar(&assignees, "assignee", nil, "filter by assignee")
	return cmd
}

func printSearchTable(cmd *cobra.Command, results []patent.SearchResult) error {
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no results")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tPATENT\tCLAIM\tSCORE\tMETHOD")
	for i, r := range results {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.4f\t%s\n", i+1, r.PatentID, r.ClaimID, r.FinalScore, r.SourceMethod)
	}
	return w.Flush()
}

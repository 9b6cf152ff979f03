package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/derril-tech/ai-patent-explorer/pkg/client"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

func newAlignCommand(opts *rootOptions) *cobra.Command {
	var (
		claimNumber int
		refs        []string
		stored      bool
	)

	cmd := &cobra.Command{
		Use:   "align <patent-id>",
		Short: "Align a claim's clauses against reference patents",
		Long:  "Segments the target claim into clauses and finds the best-matching\nreference clause for each, persisting the alignments for scoring.\nWith --stored, prints previously computed alignments instead.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.newClient()
			patentID := patent.ID(args[0])

			var (
				alignments []patent.Alignment
				err        error
			)
			if stored {
				alignments, err = c.GetAlignments(cmd.Context(), patentID, claimNumber)
			} else {
				refIDs := make([]patent.ID, len(refs))
				for i, r := range refs {
					refIDs[i] = patent.ID(r)
				}
				alignments, err = c.AlignClaim(cmd.Context(), client.AlignRequest{
					PatentID:           patentID,
					ClaimNumber:        claimNumber,
					ReferencePatentIDs: refIDs,
				})
			}
			if err != nil {
				return err
			}
			if opts.OutputFormat == "json" {
				return printResult(cmd, opts.OutputFormat, alignments)
			}
			return printAlignmentTable(cmd, alignments)
		},
	}

	cmd.Flags().IntVarP(&claimNumber, "claim", "n", 1, "claim number to align")
	cmd.Flags().StringSliceVarP(&refs, "ref", "r", nil, "reference patent ID (repeatable)")
	cmd.Flags().BoolVar(&stored, "stored", false, "print stored alignments instead of recomputing")
	return cmd
}

func printAlignmentTable(cmd *cobra.Command, alignments []patent.Alignment) error {
	if len(alignments) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no alignments")
		return nil
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CLAUSE\tREFERENCE\tREF CLAUSE\tSIMILARITY\tTYPE")
	for _, a := range alignments {
		fmt.Fprintf(w, "%d\t%s/%s\t%d\t%.4f\t%s\n",
			a.TargetClauseIndex, a.ReferencePatentID, a.ReferenceClaimID,
			a.ReferenceClauseIndex, a.SimilarityScore, a.AlignmentType)
	}
	return w.Flush()
}

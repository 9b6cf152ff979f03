package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/derril-tech/ai-patent-explorer/pkg/client"
	"github.com/derril-tech/ai-patent-explorer/pkg/types/patent"
)

func newNoveltyCommand(opts *rootOptions) *cobra.Command {
	var (
		claimNumber int
		stored      bool
	)

	cmd := &cobra.Command{
		Use:   "novelty <patent-id>",
		Short: "Score a claim's novelty against its stored alignments",
		Long:  "Computes per-clause novelty from persisted alignments, estimates\nobviousness from multi-document factors, applies CPC and decade\ncalibration, and prints the scored claim.  With --stored, prints the\nlast persisted score instead of recomputing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := opts.newClient()
			patentID := patent.ID(args[0])

			var (
				score *patent.NoveltyScore
				err   error
			)
			if stored {
				score, err = c.GetNovelty(cmd.Context(), patentID, claimNumber)
			} else {
				score, err = c.ScoreNovelty(cmd.Context(), client.NoveltyRequest{
					PatentID:    patentID,
					ClaimNumber: claimNumber,
				})
			}
			if err != nil {
				return err
			}
			if opts.OutputFormat == "json" {
				return printResult(cmd, opts.OutputFormat, score)
			}
			return printNoveltySummary(cmd, score)
		},
	}

	cmd.Flags().IntVarP(&claimNumber, "claim", "n", 1, "claim number to score")
	cmd.Flags().BoolVar(&stored, "stored", false, "print the stored score instead of recomputing")
	return cmd
}

func printNoveltySummary(cmd *cobra.Command, s *patent.NoveltyScore) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Patent:       %s (claim %d)\n", s.PatentID, s.ClaimNumber)
	fmt.Fprintf(out, "Novelty:      %.4f\n", s.NoveltyScore)
	fmt.Fprintf(out, "Obviousness:  %.4f\n", s.ObviousnessScore)
	fmt.Fprintf(out, "Confidence:   %s\n", s.ConfidenceBand)
	fmt.Fprintf(out, "Calibration:  cpc=%.2f decade=%.2f\n",
		s.CalibrationFactors.CPCFactor, s.CalibrationFactors.DecadeFactor)
	for _, cd := range s.ClauseDetails {
		fmt.Fprintf(out, "  clause %d: novelty=%.4f maxSim=%.4f alignments=%d confidence=%s\n",
			cd.ClauseIndex, cd.NoveltyScore, cd.MaxSimilarity, cd.AlignmentCount, cd.Confidence)
	}
	return nil
}

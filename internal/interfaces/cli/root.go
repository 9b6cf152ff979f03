// Package cli implements the patentctl command tree.  Every command talks to
// a running API server through the pkg/client SDK.
package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/derril-tech/ai-patent-explorer/pkg/client"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	ServerAddr   string
	WorkspaceID  string
	OutputFormat string
	Timeout      time.Duration
}

// NewRootCommand builds the patentctl root with global flags and subcommands.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:     "patentctl",
		Short:   "patentctl — patent claim novelty analysis from the command line",
		Long:    "patentctl drives the claim analysis pipeline over its HTTP API:\nquery planning, hybrid prior-art search, clause alignment, and\ncalibrated novelty scoring.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),

		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ServerAddr, "server", "http://localhost:8080", "API server address")
	pf.StringVarP(&opts.WorkspaceID, "workspace", "w", "", "workspace ID scoping all operations")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "text", "output format (text, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 60*time.Second, "request timeout")

	cmd.AddCommand(
		newPlanCommand(opts),
		newSearchCommand(opts),
		newAlignCommand(opts),
		newNoveltyCommand(opts),
	)

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}

func (o *rootOptions) newClient() *client.Client {
	return client.New(o.ServerAddr, client.WithTimeout(o.Timeout))
}

// printResult renders v according to the --output flag.  The text renderer
// falls back to indented JSON for shapes without a dedicated formatter.
func printResult(cmd *cobra.Command, format string, v interface{}) error {
	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
)

// NewListCommand creates the generic collection listing command.
func NewListCommand() *cobra.Command {
	var (
		summary  bool
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "list COLLECTION",
		Short: "List raw artifacts of any collection",
		Long:  "List the artifacts of a collection path without a typed model, for example pipelines or sqlScripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			collection := client.Artifacts(args[0])

			pager := collection.List()
			if summary {
				pager = collection.ListSummary()
			}

			items, err := collectPages(cmd, pager, maxPages)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", args[0], err)
			}

			return renderArtifacts(cmd.OutOrStdout(), items)
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "list the summarized collection")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 means all)")

	return cmd
}

// NewGetCommand creates the generic artifact read command.
func NewGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get COLLECTION NAME",
		Short: "Get a raw artifact of any collection",
		Long:  "Display one artifact of a collection path as raw JSON or YAML",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			result, err := client.Artifacts(args[0]).Get(cmd.Context(), args[1], nil)
			if err != nil {
				return fmt.Errorf("failed to get %s/%s: %w", args[0], args[1], err)
			}

			format := outputFormat()
			if format == constants.FormatTable {
				format = constants.FormatJSON
			}

			_, err = renderStructured(cmd.OutOrStdout(), format, result.Resource)

			return err
		},
	}
}

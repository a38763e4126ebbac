package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// NewOperationsCommand creates the operations command group.
func NewOperationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "operations",
		Aliases: []string{"operation", "ops"},
		Short:   "Observe long-running operations",
		Long:    "Resume and wait for operations started with --no-wait",
	}

	cmd.AddCommand(newOperationsWaitCommand())
	cmd.AddCommand(newOperationsStatusCommand())

	return cmd
}

func newOperationsWaitCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "wait HANDLE_OR_TOKEN",
		Short: "Wait for an operation",
		Long:  "Resume an operation from a stored handle id or a literal resume token and wait for it to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, id, err := loadHandle(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			if handle.Kind == handleKindNotebook {
				poller, err := client.ResumeNotebookOperation(handle.Token)
				if err != nil {
					return fmt.Errorf("failed to resume operation: %w", err)
				}

				notebook, err := poller.PollUntilDone(cmd.Context(), nil)
				if err != nil {
					return fmt.Errorf("operation did not succeed: %w", err)
				}

				_ = forgetHandle(cmd.Context(), id)

				return renderNotebook(cmd.OutOrStdout(), &notebook)
			}

			poller, err := client.ResumeOperation(handle.Token)
			if err != nil {
				return fmt.Errorf("failed to resume operation: %w", err)
			}

			_, err = poller.PollUntilDone(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("operation did not succeed: %w", err)
			}

			_ = forgetHandle(cmd.Context(), id)

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Operation %s\n", artifacts.OperationStateSucceeded)

			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", handleKindNone, "result kind of a literal token (notebook, none)")

	return cmd
}

func newOperationsStatusCommand() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "status HANDLE_OR_TOKEN",
		Short: "Poll an operation once",
		Long:  "Resume an operation and report its state after a single status request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle, id, err := loadHandle(cmd.Context(), args[0], kind)
			if err != nil {
				return err
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			poller, err := client.ResumeOperation(handle.Token)
			if err != nil {
				return fmt.Errorf("failed to resume operation: %w", err)
			}

			state, err := poller.Poll(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to poll operation: %w", err)
			}

			out := operationOutput{
				Operation: handle.Operation,
				Name:      handle.Name,
				State:     string(state),
				HandleID:  id,
			}

			if !state.IsTerminal() {
				out.ResumeToken, _ = poller.ResumeToken()
			}

			return renderOperation(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", handleKindNone, "result kind of a literal token (notebook, none)")

	return cmd
}

package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// NewNotebooksCommand creates the notebooks command group.
func NewNotebooksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notebooks",
		Aliases: []string{"notebook", "nb"},
		Short:   "Manage notebooks",
		Long:    "List, read, write, rename and delete workspace notebooks",
	}

	cmd.AddCommand(newNotebooksListCommand())
	cmd.AddCommand(newNotebooksGetCommand())
	cmd.AddCommand(newNotebooksPutCommand())
	cmd.AddCommand(newNotebooksDeleteCommand())
	cmd.AddCommand(newNotebooksRenameCommand())

	return cmd
}

func newNotebooksListCommand() *cobra.Command {
	var (
		summary  bool
		maxPages int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notebooks",
		Long:  "List the notebooks of the workspace, following continuation links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			pager := client.Notebooks().List()
			if summary {
				pager = client.Notebooks().ListSummary()
			}

			notebooks, err := collectPages(cmd, pager, maxPages)
			if err != nil {
				return fmt.Errorf("failed to list notebooks: %w", err)
			}

			return renderNotebooks(cmd.OutOrStdout(), notebooks)
		},
	}

	cmd.Flags().BoolVar(&summary, "summary", false, "list summarized notebooks")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "stop after this many pages (0 means all)")

	return cmd
}

// collectPages drains pager, stopping after maxPages pages when maxPages > 0.
func collectPages[T any](cmd *cobra.Command, pager *artifacts.Pager[T], maxPages int) ([]T, error) {
	items := []T{}
	pages := 0

	for page, err := range pager.Pages(cmd.Context()) {
		if err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		pages++

		if maxPages > 0 && pages >= maxPages {
			break
		}
	}

	return items, nil
}

func newNotebooksGetCommand() *cobra.Command {
	var ifNoneMatch string

	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Get a notebook",
		Long:  "Display a notebook. With --if-none-match an unchanged notebook is reported as not modified",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			result, err := client.Notebooks().Get(cmd.Context(), args[0], &artifacts.GetOptions{IfNoneMatch: ifNoneMatch})
			if err != nil {
				return fmt.Errorf("failed to get notebook: %w", err)
			}

			if result.NotModified {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Notebook %s not modified (etag %s)\n", args[0], result.ETag)

				return nil
			}

			return renderNotebook(cmd.OutOrStdout(), result.Resource)
		},
	}

	cmd.Flags().StringVar(&ifNoneMatch, "if-none-match", "", "etag already held by the caller")

	return cmd
}

func newNotebooksPutCommand() *cobra.Command {
	var (
		file    string
		ifMatch string
		noWait  bool
	)

	cmd := &cobra.Command{
		Use:   "put NAME",
		Short: "Create or update a notebook",
		Long:  "Create or update a notebook from a JSON or YAML definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			notebook, err := readNotebook(cmd, file)
			if err != nil {
				return err
			}

			if notebook.Name == "" {
				notebook.Name = name
			}

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			poller, err := client.Notebooks().CreateOrUpdate(cmd.Context(), name, notebook, &artifacts.CreateOrUpdateOptions{IfMatch: ifMatch})
			if err != nil {
				return fmt.Errorf("failed to write notebook: %w", err)
			}

			if noWait && !poller.Done() {
				return leaveRunning(cmd, poller, handleKindNotebook, "put", name)
			}

			written, err := poller.PollUntilDone(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("failed to write notebook: %w", err)
			}

			return renderNotebook(cmd.OutOrStdout(), &written)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "notebook definition file, - for stdin")
	cmd.Flags().StringVar(&ifMatch, "if-match", "", "only write when the current etag matches")
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "do not wait for the operation to finish")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readNotebook reads a JSON or YAML notebook definition.
func readNotebook(cmd *cobra.Command, file string) (artifacts.NotebookResource, error) {
	var notebook artifacts.NotebookResource

	var (
		data []byte
		err  error
	)

	if file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(file)
	}

	if err != nil {
		return notebook, fmt.Errorf("failed to read notebook definition: %w", err)
	}

	var document interface{}

	err = yaml.Unmarshal(data, &document)
	if err != nil {
		return notebook, fmt.Errorf("failed to parse notebook definition: %w", err)
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return notebook, fmt.Errorf("failed to parse notebook definition: %w", err)
	}

	err = json.Unmarshal(raw, &notebook)
	if err != nil {
		return notebook, fmt.Errorf("failed to parse notebook definition: %w", err)
	}

	return notebook, nil
}

func newNotebooksDeleteCommand() *cobra.Command {
	var noWait bool

	cmd := &cobra.Command{
		Use:   "delete NAME...",
		Short: "Delete notebooks",
		Long:  "Delete one or more notebooks. Deleting a missing notebook succeeds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			var result *multierror.Error

			for _, name := range args {
				err := deleteNotebook(cmd, client, name, noWait)
				if err != nil {
					result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
				}
			}

			return result.ErrorOrNil()
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "do not wait for the operations to finish")

	return cmd
}

func deleteNotebook(cmd *cobra.Command, client artifacts.Client, name string, noWait bool) error {
	poller, err := client.Notebooks().Delete(cmd.Context(), name, nil)
	if err != nil {
		return err
	}

	if noWait && !poller.Done() {
		return leaveRunning(cmd, poller, handleKindNone, "delete", name)
	}

	_, err = poller.PollUntilDone(cmd.Context(), nil)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted notebook %s\n", name)

	return nil
}

func newNotebooksRenameCommand() *cobra.Command {
	var noWait bool

	cmd := &cobra.Command{
		Use:   "rename NAME NEW_NAME",
		Short: "Rename a notebook",
		Long:  "Rename a notebook. Renaming onto an existing notebook fails with a conflict",
		Args:  cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, newName := args[0], args[1]

			client, err := CreateClient(cmd)
			if err != nil {
				return err
			}

			poller, err := client.Notebooks().Rename(cmd.Context(), name, newName, nil)
			if err != nil {
				return fmt.Errorf("failed to rename notebook: %w", err)
			}

			if noWait && !poller.Done() {
				return leaveRunning(cmd, poller, handleKindNone, "rename", name)
			}

			_, err = poller.PollUntilDone(cmd.Context(), nil)
			if err != nil {
				return fmt.Errorf("failed to rename notebook: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Renamed notebook %s to %s\n", name, newName)

			return nil
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "do not wait for the operation to finish")

	return cmd
}

// leaveRunning stores the poller's resume token and prints the handle.
func leaveRunning[T any](cmd *cobra.Command, poller artifacts.Poller[T], kind, operation, name string) error {
	token, err := poller.ResumeToken()
	if err != nil {
		return fmt.Errorf("failed to capture operation handle: %w", err)
	}

	id, err := saveHandle(cmd.Context(), storedHandle{
		Kind:      kind,
		Operation: operation,
		Name:      name,
		Token:     token,
	})
	if err != nil {
		return err
	}

	return renderOperation(cmd.OutOrStdout(), operationOutput{
		Operation:   operation,
		Name:        name,
		State:       string(poller.State()),
		HandleID:    id,
		ResumeToken: token,
	})
}

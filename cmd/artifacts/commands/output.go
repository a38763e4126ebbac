package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// JSON formatting.
const defaultJSONIndent = 2

// outputFormat returns the configured output format. Without one, tables are
// used on terminals and JSON everywhere else.
func outputFormat() string {
	if format := viper.GetString("output"); format != "" {
		return format
	}

	if term.IsTerminal(int(os.Stdout.Fd())) {
		return constants.FormatTable
	}

	return constants.FormatJSON
}

func renderStructured(w io.Writer, format string, data interface{}) (bool, error) {
	switch format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", strings.Repeat(" ", defaultJSONIndent))

		return true, encoder.Encode(data)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return true, encoder.Encode(toYAMLValue(data))
	case constants.FormatTable:
		return false, nil
	default:
		return true, fmt.Errorf("%w: %s", ErrUnsupportedOutput, format)
	}
}

// toYAMLValue routes data through JSON so that raw JSON fields render as
// structured YAML.
func toYAMLValue(data interface{}) interface{} {
	raw, err := json.Marshal(data)
	if err != nil {
		return data
	}

	var value interface{}

	err = json.Unmarshal(raw, &value)
	if err != nil {
		return data
	}

	return value
}

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(toAny(header)...)

	for _, row := range rows {
		_ = table.Append(toAny(row)...)
	}

	err := table.Render()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, value := range values {
		out[i] = value
	}

	return out
}

func renderNotebooks(w io.Writer, notebooks []artifacts.NotebookResource) error {
	handled, err := renderStructured(w, outputFormat(), notebooks)
	if handled {
		return err
	}

	rows := make([][]string, 0, len(notebooks))
	for _, nb := range notebooks {
		rows = append(rows, []string{
			nb.Name,
			valueOrNA(nb.Properties.Description),
			strconv.Itoa(len(nb.Properties.Cells)),
			folderName(nb.Properties.Folder),
			valueOrNA(nb.Etag),
		})
	}

	return renderTable(w, []string{"Name", "Description", "Cells", "Folder", "ETag"}, rows)
}

func renderNotebook(w io.Writer, nb *artifacts.NotebookResource) error {
	handled, err := renderStructured(w, outputFormat(), nb)
	if handled {
		return err
	}

	rows := [][]string{
		{"Name", nb.Name},
		{"ID", valueOrNA(nb.ID)},
		{"ETag", valueOrNA(nb.Etag)},
		{"Description", valueOrNA(nb.Properties.Description)},
		{"Cells", strconv.Itoa(len(nb.Properties.Cells))},
		{"Folder", folderName(nb.Properties.Folder)},
	}

	if pool := nb.Properties.BigDataPool; pool != nil {
		rows = append(rows, []string{"Spark Pool", pool.ReferenceName})
	}

	if info := nb.Properties.Metadata.LanguageInfo; info != nil {
		rows = append(rows, []string{"Language", info.Name})
	}

	return renderTable(w, []string{"Property", "Value"}, rows)
}

func renderArtifacts(w io.Writer, items []artifacts.Artifact) error {
	handled, err := renderStructured(w, outputFormat(), items)
	if handled {
		return err
	}

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{item.Name, valueOrNA(item.Type), valueOrNA(item.Etag)})
	}

	return renderTable(w, []string{"Name", "Type", "ETag"}, rows)
}

// operationOutput is printed when a command does not wait for an operation.
type operationOutput struct {
	Operation   string `json:"operation"              yaml:"operation"`
	Name        string `json:"name"                   yaml:"name"`
	State       string `json:"state"                  yaml:"state"`
	HandleID    string `json:"handle_id,omitempty"    yaml:"handle_id,omitempty"`
	ResumeToken string `json:"resume_token,omitempty" yaml:"resume_token,omitempty"`
}

func renderOperation(w io.Writer, out operationOutput) error {
	handled, err := renderStructured(w, outputFormat(), out)
	if handled {
		return err
	}

	rows := [][]string{
		{"Operation", out.Operation},
		{"Name", out.Name},
		{"State", out.State},
		{"Handle ID", valueOrNA(out.HandleID)},
		{"Resume Token", valueOrNA(out.ResumeToken)},
	}

	return renderTable(w, []string{"Property", "Value"}, rows)
}

func valueOrNA(value string) string {
	if value == "" {
		return constants.NotAvailable
	}

	return value
}

func folderName(folder *artifacts.NotebookFolder) string {
	if folder == nil {
		return constants.NotAvailable
	}

	return valueOrNA(folder.Name)
}

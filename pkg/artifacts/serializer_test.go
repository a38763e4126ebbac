package artifacts_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

func validNotebook() artifacts.NotebookResource {
	return artifacts.NotebookResource{
		Resource: artifacts.Resource{Name: "nb1"},
		Properties: artifacts.Notebook{
			NbFormat:      4,
			NbFormatMinor: 2,
			Metadata: artifacts.NotebookMetadata{
				LanguageInfo: &artifacts.NotebookLanguageInfo{Name: "python"},
			},
			Cells: []artifacts.NotebookCell{
				{CellType: "markdown", Source: []string{"# Title"}},
			},
		},
	}
}

func TestJSONSerializer_Serialize(t *testing.T) {
	t.Parallel()

	serializer := artifacts.NewJSONSerializer()

	t.Run("valid notebook", func(t *testing.T) {
		t.Parallel()

		data, err := serializer.Serialize(validNotebook())
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"name": "nb1",
			"properties": {
				"metadata": {"language_info": {"name": "python"}},
				"nbformat": 4,
				"nbformat_minor": 2,
				"cells": [{"cell_type": "markdown", "metadata": null, "source": ["# Title"]}]
			}
		}`, string(data))
	})

	t.Run("missing cells", func(t *testing.T) {
		t.Parallel()

		notebook := validNotebook()
		notebook.Properties.Cells = nil

		_, err := serializer.Serialize(notebook)
		require.ErrorIs(t, err, artifacts.ErrSchemaMismatch)
	})

	t.Run("cell without type", func(t *testing.T) {
		t.Parallel()

		notebook := validNotebook()
		notebook.Properties.Cells[0].CellType = ""

		_, err := serializer.Serialize(notebook)
		require.ErrorIs(t, err, artifacts.ErrSchemaMismatch)
	})

	t.Run("incomplete session properties", func(t *testing.T) {
		t.Parallel()

		notebook := validNotebook()
		notebook.Properties.SessionProperties = &artifacts.NotebookSessionProperties{DriverMemory: "28g"}

		_, err := serializer.Serialize(notebook)
		require.ErrorIs(t, err, artifacts.ErrSchemaMismatch)
	})

	t.Run("rename request", func(t *testing.T) {
		t.Parallel()

		data, err := serializer.Serialize(&artifacts.RenameRequest{NewName: "nb2"})
		require.NoError(t, err)
		assert.JSONEq(t, `{"newName":"nb2"}`, string(data))

		_, err = serializer.Serialize(&artifacts.RenameRequest{})
		require.ErrorIs(t, err, artifacts.ErrSchemaMismatch)
	})

	t.Run("nil value", func(t *testing.T) {
		t.Parallel()

		data, err := serializer.Serialize(nil)
		require.NoError(t, err)
		assert.Nil(t, data)
	})
}

func TestJSONSerializer_Deserialize(t *testing.T) {
	t.Parallel()

	serializer := artifacts.NewJSONSerializer()

	t.Run("summary items skip validation", func(t *testing.T) {
		t.Parallel()

		var page artifacts.ListResponse[artifacts.NotebookResource]

		err := serializer.Deserialize([]byte(`{"value":[{"name":"nb1","etag":"e1"}],"nextLink":"https://next"}`), &page)
		require.NoError(t, err)
		require.Len(t, page.Value, 1)
		assert.Equal(t, "nb1", page.Value[0].GetName())
		assert.Equal(t, "e1", page.Value[0].GetEtag())
		assert.Equal(t, "https://next", page.NextLink)
	})

	t.Run("empty body is a no-op", func(t *testing.T) {
		t.Parallel()

		notebook := validNotebook()

		require.NoError(t, serializer.Deserialize([]byte("  \n"), &notebook))
		assert.Equal(t, "nb1", notebook.Name)
	})

	t.Run("wrong shape", func(t *testing.T) {
		t.Parallel()

		var notebook artifacts.NotebookResource

		err := serializer.Deserialize([]byte(`{"properties":{"cells":"not a list"}}`), &notebook)
		require.ErrorIs(t, err, artifacts.ErrSchemaMismatch)
	})
}

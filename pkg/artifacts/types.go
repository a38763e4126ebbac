package artifacts

import (
	"encoding/json"
)

// Resource is the envelope shared by every workspace artifact.
type Resource struct {
	ID   string `json:"id,omitempty"   yaml:"id,omitempty"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Etag string `json:"etag,omitempty" yaml:"etag,omitempty"`
}

// Named is implemented by artifact types that expose their envelope.
type Named interface {
	GetName() string
	GetEtag() string
}

// GetName returns the artifact name.
func (r Resource) GetName() string {
	return r.Name
}

// GetEtag returns the artifact entity tag.
func (r Resource) GetEtag() string {
	return r.Etag
}

// NotebookResource is a notebook artifact.
type NotebookResource struct {
	Resource

	Properties Notebook `json:"properties" yaml:"properties"`
}

// Notebook holds the notebook definition.
type Notebook struct {
	Description       string                     `json:"description,omitempty"       yaml:"description,omitempty"`
	BigDataPool       *BigDataPoolReference      `json:"bigDataPool,omitempty"       yaml:"bigDataPool,omitempty"`
	SessionProperties *NotebookSessionProperties `json:"sessionProperties,omitempty" yaml:"sessionProperties,omitempty"`
	Metadata          NotebookMetadata           `json:"metadata"                    yaml:"metadata"`
	NbFormat          int                        `json:"nbformat"                    yaml:"nbformat"                    validate:"gte=0"`
	NbFormatMinor     int                        `json:"nbformat_minor"              yaml:"nbformat_minor"              validate:"gte=0"`
	Cells             []NotebookCell             `json:"cells"                       yaml:"cells"                       validate:"required,dive"`
	Folder            *NotebookFolder            `json:"folder,omitempty"            yaml:"folder,omitempty"`
}

// BigDataPoolReference points at the Spark pool a notebook runs on.
type BigDataPoolReference struct {
	Type          string `json:"type"          yaml:"type"          validate:"required"`
	ReferenceName string `json:"referenceName" yaml:"referenceName" validate:"required"`
}

// NotebookSessionProperties configures the Spark session.
type NotebookSessionProperties struct {
	DriverMemory   string `json:"driverMemory"   yaml:"driverMemory"   validate:"required"`
	DriverCores    int    `json:"driverCores"    yaml:"driverCores"    validate:"gt=0"`
	ExecutorMemory string `json:"executorMemory" yaml:"executorMemory" validate:"required"`
	ExecutorCores  int    `json:"executorCores"  yaml:"executorCores"  validate:"gt=0"`
	NumExecutors   int    `json:"numExecutors"   yaml:"numExecutors"   validate:"gt=0"`
}

// NotebookMetadata is the notebook-level metadata.
type NotebookMetadata struct {
	Kernelspec   *NotebookKernelSpec   `json:"kernelspec,omitempty"    yaml:"kernelspec,omitempty"`
	LanguageInfo *NotebookLanguageInfo `json:"language_info,omitempty" yaml:"language_info,omitempty"`
}

// NotebookKernelSpec names the kernel.
type NotebookKernelSpec struct {
	Name        string `json:"name"         yaml:"name"         validate:"required"`
	DisplayName string `json:"display_name" yaml:"display_name"`
}

// NotebookLanguageInfo describes the notebook language.
type NotebookLanguageInfo struct {
	Name           string `json:"name"                     yaml:"name"                     validate:"required"`
	CodemirrorMode string `json:"codemirror_mode,omitempty" yaml:"codemirror_mode,omitempty"`
}

// NotebookCell is one cell of a notebook.
type NotebookCell struct {
	CellType    string                 `json:"cell_type"             yaml:"cell_type"             validate:"required"`
	Metadata    map[string]interface{} `json:"metadata"              yaml:"metadata"`
	Source      []string               `json:"source"                yaml:"source"`
	Attachments map[string]interface{} `json:"attachments,omitempty" yaml:"attachments,omitempty"`
	Outputs     []json.RawMessage      `json:"outputs,omitempty"     yaml:"-"`
}

// NotebookFolder is the folder a notebook is displayed in.
type NotebookFolder struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Artifact is an untyped artifact for collections without a dedicated model.
type Artifact struct {
	Resource

	Properties json.RawMessage `json:"properties,omitempty" yaml:"-"`
}

// Page is one page of a listing. An empty NextLink marks the final page.
type Page[T any] struct {
	Items    []T
	NextLink string
}

// ListResponse is the wire shape of a listing page.
type ListResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"nextLink,omitempty"`
}

// RenameRequest carries the proposed new name of an artifact.
type RenameRequest struct {
	NewName string `json:"newName" validate:"required"`
}

// GetResult is the outcome of a conditional read. When NotModified is set the
// server confirmed the caller's etag and Resource is nil.
type GetResult[T any] struct {
	Resource    *T
	ETag        string
	NotModified bool
}

// NoContent is the result type of operations without a response payload.
type NoContent struct{}

package client

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// Operation identifiers used in the route table and as span/metric names.
const (
	opGet             = "get"
	opList            = "list"
	opListNext        = "listNext"
	opListSummary     = "listSummary"
	opListSummaryNext = "listSummaryNext"
	opCreateOrUpdate  = "createOrUpdate"
	opDelete          = "delete"
	opRename          = "rename"
	opPoll            = "poll"
)

// route describes one operation against a collection. Path templates use
// {collection} and {name}; an empty template means the caller supplies an
// absolute link.
type route struct {
	method  string
	path    string
	success []int
	hasBody bool
	lro     bool
}

var (
	mutationCodes = []int{http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent}
	readCodes     = []int{http.StatusOK, http.StatusNotModified}
	listCodes     = []int{http.StatusOK}
)

var routes = map[string]route{
	opGet: {
		method:  http.MethodGet,
		path:    "/{collection}/{name}",
		success: readCodes,
	},
	opList: {
		method:  http.MethodGet,
		path:    "/{collection}",
		success: listCodes,
	},
	opListNext: {
		method:  http.MethodGet,
		success: listCodes,
	},
	opListSummary: {
		method:  http.MethodGet,
		path:    "/{collection}/summary",
		success: listCodes,
	},
	opListSummaryNext: {
		method:  http.MethodGet,
		success: listCodes,
	},
	opCreateOrUpdate: {
		method:  http.MethodPut,
		path:    "/{collection}/{name}",
		success: mutationCodes,
		hasBody: true,
		lro:     true,
	},
	opDelete: {
		method:  http.MethodDelete,
		path:    "/{collection}/{name}",
		success: mutationCodes,
		lro:     true,
	},
	opRename: {
		method:  http.MethodPost,
		path:    "/{collection}/{name}/rename",
		success: mutationCodes,
		hasBody: true,
		lro:     true,
	},
}

// expand fills the path template. Both parts are path-escaped.
func (r route) expand(collection, name string) string {
	collection = strings.Trim(collection, "/")

	segments := strings.Split(collection, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}

	return strings.NewReplacer(
		"{collection}", strings.Join(segments, "/"),
		"{name}", url.PathEscape(name),
	).Replace(r.path)
}

func (r route) accepts(status int) bool {
	return slices.Contains(r.success, status)
}

func (r route) needsName() bool {
	return strings.Contains(r.path, "{name}")
}

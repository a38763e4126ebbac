package client

import (
	"context"
	"fmt"
	nethttp "net/http"
	"strings"

	"github.com/fivetwenty-io/artifacts-client/internal/constants"
	"github.com/fivetwenty-io/artifacts-client/internal/http"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
)

// ResourceClient implements artifacts.ArtifactClient for one collection.
type ResourceClient[T any] struct {
	client     *Client
	collection string
}

// NewResourceClient creates a client for the given collection path.
func NewResourceClient[T any](client *Client, collection string) *ResourceClient[T] {
	return &ResourceClient[T]{
		client:     client,
		collection: strings.Trim(collection, "/"),
	}
}

// Collection returns the collection path.
func (c *ResourceClient[T]) Collection() string {
	return c.collection
}

// call describes one request against the route table.
type call struct {
	op      string
	name    string
	link    string
	headers map[string]string
	body    []byte
}

// operationName is the name reported to interceptors, e.g. "notebooks.get".
func (c *ResourceClient[T]) operationName(op string) string {
	return c.collection + "." + op
}

// send executes one route. Statuses outside the route's success set are
// returned as *artifacts.ResponseError.
func (c *ResourceClient[T]) send(ctx context.Context, req call) (string, *http.Response, error) {
	rt, ok := routes[req.op]
	if !ok {
		return "", nil, fmt.Errorf("%w: unknown operation %q", artifacts.ErrInvalidArgument, req.op)
	}

	if c.collection == "" {
		return "", nil, fmt.Errorf("%w: collection is required", artifacts.ErrInvalidArgument)
	}

	path := req.link
	if rt.path != "" {
		if rt.needsName() && req.name == "" {
			return "", nil, fmt.Errorf("%w: name is required", artifacts.ErrInvalidArgument)
		}

		path = rt.expand(c.collection, req.name)
	}

	if path == "" {
		return "", nil, fmt.Errorf("%w: continuation token is required", artifacts.ErrInvalidArgument)
	}

	if rt.hasBody && req.body == nil {
		return "", nil, fmt.Errorf("%w: %s requires a request body", artifacts.ErrInvalidArgument, req.op)
	}

	resp, err := c.client.httpClient.Do(ctx, &http.Request{
		Operation: c.operationName(req.op),
		Method:    rt.method,
		Path:      path,
		Headers:   req.headers,
		Body:      req.body,
	})
	if err != nil {
		return path, nil, err
	}

	if !rt.accepts(resp.StatusCode) {
		return path, resp, newResponseError(rt.method, path, resp)
	}

	return path, resp, nil
}

func newResponseError(method, path string, resp *http.Response) error {
	body, err := artifacts.ParseCloudError(resp.Body)
	if err != nil {
		body = artifacts.CloudErrorBody{Message: strings.TrimSpace(string(resp.Body))}
	}

	return &artifacts.ResponseError{
		StatusCode: resp.StatusCode,
		Method:     method,
		URL:        path,
		Body:       body,
	}
}

// Get implements artifacts.ArtifactClient.Get.
func (c *ResourceClient[T]) Get(ctx context.Context, name string, options *artifacts.GetOptions) (*artifacts.GetResult[T], error) {
	var headers map[string]string
	if options != nil && options.IfNoneMatch != "" {
		headers = map[string]string{constants.HeaderIfNoneMatch: options.IfNoneMatch}
	}

	_, resp, err := c.send(ctx, call{op: opGet, name: name, headers: headers})
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", c.collection, name, err)
	}

	etag := resp.Headers.Get(constants.HeaderETag)

	if resp.StatusCode == nethttp.StatusNotModified {
		if etag == "" && options != nil {
			etag = options.IfNoneMatch
		}

		return &artifacts.GetResult[T]{ETag: etag, NotModified: true}, nil
	}

	var resource T

	err = c.client.serializer.Deserialize(resp.Body, &resource)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", c.collection, err)
	}

	if etag == "" {
		if named, ok := any(resource).(artifacts.Named); ok {
			etag = named.GetEtag()
		}
	}

	return &artifacts.GetResult[T]{Resource: &resource, ETag: etag}, nil
}

// CreateOrUpdate implements artifacts.ArtifactClient.CreateOrUpdate.
func (c *ResourceClient[T]) CreateOrUpdate(ctx context.Context, name string, resource T, options *artifacts.CreateOrUpdateOptions) (artifacts.Poller[T], error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", artifacts.ErrInvalidArgument)
	}

	body, err := c.client.serializer.Serialize(resource)
	if err != nil {
		return nil, fmt.Errorf("serializing %s %s: %w", c.collection, name, err)
	}

	var (
		headers       map[string]string
		pollerOptions artifacts.PollerOptions
	)

	if options != nil {
		pollerOptions = options.PollerOptions

		if options.IfMatch != "" {
			headers = map[string]string{constants.HeaderIfMatch: options.IfMatch}
		}
	}

	poller, err := beginOperation[T](ctx, c, call{op: opCreateOrUpdate, name: name, headers: headers, body: body}, pollerOptions)
	if err != nil {
		return nil, fmt.Errorf("creating or updating %s %s: %w", c.collection, name, err)
	}

	return poller, nil
}

// Delete implements artifacts.ArtifactClient.Delete.
func (c *ResourceClient[T]) Delete(ctx context.Context, name string, options *artifacts.OperationOptions) (artifacts.Poller[artifacts.NoContent], error) {
	var pollerOptions artifacts.PollerOptions
	if options != nil {
		pollerOptions = options.PollerOptions
	}

	poller, err := beginOperation[artifacts.NoContent](ctx, c, call{op: opDelete, name: name}, pollerOptions)
	if err != nil {
		return nil, fmt.Errorf("deleting %s %s: %w", c.collection, name, err)
	}

	return poller, nil
}

// Rename implements artifacts.ArtifactClient.Rename.
func (c *ResourceClient[T]) Rename(ctx context.Context, name, newName string, options *artifacts.OperationOptions) (artifacts.Poller[artifacts.NoContent], error) {
	if name == "" || newName == "" {
		return nil, fmt.Errorf("%w: name and new name are required", artifacts.ErrInvalidArgument)
	}

	body, err := c.client.serializer.Serialize(&artifacts.RenameRequest{NewName: newName})
	if err != nil {
		return nil, fmt.Errorf("serializing rename request: %w", err)
	}

	var pollerOptions artifacts.PollerOptions
	if options != nil {
		pollerOptions = options.PollerOptions
	}

	poller, err := beginOperation[artifacts.NoContent](ctx, c, call{op: opRename, name: name, body: body}, pollerOptions)
	if err != nil {
		return nil, fmt.Errorf("renaming %s %s: %w", c.collection, name, err)
	}

	return poller, nil
}

// beginOperation sends the initial request of a long-running route and wraps
// the response in a poller.
func beginOperation[R any, T any](ctx context.Context, c *ResourceClient[T], req call, options artifacts.PollerOptions) (*lroPoller[R], error) {
	if !routes[req.op].lro {
		return nil, fmt.Errorf("%w: %s is not a long-running operation", artifacts.ErrInvalidArgument, req.op)
	}

	path, resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	return newPoller[R](c.client, pollerState{
		Operation:     c.operationName(req.op),
		Method:        routes[req.op].method,
		OriginalURL:   path,
		FinalStateVia: options.FinalStateVia,
	}, resp, options.Frequency)
}

// ListPage implements artifacts.ArtifactClient.ListPage.
func (c *ResourceClient[T]) ListPage(ctx context.Context) (*artifacts.Page[T], error) {
	return c.listPage(ctx, call{op: opList})
}

// ListNextPage implements artifacts.ArtifactClient.ListNextPage.
func (c *ResourceClient[T]) ListNextPage(ctx context.Context, nextLink string) (*artifacts.Page[T], error) {
	return c.listPage(ctx, call{op: opListNext, link: nextLink})
}

// ListSummaryPage implements artifacts.ArtifactClient.ListSummaryPage.
func (c *ResourceClient[T]) ListSummaryPage(ctx context.Context) (*artifacts.Page[T], error) {
	return c.listPage(ctx, call{op: opListSummary})
}

// ListSummaryNextPage implements artifacts.ArtifactClient.ListSummaryNextPage.
func (c *ResourceClient[T]) ListSummaryNextPage(ctx context.Context, nextLink string) (*artifacts.Page[T], error) {
	return c.listPage(ctx, call{op: opListSummaryNext, link: nextLink})
}

// List implements artifacts.ArtifactClient.List.
func (c *ResourceClient[T]) List() *artifacts.Pager[T] {
	return artifacts.NewPager(artifacts.PageFetcher[T]{
		First: c.ListPage,
		Next:  c.ListNextPage,
	})
}

// ListSummary implements artifacts.ArtifactClient.ListSummary.
func (c *ResourceClient[T]) ListSummary() *artifacts.Pager[T] {
	return artifacts.NewPager(artifacts.PageFetcher[T]{
		First: c.ListSummaryPage,
		Next:  c.ListSummaryNextPage,
	})
}

func (c *ResourceClient[T]) listPage(ctx context.Context, req call) (*artifacts.Page[T], error) {
	_, resp, err := c.send(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.collection, err)
	}

	var result artifacts.ListResponse[T]

	err = c.client.serializer.Deserialize(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing %s list response: %w", c.collection, err)
	}

	items := result.Value
	if items == nil {
		items = []T{}
	}

	return &artifacts.Page[T]{Items: items, NextLink: result.NextLink}, nil
}

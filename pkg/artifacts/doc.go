// Package artifacts provides types, interfaces, and helpers for working with
// workspace artifact collections such as notebooks.
//
// # Overview
//
// The artifacts package defines the domain types (NotebookResource, Artifact),
// the collection client interface (ArtifactClient), and the two helpers every
// collection operation returns: a Pager for listings and a Poller for
// long-running mutations. A concrete implementation is provided by the
// artifactsclient package, which wires configuration, transport and
// interceptors. Most consumers should import artifactsclient to construct a
// client and then use the interfaces exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
//	  "github.com/fivetwenty-io/artifacts-client/pkg/artifactsclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := artifactsclient.NewWithToken(ctx, "https://myws.dev.example.net", token)
//	  if err != nil { log.Fatal(err) }
//
//	  result, err := cli.Notebooks().Get(ctx, "daily-report", nil)
//	  if err != nil { log.Fatal(err) }
//	  _ = result.Resource
//	}
//
// # Pagination
//
// List and ListSummary return a Pager. Pages are fetched on demand; breaking
// out of a range loop stops further requests:
//
//	for nb, err := range cli.Notebooks().List().Items(ctx) {
//	  if err != nil { break }
//	  fmt.Println(nb.Name)
//	}
//
// The single-page primitives ListPage and ListNextPage are available for
// callers that manage continuation tokens themselves.
//
// # Long-running operations
//
// CreateOrUpdate, Delete and Rename return a Poller. PollUntilDone waits for a
// terminal state, honoring Retry-After. A handle can be serialized with
// ResumeToken and restored later through Client.ResumeOperation; the
// HandleStore implementations persist such tokens in memory or in a NATS
// JetStream key-value bucket.
//
// # Errors
//
// Unexpected statuses are returned as *ResponseError, which unwraps to
// ErrNotFound, ErrConflict, ErrPreconditionFailed or ErrUnknownServer.
// Failed operations are returned as *OperationError. A conditional Get that
// matches the caller's etag is not an error: GetResult.NotModified is set.
//
// # Interceptors
//
// Request/response interceptors provide logging, auth headers, client request
// ids, OpenTelemetry spans and Prometheus metrics around every request.
package artifacts

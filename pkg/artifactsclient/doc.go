// Package artifactsclient provides the primary entry point for constructing a
// workspace artifacts client that implements the artifacts.Client interface.
//
// It layers configuration, HTTP transport and the interceptor chain on top of
// the interfaces and types defined in the artifacts package.
//
// Quick start
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
//
//	  cli, err := artifactsclient.New(ctx, &artifacts.Config{
//	    Endpoint:    "myws.dev.example.net", // https:// is added
//	    AccessToken: "eyJhbGciOi...",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  poller, err := cli.Notebooks().Delete(ctx, "scratch", nil)
//	  if err != nil { log.Fatal(err) }
//
//	  _, err = poller.PollUntilDone(ctx, nil)
//	  if err != nil { log.Fatal(err) }
//	}
//
// Credential acquisition is left to the caller: pass a bearer token or any
// artifacts.TokenProvider.
package artifactsclient

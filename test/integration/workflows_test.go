package integration

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/artifacts-client/internal/fakeserver"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifacts"
	"github.com/fivetwenty-io/artifacts-client/pkg/artifactsclient"
)

func countRequests(fake *fakeserver.Server, method, pathPrefix string) int {
	count := 0

	for _, req := range fake.Requests() {
		if req.Method == method && strings.HasPrefix(req.Path, pathPrefix) {
			count++
		}
	}

	return count
}

func TestWorkflow_WriteThenRead(t *testing.T) {
	t.Parallel()

	for _, mode := range []fakeserver.Mode{fakeserver.ModeSync, fakeserver.ModeAsync, fakeserver.ModeLocation, fakeserver.ModeAccepted} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			env := NewEnvironment(t, fakeserver.Options{Mode: mode, PollsBeforeDone: 1})
			ctx := context.Background()
			name := GenerateTestName("write-read")
			notebook := TestNotebook(name, "round trip")

			poller, err := env.Client.Notebooks().CreateOrUpdate(ctx, name, notebook, nil)
			require.NoError(t, err)

			written, err := poller.PollUntilDone(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, name, written.Name)
			assert.Equal(t, notebook.Properties, written.Properties)

			result, err := env.Client.Notebooks().Get(ctx, name, nil)
			require.NoError(t, err)
			require.NotNil(t, result.Resource)
			assert.Equal(t, name, result.Resource.Name)
			assert.Equal(t, notebook.Properties, result.Resource.Properties)
			assert.NotEmpty(t, result.ETag)
			assert.NotEmpty(t, result.Resource.ID)
		})
	}
}

func TestWorkflow_PagesAreFetchedOnce(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t, fakeserver.Options{PageSize: 2})
	ctx := context.Background()

	names := []string{"nb-a", "nb-b", "nb-c", "nb-d", "nb-e"}
	for _, name := range names {
		env.Fake.Seed("notebooks", name, []byte(`{"cells":[],"nbformat":4,"nbformat_minor":2,"metadata":{}}`))
	}

	items, err := env.Client.Notebooks().List().Collect(ctx)
	require.NoError(t, err)

	got := make([]string, 0, len(items))
	for _, item := range items {
		got = append(got, item.Name)
	}

	assert.Equal(t, names, got)
	assert.Equal(t, 3, countRequests(env.Fake, http.MethodGet, "/notebooks"))
}

func TestWorkflow_TwoPageListing(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t, fakeserver.Options{PageSize: 1})
	ctx := context.Background()

	env.Fake.Seed("notebooks", "a", []byte(`{"cells":[]}`))
	env.Fake.Seed("notebooks", "b", []byte(`{"cells":[]}`))

	first, err := env.Client.Notebooks().ListSummaryPage(ctx)
	require.NoError(t, err)
	require.Len(t, first.Items, 1)
	assert.Equal(t, "a", first.Items[0].Name)
	require.NotEmpty(t, first.NextLink)

	second, err := env.Client.Notebooks().ListSummaryNextPage(ctx, first.NextLink)
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "b", second.Items[0].Name)
	assert.Empty(t, second.NextLink)

	var streamed []string

	for item, err := range env.Client.Notebooks().ListSummary().Items(ctx) {
		require.NoError(t, err)

		streamed = append(streamed, item.Name)
	}

	assert.Equal(t, []string{"a", "b"}, streamed)
}

func TestWorkflow_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	for _, mode := range []fakeserver.Mode{fakeserver.ModeSync, fakeserver.ModeAsync, fakeserver.ModeAccepted} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			env := NewEnvironment(t, fakeserver.Options{Mode: mode})
			ctx := context.Background()
			env.Fake.Seed("notebooks", "doomed", []byte(`{"cells":[]}`))

			for range 2 {
				poller, err := env.Client.Notebooks().Delete(ctx, "doomed", nil)
				require.NoError(t, err)

				_, err = poller.PollUntilDone(ctx, nil)
				require.NoError(t, err)
			}

			_, err := env.Client.Notebooks().Get(ctx, "doomed", nil)
			require.ErrorIs(t, err, artifacts.ErrNotFound)
		})
	}
}

func TestWorkflow_SynchronousWriteNeedsNoPolling(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t, fakeserver.Options{})
	ctx := context.Background()
	name := GenerateTestName("sync")

	poller, err := env.Client.Notebooks().CreateOrUpdate(ctx, name, TestNotebook(name, "sync"), nil)
	require.NoError(t, err)
	assert.True(t, poller.Done())

	before := len(env.Fake.Requests())

	written, err := poller.PollUntilDone(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, name, written.Name)
	assert.Len(t, env.Fake.Requests(), before)
}

func TestWorkflow_FailedOperationAfterThreePolls(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t, fakeserver.Options{Mode: fakeserver.ModeAsync, PollsBeforeDone: 2, FailOperations: true})
	ctx := context.Background()
	name := GenerateTestName("failing")

	poller, err := env.Client.Notebooks().CreateOrUpdate(ctx, name, TestNotebook(name, "fails"), nil)
	require.NoError(t, err)
	assert.Equal(t, artifacts.OperationStateAccepted, poller.State())

	_, err = poller.PollUntilDone(ctx, nil)
	require.ErrorIs(t, err, artifacts.ErrOperationFailed)

	var opErr *artifacts.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "OperationFailed", opErr.Body.Code)
	assert.Equal(t, artifacts.OperationStateFailed, poller.State())
	assert.Equal(t, 3, countRequests(env.Fake, http.MethodGet, "/operations/"))

	_, err = env.Client.Notebooks().Get(ctx, name, nil)
	require.ErrorIs(t, err, artifacts.ErrNotFound, "failed writes are not applied")
}

func TestWorkflow_ConditionalRead(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t, fakeserver.Options{})
	ctx := context.Background()
	etag := env.Fake.Seed("notebooks", "cached", []byte(`{"cells":[]}`))

	result, err := env.Client.Notebooks().Get(ctx, "cached", &artifacts.GetOptions{IfNoneMatch: etag})
	require.NoError(t, err)
	assert.True(t, result.NotModified)
	assert.Nil(t, result.Resource)
	assert.Equal(t, etag, result.ETag)

	result, err = env.Client.Notebooks().Get(ctx, "cached", &artifacts.GetOptions{IfNoneMatch: "stale"})
	require.NoError(t, err)
	assert.False(t, result.NotModified)
	require.NotNil(t, result.Resource)
}

func TestWorkflow_OptimisticConcurrency(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t, fakeserver.Options{})
	ctx := context.Background()
	name := GenerateTestName("etag")

	poller, err := env.Client.Notebooks().CreateOrUpdate(ctx, name, TestNotebook(name, "v1"), nil)
	require.NoError(t, err)

	first, err := poller.PollUntilDone(ctx, nil)
	require.NoError(t, err)

	poller, err = env.Client.Notebooks().CreateOrUpdate(ctx, name, TestNotebook(name, "v2"), &artifacts.CreateOrUpdateOptions{IfMatch: first.Etag})
	require.NoError(t, err)

	second, err := poller.PollUntilDone(ctx, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.Etag, second.Etag)

	_, err = env.Client.Notebooks().CreateOrUpdate(ctx, name, TestNotebook(name, "v3"), &artifacts.CreateOrUpdateOptions{IfMatch: first.Etag})
	require.ErrorIs(t, err, artifacts.ErrPreconditionFailed)
	assert.True(t, artifacts.IsPreconditionFailed(err))
}

func TestWorkflow_RenameAndConflict(t *testing.T) {
	t.Parallel()

	for _, mode := range []fakeserver.Mode{fakeserver.ModeSync, fakeserver.ModeAsync, fakeserver.ModeLocation, fakeserver.ModeAccepted} {
		t.Run(string(mode), func(t *testing.T) {
			t.Parallel()

			env := NewEnvironment(t, fakeserver.Options{Mode: mode})
			ctx := context.Background()
			env.Fake.Seed("notebooks", "old", []byte(`{"cells":[]}`))
			env.Fake.Seed("notebooks", "taken", []byte(`{"cells":[]}`))

			_, err := env.Client.Notebooks().Rename(ctx, "old", "taken", nil)
			require.ErrorIs(t, err, artifacts.ErrConflict)

			poller, err := env.Client.Notebooks().Rename(ctx, "old", "new", nil)
			require.NoError(t, err)

			_, err = poller.PollUntilDone(ctx, nil)
			require.NoError(t, err)

			_, err = env.Client.Notebooks().Get(ctx, "new", nil)
			require.NoError(t, err)

			_, err = env.Client.Notebooks().Get(ctx, "old", nil)
			require.ErrorIs(t, err, artifacts.ErrNotFound)
			assert.Zero(t, countRequests(env.Fake, http.MethodGet, "/notebooks/old/rename"))
		})
	}
}

func TestWorkflow_ResumeFromToken(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t, fakeserver.Options{Mode: fakeserver.ModeAsync, PollsBeforeDone: 2})
	ctx := context.Background()
	name := GenerateTestName("resume")

	poller, err := env.Client.Notebooks().CreateOrUpdate(ctx, name, TestNotebook(name, "resumed"), nil)
	require.NoError(t, err)

	token, err := poller.ResumeToken()
	require.NoError(t, err)

	store := artifacts.NewMemoryHandleStore()
	id := artifacts.NewHandleID()
	require.NoError(t, store.Save(ctx, id, token))

	stored, err := store.Load(ctx, id)
	require.NoError(t, err)

	resumed, err := env.Client.ResumeNotebookOperation(stored)
	require.NoError(t, err)

	written, err := resumed.PollUntilDone(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, name, written.Name)
	assert.Equal(t, "resumed", written.Properties.Description)

	_, err = resumed.ResumeToken()
	require.ErrorIs(t, err, artifacts.ErrPollerDone)
}

func TestWorkflow_GenericCollection(t *testing.T) {
	t.Parallel()

	env := NewEnvironment(t, fakeserver.Options{})
	ctx := context.Background()
	env.Fake.Seed("sqlScripts", "report", []byte(`{"content":{"query":"select 1"}}`))

	items, err := env.Client.Artifacts("sqlScripts").List().Collect(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "report", items[0].Name)
	assert.JSONEq(t, `{"content":{"query":"select 1"}}`, string(items[0].Properties))
}

func TestWorkflow_TransportRetries(t *testing.T) {
	t.Parallel()

	var failures atomic.Int32

	fake := fakeserver.New(fakeserver.Options{})
	fake.Seed("notebooks", "flaky", []byte(`{"cells":[]}`))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failures.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)

			return
		}

		fake.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)

	client, err := artifactsclient.New(context.Background(), &artifacts.Config{
		Endpoint:     server.URL,
		AccessToken:  "integration-token",
		RetryMax:     3,
		RetryWaitMin: time.Millisecond,
		RetryWaitMax: 5 * time.Millisecond,
	})
	require.NoError(t, err)

	result, err := client.Notebooks().Get(context.Background(), "flaky", nil)
	require.NoError(t, err)
	assert.Equal(t, "flaky", result.Resource.Name)
	assert.Equal(t, int32(3), failures.Load())
	assert.Len(t, fake.Requests(), 1)
}

func TestWorkflow_RetriesDisabledByDefault(t *testing.T) {
	t.Parallel()

	env := NewEnvironmentWithHandler(t, fakeserver.Options{}, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				w.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			next.ServeHTTP(w, r)
		})
	})

	_, err := env.Client.Notebooks().Get(context.Background(), "anything", nil)
	require.ErrorIs(t, err, artifacts.ErrUnknownServer)
	assert.Empty(t, env.Fake.Requests())
}

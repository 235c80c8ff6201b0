package directory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/returnnullptr/runa/directory"
)

type fakeResolver struct {
	calls int
	endpt string
	err   error
}

func (f *fakeResolver) Resolve(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.endpt, f.err
}

func TestManagerStaticEndpointBypassesResolver(t *testing.T) {
	resolver := &fakeResolver{endpt: "articles.internal:443"}
	m := directory.NewManager(
		directory.WithStaticEndpoints(map[string]string{"Article": "articles.static:443"}),
		directory.WithResolver(resolver),
	)

	endpoint, err := m.Resolve(context.Background(), "Article")
	require.NoError(t, err)
	require.Equal(t, "articles.static:443", endpoint)
	require.Equal(t, 0, resolver.calls)
}

func TestManagerResolvesAndCaches(t *testing.T) {
	resolver := &fakeResolver{endpt: "users.internal:443"}
	m := directory.NewManager(
		directory.WithResolver(resolver),
		directory.WithTTL(time.Minute),
	)

	endpoint, err := m.Resolve(context.Background(), "User")
	require.NoError(t, err)
	require.Equal(t, "users.internal:443", endpoint)

	endpoint, err = m.Resolve(context.Background(), "User")
	require.NoError(t, err)
	require.Equal(t, "users.internal:443", endpoint)
	require.Equal(t, 1, resolver.calls, "second Resolve should hit the cache, not the resolver")
}

func TestManagerNoResolverConfigured(t *testing.T) {
	m := directory.NewManager()
	_, err := m.Resolve(context.Background(), "Comment")
	require.Error(t, err)
}

func TestManagerResolverError(t *testing.T) {
	resolver := &fakeResolver{err: errors.New("directory unreachable")}
	m := directory.NewManager(directory.WithResolver(resolver))

	_, err := m.Resolve(context.Background(), "Comment")
	require.Error(t, err)
}

func TestManagerInvalidate(t *testing.T) {
	resolver := &fakeResolver{endpt: "v1"}
	m := directory.NewManager(directory.WithResolver(resolver), directory.WithTTL(time.Minute))

	_, err := m.Resolve(context.Background(), "User")
	require.NoError(t, err)
	require.NoError(t, m.Invalidate(context.Background(), "User"))

	resolver.endpt = "v2"
	endpoint, err := m.Resolve(context.Background(), "User")
	require.NoError(t, err)
	require.Equal(t, "v2", endpoint)
	require.Equal(t, 2, resolver.calls)
}

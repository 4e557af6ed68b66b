package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/zhmcclient/zhmccli/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	authCalls   int
	authErr     error
	lookupCalls int
	lookupErr   error
	invokeCalls int
	// expireTokens lists tokens the console considers stale; calls made
	// with them fail with an expired-session fault.
	expireTokens map[string]bool
	logoffCalls  int
	lastToken    string
}

func (s *stubClient) token() string {
	return fmt.Sprintf("token-%d", s.authCalls)
}

func (s *stubClient) Authenticate(ctx context.Context, creds client.Credentials) (string, error) {
	s.authCalls++
	if s.authErr != nil {
		return "", s.authErr
	}
	return s.token(), nil
}

func (s *stubClient) check(token string) error {
	s.lastToken = token
	if s.expireTokens[token] {
		return &client.SessionExpiredError{Host: "hmc1"}
	}
	return nil
}

func (s *stubClient) Lookup(ctx context.Context, token string, kind client.Kind, identifier string, scope *client.Handle) (*client.Handle, error) {
	s.lookupCalls++
	if err := s.check(token); err != nil {
		return nil, err
	}
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return &client.Handle{Kind: kind, Name: identifier, URI: "/api/" + string(kind) + "s/" + identifier}, nil
}

func (s *stubClient) Invoke(ctx context.Context, token string, req client.Request) (*client.Outcome, error) {
	s.invokeCalls++
	if err := s.check(token); err != nil {
		return nil, err
	}
	return &client.Outcome{}, nil
}

func (s *stubClient) PollStatus(ctx context.Context, token string, jobURI string) (client.JobStatus, error) {
	if err := s.check(token); err != nil {
		return client.JobStatus{}, err
	}
	return client.JobStatus{State: client.JobCompleted}, nil
}

func (s *stubClient) Logoff(ctx context.Context, token string) error {
	s.logoffCalls++
	return nil
}

func newTestSession(stub *stubClient) *Session {
	return New(stub, client.Credentials{Host: "hmc1", Userid: "op"})
}

func TestLogonLazyAndCached(t *testing.T) {
	stub := &stubClient{}
	sess := newTestSession(stub)
	ctx := context.Background()

	assert.False(t, sess.Authenticated())
	require.NoError(t, sess.Logon(ctx))
	require.NoError(t, sess.Logon(ctx))
	assert.Equal(t, 1, stub.authCalls)
	assert.True(t, sess.Authenticated())
}

func TestResolveCachesHandles(t *testing.T) {
	stub := &stubClient{}
	sess := newTestSession(stub)
	ctx := context.Background()

	h1, err := sess.Resolve(ctx, client.KindPartition, "PART1")
	require.NoError(t, err)
	h2, err := sess.Resolve(ctx, client.KindPartition, "PART1")
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, 1, stub.lookupCalls)
}

func TestResolveCacheKeyedByKind(t *testing.T) {
	stub := &stubClient{}
	sess := newTestSession(stub)
	ctx := context.Background()

	_, err := sess.Resolve(ctx, client.KindPartition, "A")
	require.NoError(t, err)
	_, err = sess.Resolve(ctx, client.KindCPC, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.lookupCalls)
}

func TestResolveDoesNotCacheFailures(t *testing.T) {
	stub := &stubClient{lookupErr: &client.NotFoundError{Kind: client.KindPartition, Identifier: "NOPE"}}
	sess := newTestSession(stub)
	ctx := context.Background()

	_, err := sess.Resolve(ctx, client.KindPartition, "NOPE")
	require.Error(t, err)

	stub.lookupErr = nil
	_, err = sess.Resolve(ctx, client.KindPartition, "NOPE")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.lookupCalls)
}

func TestInvalidateDropsSingleEntry(t *testing.T) {
	stub := &stubClient{}
	sess := newTestSession(stub)
	ctx := context.Background()

	_, err := sess.Resolve(ctx, client.KindPartition, "PART1")
	require.NoError(t, err)
	_, err = sess.Resolve(ctx, client.KindPartition, "PART2")
	require.NoError(t, err)

	sess.Invalidate(client.KindPartition, "PART1")

	_, err = sess.Resolve(ctx, client.KindPartition, "PART2")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.lookupCalls)

	_, err = sess.Resolve(ctx, client.KindPartition, "PART1")
	require.NoError(t, err)
	assert.Equal(t, 3, stub.lookupCalls)
}

func TestInvalidateKindDropsAllOfKind(t *testing.T) {
	stub := &stubClient{}
	sess := newTestSession(stub)
	ctx := context.Background()

	_, err := sess.Resolve(ctx, client.KindPartition, "PART1")
	require.NoError(t, err)
	_, err = sess.Resolve(ctx, client.KindCPC, "CPC1")
	require.NoError(t, err)

	sess.InvalidateKind(client.KindPartition)

	_, err = sess.Resolve(ctx, client.KindCPC, "CPC1")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.lookupCalls)

	_, err = sess.Resolve(ctx, client.KindPartition, "PART1")
	require.NoError(t, err)
	assert.Equal(t, 3, stub.lookupCalls)
}

func TestExpiredSessionRetriesOnce(t *testing.T) {
	stub := &stubClient{expireTokens: map[string]bool{"token-1": true}}
	sess := newTestSession(stub)
	ctx := context.Background()

	_, err := sess.Invoke(ctx, client.Request{Kind: client.KindCPC, Operation: "list"})
	require.NoError(t, err)

	// First call fails with the stale token, the session re-logs-on and
	// repeats the call exactly once.
	assert.Equal(t, 2, stub.authCalls)
	assert.Equal(t, 2, stub.invokeCalls)
	assert.Equal(t, "token-2", stub.lastToken)
}

func TestExpiredSessionTwiceSurfacesAuthError(t *testing.T) {
	stub := &stubClient{expireTokens: map[string]bool{"token-1": true, "token-2": true}}
	sess := newTestSession(stub)
	ctx := context.Background()

	_, err := sess.Invoke(ctx, client.Request{Kind: client.KindCPC, Operation: "list"})
	require.Error(t, err)
	assert.Equal(t, 2, stub.invokeCalls)
}

func TestLogoffClearsTokenAndCache(t *testing.T) {
	stub := &stubClient{}
	sess := newTestSession(stub)
	ctx := context.Background()

	_, err := sess.Resolve(ctx, client.KindPartition, "PART1")
	require.NoError(t, err)
	require.NoError(t, sess.Logoff(ctx))

	assert.False(t, sess.Authenticated())
	assert.Equal(t, 1, stub.logoffCalls)

	_, err = sess.Resolve(ctx, client.KindPartition, "PART1")
	require.NoError(t, err)
	assert.Equal(t, 2, stub.lookupCalls)
	assert.Equal(t, 2, stub.authCalls)
}

func TestLogoffWithoutLogonIsNoop(t *testing.T) {
	stub := &stubClient{}
	sess := newTestSession(stub)

	require.NoError(t, sess.Logoff(context.Background()))
	assert.Zero(t, stub.logoffCalls)
}

func TestScopeSelection(t *testing.T) {
	stub := &stubClient{}
	sess := newTestSession(stub)

	assert.Nil(t, sess.Scope())
	h := &client.Handle{Kind: client.KindCPC, Name: "CPC1"}
	sess.SetScope(h)
	assert.Same(t, h, sess.Scope())
	sess.ClearScope()
	assert.Nil(t, sess.Scope())
}

// Package session holds the authenticated connection to the console, the
// selected target scope, and the resource handle cache for one process or
// shell lifetime.
//
// Exactly one Session is live per process. It is owned by the single
// execution goroutine of the dispatcher, so the cache needs no locking; a
// future concurrent batch mode would have to add per-entry synchronization
// before relaxing that.
package session

import (
	"context"
	"errors"

	"github.com/zhmcclient/zhmccli/internal/client"
)

// cacheKey identifies a cache entry. Keys are unique per kind.
type cacheKey struct {
	kind       client.Kind
	identifier string
}

// Session is the authenticated, scoped context for command execution.
type Session struct {
	client client.Client
	creds  client.Credentials

	// token is the lazily obtained session token. Empty means not logged
	// on yet; Logon short-circuits when it is set.
	token string

	// scope is the selected default target (a CPC). Never persisted.
	scope *client.Handle

	cache map[cacheKey]*client.Handle
}

// New creates a session over the given client capability. No remote call
// is made until the first command needs one.
func New(c client.Client, creds client.Credentials) *Session {
	return &Session{
		client: c,
		creds:  creds,
		cache:  make(map[cacheKey]*client.Handle),
	}
}

// Host returns the configured console host.
func (s *Session) Host() string { return s.creds.Host }

// Userid returns the configured logon user.
func (s *Session) Userid() string { return s.creds.Userid }

// Authenticated reports whether a session token is currently held.
func (s *Session) Authenticated() bool { return s.token != "" }

// Logon ensures a session token exists. Safe to call before every command;
// a cached token short-circuits without a remote call.
func (s *Session) Logon(ctx context.Context) error {
	if s.token != "" {
		return nil
	}
	token, err := s.client.Authenticate(ctx, s.creds)
	if err != nil {
		return err
	}
	s.token = token
	return nil
}

// Logoff invalidates the token on the console and forgets it locally,
// along with every cached handle.
func (s *Session) Logoff(ctx context.Context) error {
	if s.token == "" {
		return nil
	}
	err := s.client.Logoff(ctx, s.token)
	s.token = ""
	s.cache = make(map[cacheKey]*client.Handle)
	return err
}

// do runs one remote call with the current token. On an expired-session
// fault it re-logs-on exactly once and repeats the call; a second expiry
// surfaces as an authentication error.
func (s *Session) do(ctx context.Context, call func(token string) error) error {
	if err := s.Logon(ctx); err != nil {
		return err
	}

	err := call(s.token)
	if !errors.Is(err, &client.SessionExpiredError{}) {
		return err
	}

	s.token = ""
	if logonErr := s.Logon(ctx); logonErr != nil {
		return &client.AuthenticationError{Host: s.creds.Host, Reason: logonErr}
	}
	return call(s.token)
}

// Resolve turns (kind, identifier) into a handle, from the cache when
// possible. A miss performs a remote lookup scoped to the session's
// selected target and caches the result.
func (s *Session) Resolve(ctx context.Context, kind client.Kind, identifier string) (*client.Handle, error) {
	return s.ResolveIn(ctx, kind, identifier, s.scope)
}

// ResolveIn is Resolve with an explicit parent scope, for commands that
// name the parent instead of relying on the selection.
func (s *Session) ResolveIn(ctx context.Context, kind client.Kind, identifier string, scope *client.Handle) (*client.Handle, error) {
	key := cacheKey{kind: kind, identifier: identifier}
	if h, ok := s.cache[key]; ok {
		return h, nil
	}

	var handle *client.Handle
	err := s.do(ctx, func(token string) error {
		h, err := s.client.Lookup(ctx, token, kind, identifier, scope)
		if err != nil {
			return err
		}
		handle = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache[key] = handle
	return handle, nil
}

// Invalidate drops the cache entry for (kind, identifier), so the next
// resolve re-fetches. Called after any command known to mutate or delete
// the resource.
func (s *Session) Invalidate(kind client.Kind, identifier string) {
	delete(s.cache, cacheKey{kind: kind, identifier: identifier})
}

// InvalidateKind drops every cached entry of one kind. Used after create,
// which changes what listings of that kind contain.
func (s *Session) InvalidateKind(kind client.Kind) {
	for key := range s.cache {
		if key.kind == kind {
			delete(s.cache, key)
		}
	}
}

// Invoke performs one operation with the expired-token retry applied.
func (s *Session) Invoke(ctx context.Context, req client.Request) (*client.Outcome, error) {
	var outcome *client.Outcome
	err := s.do(ctx, func(token string) error {
		o, err := s.client.Invoke(ctx, token, req)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// PollStatus reads one job observation with the expired-token retry applied.
func (s *Session) PollStatus(ctx context.Context, jobURI string) (client.JobStatus, error) {
	var status client.JobStatus
	err := s.do(ctx, func(token string) error {
		st, err := s.client.PollStatus(ctx, token, jobURI)
		if err != nil {
			return err
		}
		status = st
		return nil
	})
	return status, err
}

// Scope returns the selected default target, or nil when none is selected.
func (s *Session) Scope() *client.Handle { return s.scope }

// SetScope selects the default target for commands that omit an explicit
// one. The selection lives for the shell lifetime only.
func (s *Session) SetScope(h *client.Handle) { s.scope = h }

// ClearScope drops the selection.
func (s *Session) ClearScope() { s.scope = nil }

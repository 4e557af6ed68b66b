package client

import (
	"fmt"
	"strings"
)

// AuthenticationError indicates the console rejected the credentials, or a
// token expired and re-logon failed.
type AuthenticationError struct {
	Host   string
	Reason error
}

func (e *AuthenticationError) Error() string {
	if e.Reason != nil {
		return fmt.Sprintf("authentication with %s failed: %v", e.Host, e.Reason)
	}
	return fmt.Sprintf("authentication with %s failed", e.Host)
}

func (e *AuthenticationError) Unwrap() error { return e.Reason }

// Is allows errors.Is() to match any AuthenticationError.
func (e *AuthenticationError) Is(target error) bool {
	_, ok := target.(*AuthenticationError)
	return ok
}

// SessionExpiredError indicates the console rejected a previously valid
// session token. The session layer reacts with exactly one silent re-logon
// before surfacing an AuthenticationError.
type SessionExpiredError struct {
	Host string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session with %s has expired", e.Host)
}

func (e *SessionExpiredError) Is(target error) bool {
	_, ok := target.(*SessionExpiredError)
	return ok
}

// ConnectivityError indicates the endpoint was unreachable, the connection
// timed out, or the response was malformed.
type ConnectivityError struct {
	Host   string
	Reason error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("cannot reach %s: %v", e.Host, e.Reason)
}

func (e *ConnectivityError) Unwrap() error { return e.Reason }

func (e *ConnectivityError) Is(target error) bool {
	_, ok := target.(*ConnectivityError)
	return ok
}

// NotFoundError indicates a lookup matched no resource.
type NotFoundError struct {
	Kind       Kind
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Identifier)
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// AmbiguousNameError indicates a lookup by name matched more than one
// resource. Candidates lists the conflicting matches so the user can
// disambiguate, typically by URI.
type AmbiguousNameError struct {
	Kind       Kind
	Identifier string
	Candidates []string
}

func (e *AmbiguousNameError) Error() string {
	return fmt.Sprintf("%s name %q is ambiguous, candidates: %s",
		e.Kind, e.Identifier, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousNameError) Is(target error) bool {
	_, ok := target.(*AmbiguousNameError)
	return ok
}

// OperationError indicates the console accepted and processed a request
// but the operation itself failed. Code and Message carry the remote
// fault verbatim.
type OperationError struct {
	// Code is the remote fault code in "<http-status>.<reason>" form for
	// synchronous failures, or "<status-code>.<reason-code>" for jobs.
	Code    string
	Message string
}

func (e *OperationError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (fault %s)", e.Message, e.Code)
	}
	return e.Message
}

func (e *OperationError) Is(target error) bool {
	_, ok := target.(*OperationError)
	return ok
}

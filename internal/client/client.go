// Package client defines the capability for talking to a hardware
// management console (HMC) and provides a REST implementation of it.
//
// The rest of the program consumes the Client interface only. This keeps
// the dispatch and session layers independent of the wire protocol and
// makes them testable against counting stubs.
package client

import (
	"context"
)

// Kind identifies a class of managed resource on the console,
// e.g. "cpc" or "partition".
type Kind string

const (
	// KindCPC is a managed system (central processor complex).
	KindCPC Kind = "cpc"
	// KindPartition is a compute partition on a CPC in DPM mode.
	KindPartition Kind = "partition"
)

// Plural returns the collection name the console uses for a kind.
func (k Kind) Plural() string {
	switch k {
	case KindCPC:
		return "cpcs"
	case KindPartition:
		return "partitions"
	default:
		return string(k) + "s"
	}
}

// Credentials identify the console endpoint and the user logging on.
type Credentials struct {
	// Host is the console endpoint, either a bare hostname or a full URL.
	Host string
	// Userid and Password are the logon credentials.
	Userid   string
	Password string
	// VerifyCert controls TLS certificate verification.
	VerifyCert bool
	// CACertPath optionally points at a PEM bundle to trust instead of
	// the system roots.
	CACertPath string
}

// Handle is an opaque reference to a remote resource plus the property
// snapshot taken when it was last fetched.
type Handle struct {
	Kind Kind
	Name string
	// URI is the canonical object URI assigned by the console.
	URI string
	// Properties is the last-fetched property snapshot. It may be stale;
	// the session cache decides when to refresh it.
	Properties map[string]interface{}
}

// Request describes one operation against the console.
type Request struct {
	// Target is the resource the operation acts on. Nil for console-level
	// operations such as listing a top-level collection.
	Target *Handle
	// Scope optionally narrows collection operations to a parent resource
	// (for example, listing partitions of one CPC).
	Scope *Handle
	// Kind is the resource kind for collection operations.
	Kind Kind
	// Operation names the action: "list", "get", "update", "delete", or a
	// console operation such as "start" that is POSTed to the target.
	Operation string
	// Params carries operation parameters or, for update/create, the
	// properties to set.
	Params map[string]interface{}
}

// Outcome is the result of an accepted request. Exactly one of Records or
// JobURI is meaningful: a synchronous operation yields records (possibly
// none), an asynchronous one yields the job to poll.
type Outcome struct {
	Records []map[string]interface{}
	JobURI  string
}

// Async reports whether the request was accepted but is still pending.
func (o *Outcome) Async() bool {
	return o != nil && o.JobURI != ""
}

// JobState is the terminal-or-not state of an asynchronous job.
type JobState string

const (
	JobPending   JobState = "pending"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
)

// JobStatus is one observation of an asynchronous job.
type JobStatus struct {
	State JobState
	// Result holds the job results when State is JobCompleted.
	Result map[string]interface{}
	// Code and Message describe the failure when State is JobFailed.
	Code    string
	Message string
}

// Client is the remote management capability. All methods may return
// *ConnectivityError at any point; the session layer additionally relies
// on *SessionExpiredError from Lookup, Invoke and PollStatus to drive its
// single re-logon.
type Client interface {
	// Authenticate logs on and returns a session token.
	Authenticate(ctx context.Context, creds Credentials) (string, error)

	// Lookup finds a resource by name or URI. Returns *NotFoundError when
	// the console reports no match and *AmbiguousNameError when several
	// resources share the identifier.
	Lookup(ctx context.Context, token string, kind Kind, identifier string, scope *Handle) (*Handle, error)

	// Invoke performs one operation. The returned outcome is either
	// synchronous records or an async job URI.
	Invoke(ctx context.Context, token string, req Request) (*Outcome, error)

	// PollStatus fetches the current status of an asynchronous job.
	PollStatus(ctx context.Context, token string, jobURI string) (JobStatus, error)

	// Logoff invalidates the session token on the console.
	Logoff(ctx context.Context, token string) error
}

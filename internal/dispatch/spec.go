// Package dispatch turns token sequences into executed commands: it holds
// the command registry tree, binds typed options, and runs handlers
// against the session, converting every failure into a result envelope.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/zhmcclient/zhmccli/internal/client"
	"github.com/zhmcclient/zhmccli/internal/output"
	"github.com/zhmcclient/zhmccli/internal/session"

	"github.com/spf13/pflag"
)

// OptionType is the value type of a declared option.
type OptionType int

const (
	// OptionString is a single string value; last occurrence wins.
	OptionString OptionType = iota
	// OptionInt is a single integer value; last occurrence wins.
	OptionInt
	// OptionBool is a flag.
	OptionBool
	// OptionStringSlice collects repeated occurrences in order.
	OptionStringSlice
)

// OptionSpec declares one option of a command.
type OptionSpec struct {
	Name      string
	Shorthand string
	Usage     string
	Type      OptionType
	Required  bool
	// Default is the value when the option is absent. Must match Type:
	// string, int, bool or []string.
	Default interface{}
}

// CommandSpec declares a leaf command: its options, positional arity and
// handler. Specs are registered once at startup and never change.
type CommandSpec struct {
	Name    string
	Aliases []string
	Help    string
	Options []OptionSpec
	// Exclusive lists groups of mutually exclusive option names.
	Exclusive [][]string
	// ArgNames document the positional arguments for usage text.
	ArgNames []string
	// MinArgs/MaxArgs bound the positional arity. MaxArgs -1 means
	// unlimited.
	MinArgs int
	MaxArgs int
	// NoAuth marks commands that run without a console session (help,
	// select with no arguments, session info).
	NoAuth  bool
	Handler HandlerFunc
}

// Usage renders a one-line usage string from the declaration.
func (s *CommandSpec) Usage(path string) string {
	parts := []string{path}
	if len(s.Options) > 0 {
		parts = append(parts, "[options]")
	}
	for i, name := range s.ArgNames {
		if i < s.MinArgs {
			parts = append(parts, "<"+name+">")
		} else {
			parts = append(parts, "["+name+"]")
		}
	}
	return strings.Join(parts, " ")
}

// HandlerFunc is the fixed handler signature: every concrete command is a
// variant over it. A handler may return a synchronous result, or an
// AsyncJob for the dispatcher to poll.
type HandlerFunc func(ctx context.Context, sess *session.Session, inv *Invocation) (*Result, error)

// Result is what a handler produces: either a finished envelope or an
// asynchronous job the dispatcher still has to drive to a terminal state.
type Result struct {
	Envelope *output.Envelope
	Job      *AsyncJob
}

// Done wraps a finished envelope.
func Done(env *output.Envelope) *Result {
	return &Result{Envelope: env}
}

// AsyncJob describes an operation the console accepted but has not
// completed. The dispatcher polls it and reports the terminal state.
type AsyncJob struct {
	// URI is the job to poll.
	URI string
	// Label is shown by the progress indicator while polling.
	Label string
	// Success is the confirmation message on completion.
	Success string
}

// invalidation is one cache entry a command invalidates on success.
type invalidation struct {
	kind       client.Kind
	identifier string
	wholeKind  bool
}

// Invocation is one parsed request: the resolved command, bound option
// values and positional arguments. Created per dispatch, discarded after.
type Invocation struct {
	node  *Node
	flags *pflag.FlagSet
	// Args are the positional arguments after flag parsing.
	Args []string

	pending []invalidation
}

// String returns the value of a string option.
func (inv *Invocation) String(name string) string {
	v, _ := inv.flags.GetString(name)
	return v
}

// Int returns the value of an int option.
func (inv *Invocation) Int(name string) int {
	v, _ := inv.flags.GetInt(name)
	return v
}

// Bool returns the value of a flag.
func (inv *Invocation) Bool(name string) bool {
	v, _ := inv.flags.GetBool(name)
	return v
}

// Strings returns the collected values of a repeatable option.
func (inv *Invocation) Strings(name string) []string {
	v, _ := inv.flags.GetStringArray(name)
	return v
}

// Changed reports whether the option was supplied explicitly.
func (inv *Invocation) Changed(name string) bool {
	return inv.flags.Changed(name)
}

// Path returns the full command path, e.g. "partition start".
func (inv *Invocation) Path() string {
	return inv.node.Path()
}

// InvalidateOnSuccess records that this command mutates (kind, identifier).
// The dispatcher drops the cache entry after the command succeeds, and
// leaves it untouched on failure or timeout.
func (inv *Invocation) InvalidateOnSuccess(kind client.Kind, identifier string) {
	inv.pending = append(inv.pending, invalidation{kind: kind, identifier: identifier})
}

// InvalidateKindOnSuccess records that this command changes what listings
// of a kind contain (create does).
func (inv *Invocation) InvalidateKindOnSuccess(kind client.Kind) {
	inv.pending = append(inv.pending, invalidation{kind: kind, wholeKind: true})
}

// Usagef builds an InvalidArgument error carrying the command usage line.
func (inv *Invocation) Usagef(format string, args ...interface{}) error {
	return &InvalidArgumentError{
		Message: fmt.Sprintf(format, args...) + "\nusage: " + inv.node.Spec.Usage(inv.node.Path()),
	}
}

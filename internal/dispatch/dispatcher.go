package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zhmcclient/zhmccli/internal/client"
	"github.com/zhmcclient/zhmccli/internal/output"
	"github.com/zhmcclient/zhmccli/internal/progress"
	"github.com/zhmcclient/zhmccli/internal/session"
)

// Options configure dispatcher behavior for one process or shell.
type Options struct {
	// Quiet suppresses the progress indicator.
	Quiet bool
	// Mode is the selected output mode; non-human modes also suppress
	// the indicator to keep output machine-parseable.
	Mode output.Mode
	// PollInterval bounds how often a pending job is re-queried.
	PollInterval time.Duration
	// OperationTimeout bounds how long a pending job is waited for
	// before it is reported as timed out.
	OperationTimeout time.Duration
}

// DefaultPollInterval is used when Options leave PollInterval zero.
const DefaultPollInterval = 2 * time.Second

// DefaultOperationTimeout is used when Options leave OperationTimeout zero.
const DefaultOperationTimeout = 15 * time.Minute

// Dispatcher executes token sequences against one session. It never lets
// a failure propagate past Execute: every error path becomes a failure
// envelope tagged with an ErrorKind.
type Dispatcher struct {
	registry *Registry
	sess     *session.Session
	opts     Options
}

// New creates a dispatcher over a registry and session.
func New(registry *Registry, sess *session.Session, opts Options) *Dispatcher {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = DefaultOperationTimeout
	}
	return &Dispatcher{registry: registry, sess: sess, opts: opts}
}

// Registry returns the command tree, for completion and help.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Session returns the session the dispatcher executes against.
func (d *Dispatcher) Session() *session.Session { return d.sess }

// Execute resolves, parses and runs one invocation.
func (d *Dispatcher) Execute(ctx context.Context, tokens []string) *output.Envelope {
	node, rest, err := d.registry.Resolve(tokens)
	if err != nil {
		return failureEnvelope(err)
	}

	if node.Spec == nil {
		return groupUsage(node)
	}

	inv, err := bind(node, rest)
	if err != nil {
		if errors.Is(err, errHelpRequested) {
			return helpEnvelope(node)
		}
		return failureEnvelope(err)
	}

	if !node.Spec.NoAuth {
		// Fail fast on bad credentials before the handler does any work.
		if err := d.sess.Logon(ctx); err != nil {
			return failureEnvelope(err)
		}
	}

	ind := d.indicator()
	ind.Start(fmt.Sprintf("Executing %s...", node.Path()))

	result, err := node.Spec.Handler(ctx, d.sess, inv)
	if err != nil {
		ind.Stop()
		return failureEnvelope(err)
	}

	env := result.Envelope
	if result.Job != nil {
		env, err = d.awaitJob(ctx, ind, result.Job)
		if err != nil {
			ind.Stop()
			return failureEnvelope(err)
		}
	}
	// The indicator is stopped, and its line cleared, before any result
	// text can be written.
	ind.Stop()

	if env == nil {
		env = output.Confirmation("OK")
	}
	if env.OK() {
		d.applyInvalidations(inv)
	}
	return env
}

// indicator builds the progress indicator for this execution context.
func (d *Dispatcher) indicator() *progress.Indicator {
	return progress.New(!d.opts.Quiet && d.opts.Mode.Human())
}

// awaitJob polls an accepted job until a terminal state or the operation
// timeout. Timing out does not invalidate anything: the job's remote state
// is unknown and must be explicitly re-queried.
func (d *Dispatcher) awaitJob(ctx context.Context, ind *progress.Indicator, job *AsyncJob) (*output.Envelope, error) {
	ind.Update(fmt.Sprintf("Waiting for %s...", job.Label))

	deadline := time.Now().Add(d.opts.OperationTimeout)
	ticker := time.NewTicker(d.opts.PollInterval)
	defer ticker.Stop()

	for {
		status, err := d.sess.PollStatus(ctx, job.URI)
		if err != nil {
			return nil, err
		}

		switch status.State {
		case client.JobCompleted:
			return output.Confirmation(job.Success), nil
		case client.JobFailed:
			return nil, &client.OperationError{Code: status.Code, Message: status.Message}
		}

		if time.Now().After(deadline) {
			return &output.Envelope{Failure: &output.Failure{
				Kind: output.ErrTimeout,
				Message: fmt.Sprintf("%s did not complete within %s; its state is unknown, query the resource to find out",
					job.Label, d.opts.OperationTimeout),
			}}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// applyInvalidations drops the cache entries a successful mutating command
// declared.
func (d *Dispatcher) applyInvalidations(inv *Invocation) {
	for _, iv := range inv.pending {
		if iv.wholeKind {
			d.sess.InvalidateKind(iv.kind)
		} else {
			d.sess.Invalidate(iv.kind, iv.identifier)
		}
	}
}

// failureEnvelope converts any error into a failure envelope with the
// matching ErrorKind. Unrecognized errors are treated as connectivity
// failures when they come from the context machinery, generic remote
// failures otherwise.
func failureEnvelope(err error) *output.Envelope {
	f := &output.Failure{Message: err.Error()}

	var unknownCmd *UnknownCommandError
	var ambiguousCmd *AmbiguousCommandError
	var invalidArg *InvalidArgumentError
	var auth *client.AuthenticationError
	var expired *client.SessionExpiredError
	var conn *client.ConnectivityError
	var notFound *client.NotFoundError
	var ambiguous *client.AmbiguousNameError
	var op *client.OperationError

	switch {
	case errors.As(err, &unknownCmd):
		f.Kind = output.ErrUnknownCommand
	case errors.As(err, &ambiguousCmd):
		f.Kind = output.ErrUnknownCommand
		f.Candidates = ambiguousCmd.Candidates
	case errors.As(err, &invalidArg):
		f.Kind = output.ErrInvalidArgument
	case errors.As(err, &auth), errors.As(err, &expired):
		f.Kind = output.ErrAuthentication
	case errors.As(err, &conn):
		f.Kind = output.ErrConnectivity
	case errors.As(err, &notFound):
		f.Kind = output.ErrNotFound
	case errors.As(err, &ambiguous):
		f.Kind = output.ErrAmbiguousName
		f.Candidates = ambiguous.Candidates
	case errors.As(err, &op):
		f.Kind = output.ErrRemoteOperation
		f.FaultCode = op.Code
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		f.Kind = output.ErrConnectivity
	default:
		f.Kind = output.ErrRemoteOperation
	}

	return &output.Envelope{Failure: f}
}

// groupUsage renders the subcommand listing when a bare group is invoked.
func groupUsage(node *Node) *output.Envelope {
	var b strings.Builder
	if node.Help != "" {
		b.WriteString(node.Help)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "usage: %s <command>\n\ncommands:\n", node.Path())
	for _, child := range node.Children() {
		fmt.Fprintf(&b, "  %-12s %s\n", child.Name, child.Help)
	}
	return &output.Envelope{Failure: &output.Failure{
		Kind:    output.ErrInvalidArgument,
		Message: strings.TrimRight(b.String(), "\n"),
	}}
}

// helpEnvelope renders a command's own help on --help.
func helpEnvelope(node *Node) *output.Envelope {
	var b strings.Builder
	b.WriteString(node.Spec.Usage(node.Path()))
	if node.Spec.Help != "" {
		b.WriteString("\n  ")
		b.WriteString(node.Spec.Help)
	}
	for _, opt := range node.Spec.Options {
		fmt.Fprintf(&b, "\n  --%-18s %s", opt.Name, opt.Usage)
	}
	return output.Confirmation(b.String())
}

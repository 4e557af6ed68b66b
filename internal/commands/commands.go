// Package commands declares the command set of the CLI and registers it
// into the dispatch tree at startup.
package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/zhmcclient/zhmccli/internal/client"
	"github.com/zhmcclient/zhmccli/internal/dispatch"
	"github.com/zhmcclient/zhmccli/internal/session"

	"golang.org/x/term"
)

// Register builds the complete command tree. Called once at startup; the
// registry is read-only afterwards.
func Register(r *dispatch.Registry) {
	registerCPC(r)
	registerSelect(r)
	registerPartition(r)
	registerSession(r)
}

// scopedCPC resolves the CPC a command targets: the --cpc option when
// given, the session's selected scope otherwise.
func scopedCPC(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*client.Handle, error) {
	if name := inv.String("cpc"); name != "" {
		return sess.Resolve(ctx, client.KindCPC, name)
	}
	if scope := sess.Scope(); scope != nil {
		return scope, nil
	}
	return nil, inv.Usagef("no CPC given: pass --cpc or select one with 'select cpc <name>'")
}

// parseProperties turns repeated "key=value" options into a property map.
// Values that parse as integers or booleans are coerced, everything else
// stays a string.
func parseProperties(pairs []string) (map[string]interface{}, error) {
	props := make(map[string]interface{}, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if ok {
			key = strings.TrimSpace(key)
		}
		if !ok || key == "" {
			return nil, &dispatch.InvalidArgumentError{
				Message: fmt.Sprintf("invalid property %q, expected key=value", pair),
			}
		}
		props[key] = coerce(value)
	}
	return props, nil
}

func coerce(value string) interface{} {
	if n, err := strconv.Atoi(value); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}

// confirm asks the user before a destructive operation. With --yes the
// prompt is skipped; without a terminal on stdin it fails closed.
func confirm(inv *dispatch.Invocation, question string) error {
	if inv.Bool("yes") {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return &dispatch.InvalidArgumentError{
			Message: "refusing destructive operation without confirmation; pass --yes",
		}
	}

	fmt.Fprintf(os.Stderr, "%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return &dispatch.InvalidArgumentError{Message: "confirmation aborted"}
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	if answer != "y" && answer != "yes" {
		return &dispatch.InvalidArgumentError{Message: "aborted"}
	}
	return nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/zhmcclient/zhmccli/internal/client"
	"github.com/zhmcclient/zhmccli/internal/dispatch"
	"github.com/zhmcclient/zhmccli/internal/output"
	"github.com/zhmcclient/zhmccli/internal/session"
)

func registerSelect(r *dispatch.Registry) {
	r.Register([]string{"select", "cpc"}, &dispatch.CommandSpec{
		Name:     "cpc",
		Help:     "Select a CPC as the scope for subsequent commands.",
		ArgNames: []string{"cpc"},
		MinArgs:  0,
		MaxArgs:  1,
		// Resolving a name logs on lazily; showing the current
		// selection must not force a logon.
		NoAuth:  true,
		Handler: selectCPC,
	})

	r.Register([]string{"unselect"}, &dispatch.CommandSpec{
		Name:    "unselect",
		Help:    "Clear the selected CPC scope.",
		NoAuth:  true,
		MaxArgs: 0,
		Handler: unselect,
	})
}

func selectCPC(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	// Without an argument, report the current selection.
	if len(inv.Args) == 0 {
		if scope := sess.Scope(); scope != nil {
			return dispatch.Done(output.Confirmation(fmt.Sprintf("Selected CPC: %s", scope.Name))), nil
		}
		return dispatch.Done(output.Confirmation("No CPC selected.")), nil
	}

	handle, err := sess.Resolve(ctx, client.KindCPC, inv.Args[0])
	if err != nil {
		return nil, err
	}
	sess.SetScope(handle)
	return dispatch.Done(output.Confirmation(fmt.Sprintf("Selected CPC %s.", handle.Name))), nil
}

func unselect(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	if sess.Scope() == nil {
		return dispatch.Done(output.Confirmation("No CPC selected.")), nil
	}
	name := sess.Scope().Name
	sess.ClearScope()
	return dispatch.Done(output.Confirmation(fmt.Sprintf("Unselected CPC %s.", name))), nil
}

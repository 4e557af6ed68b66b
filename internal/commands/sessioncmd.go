package commands

import (
	"context"

	"github.com/zhmcclient/zhmccli/internal/dispatch"
	"github.com/zhmcclient/zhmccli/internal/output"
	"github.com/zhmcclient/zhmccli/internal/session"
)

func registerSession(r *dispatch.Registry) {
	r.Group([]string{"session"}, "Manage the console session.")

	r.Register([]string{"session", "info"}, &dispatch.CommandSpec{
		Name:    "info",
		Help:    "Show the state of the console session.",
		NoAuth:  true,
		MaxArgs: 0,
		Handler: sessionInfo,
	})

	r.Register([]string{"session", "logoff"}, &dispatch.CommandSpec{
		Name:    "logoff",
		Help:    "Log off from the console and discard the cached session.",
		NoAuth:  true,
		MaxArgs: 0,
		Handler: sessionLogoff,
	})
}

func sessionInfo(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	rec := output.NewRecord()
	rec.Set("host", sess.Host())
	rec.Set("userid", sess.Userid())
	rec.Set("authenticated", sess.Authenticated())
	if scope := sess.Scope(); scope != nil {
		rec.Set("selected-cpc", scope.Name)
	} else {
		rec.Set("selected-cpc", nil)
	}
	return dispatch.Done(output.Success("sessions", rec)), nil
}

func sessionLogoff(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	if !sess.Authenticated() {
		return dispatch.Done(output.Confirmation("Not logged on.")), nil
	}
	if err := sess.Logoff(ctx); err != nil {
		return nil, err
	}
	return dispatch.Done(output.Confirmation("Logged off.")), nil
}

package commands

import (
	"context"

	"github.com/zhmcclient/zhmccli/internal/client"
	"github.com/zhmcclient/zhmccli/internal/dispatch"
	"github.com/zhmcclient/zhmccli/internal/output"
	"github.com/zhmcclient/zhmccli/internal/session"
)

// cpcListFields is the column order for the CPC overview. Properties the
// console does not report render as the placeholder.
var cpcListFields = []string{
	"name", "status", "dpm-enabled", "machine-type", "machine-model", "se-version",
}

func registerCPC(r *dispatch.Registry) {
	r.Group([]string{"cpc"}, "Manage CPCs (central processor complexes).")

	r.Register([]string{"cpc", "list"}, &dispatch.CommandSpec{
		Name:    "list",
		Aliases: []string{"ls"},
		Help:    "List the CPCs managed by the console.",
		Options: []dispatch.OptionSpec{
			{Name: "names-only", Usage: "Show only the CPC names", Type: dispatch.OptionBool},
		},
		Handler: cpcList,
	})

	r.Register([]string{"cpc", "show"}, &dispatch.CommandSpec{
		Name:     "show",
		Help:     "Show a CPC with all of its properties.",
		ArgNames: []string{"cpc"},
		MinArgs:  1,
		MaxArgs:  1,
		Handler:  cpcShow,
	})
}

func cpcList(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	outcome, err := sess.Invoke(ctx, client.Request{
		Kind:      client.KindCPC,
		Operation: "list",
	})
	if err != nil {
		return nil, err
	}

	records := make([]*output.Record, 0, len(outcome.Records))
	for _, props := range outcome.Records {
		if inv.Bool("names-only") {
			rec := output.NewRecord()
			rec.Set("name", props["name"])
			records = append(records, rec)
			continue
		}
		records = append(records, output.RecordFromMap(props, cpcListFields...))
	}
	return dispatch.Done(output.Success("cpcs", records...)), nil
}

func cpcShow(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	handle, err := sess.Resolve(ctx, client.KindCPC, inv.Args[0])
	if err != nil {
		return nil, err
	}
	outcome, err := sess.Invoke(ctx, client.Request{
		Target:    handle,
		Operation: "get",
	})
	if err != nil {
		return nil, err
	}

	rec := output.RecordFromMap(outcome.Records[0], "name", "status")
	return dispatch.Done(output.Success("cpcs", rec)), nil
}

package commands

import (
	"context"
	"fmt"

	"github.com/zhmcclient/zhmccli/internal/client"
	"github.com/zhmcclient/zhmccli/internal/dispatch"
	"github.com/zhmcclient/zhmccli/internal/output"
	"github.com/zhmcclient/zhmccli/internal/session"
)

// Defaults applied when creating a partition, matching what the console
// assumes for a minimal Linux partition.
const (
	defaultPartitionType   = "linux"
	defaultIFLProcessors   = 1
	defaultInitialMemoryMB = 1024
	defaultMaximumMemoryMB = 1024
	defaultProcessorMode   = "shared"
)

var (
	partitionTypes     = []string{"linux", "ssc", "zvm"}
	processorModes     = []string{"shared", "dedicated"}
	partitionListCols  = []string{"name", "status", "type"}
	partitionShowFirst = []string{"name", "status", "type", "description"}
)

// cpcOption is the scope override shared by every partition command.
var cpcOption = dispatch.OptionSpec{
	Name:  "cpc",
	Usage: "CPC containing the partition (defaults to the selected CPC)",
	Type:  dispatch.OptionString,
}

func registerPartition(r *dispatch.Registry) {
	r.Group([]string{"partition"}, "Manage partitions of a CPC in DPM mode.")

	r.Register([]string{"partition", "list"}, &dispatch.CommandSpec{
		Name:    "list",
		Aliases: []string{"ls"},
		Help:    "List the partitions of a CPC.",
		Options: []dispatch.OptionSpec{
			cpcOption,
			{Name: "type", Usage: "Include the partition type column", Type: dispatch.OptionBool},
			{Name: "status", Usage: "Show only partitions with this status", Type: dispatch.OptionString},
			{Name: "names-only", Usage: "Show only the partition names", Type: dispatch.OptionBool},
			{Name: "uri", Usage: "Show the object URIs", Type: dispatch.OptionBool},
		},
		Exclusive: [][]string{{"names-only", "uri"}},
		Handler:   partitionList,
	})

	r.Register([]string{"partition", "show"}, &dispatch.CommandSpec{
		Name:     "show",
		Help:     "Show a partition with all of its properties.",
		Options:  []dispatch.OptionSpec{cpcOption},
		ArgNames: []string{"partition"},
		MinArgs:  1,
		MaxArgs:  1,
		Handler:  partitionShow,
	})

	r.Register([]string{"partition", "create"}, &dispatch.CommandSpec{
		Name: "create",
		Help: "Create a partition in a CPC.",
		Options: []dispatch.OptionSpec{
			cpcOption,
			{Name: "name", Usage: "Name of the new partition", Type: dispatch.OptionString, Required: true},
			{Name: "description", Usage: "Description of the new partition", Type: dispatch.OptionString},
			{Name: "type", Usage: "Partition type (linux, ssc, zvm)", Type: dispatch.OptionString, Default: defaultPartitionType},
			{Name: "cp-processors", Usage: "Number of general purpose processors", Type: dispatch.OptionInt},
			{Name: "ifl-processors", Usage: "Number of IFL processors", Type: dispatch.OptionInt, Default: defaultIFLProcessors},
			{Name: "processor-mode", Usage: "Sharing mode of the processors (shared, dedicated)", Type: dispatch.OptionString, Default: defaultProcessorMode},
			{Name: "initial-memory", Usage: "Initial amount of memory (MiB)", Type: dispatch.OptionInt, Default: defaultInitialMemoryMB},
			{Name: "maximum-memory", Usage: "Maximum amount of memory (MiB)", Type: dispatch.OptionInt, Default: defaultMaximumMemoryMB},
			{Name: "boot-timeout", Usage: "Boot timeout in seconds", Type: dispatch.OptionInt},
			{Name: "ssc-host-name", Usage: "Host name of the SSC appliance (ssc type only)", Type: dispatch.OptionString},
			{Name: "prop", Shorthand: "p", Usage: "Additional property as key=value (repeatable)", Type: dispatch.OptionStringSlice},
		},
		Exclusive: [][]string{{"cp-processors", "ifl-processors"}},
		Handler:   partitionCreate,
	})

	r.Register([]string{"partition", "update"}, &dispatch.CommandSpec{
		Name: "update",
		Help: "Update properties of a partition. Only properties with a corresponding option are changed.",
		Options: []dispatch.OptionSpec{
			cpcOption,
			{Name: "name", Usage: "New name for the partition", Type: dispatch.OptionString},
			{Name: "description", Usage: "New description for the partition", Type: dispatch.OptionString},
			{Name: "initial-memory", Usage: "Initial amount of memory (MiB)", Type: dispatch.OptionInt},
			{Name: "maximum-memory", Usage: "Maximum amount of memory (MiB)", Type: dispatch.OptionInt},
			{Name: "prop", Shorthand: "p", Usage: "Property to set as key=value (repeatable)", Type: dispatch.OptionStringSlice},
		},
		ArgNames: []string{"partition"},
		MinArgs:  1,
		MaxArgs:  1,
		Handler:  partitionUpdate,
	})

	r.Register([]string{"partition", "delete"}, &dispatch.CommandSpec{
		Name: "delete",
		Help: "Delete a partition.",
		Options: []dispatch.OptionSpec{
			cpcOption,
			{Name: "yes", Shorthand: "y", Usage: "Skip the confirmation prompt", Type: dispatch.OptionBool},
		},
		ArgNames: []string{"partition"},
		MinArgs:  1,
		MaxArgs:  1,
		Handler:  partitionDelete,
	})

	r.Register([]string{"partition", "start"}, &dispatch.CommandSpec{
		Name:     "start",
		Help:     "Start a partition and wait for completion.",
		Options:  []dispatch.OptionSpec{cpcOption},
		ArgNames: []string{"partition"},
		MinArgs:  1,
		MaxArgs:  1,
		Handler:  partitionOperation("start", "Starting", "started"),
	})

	r.Register([]string{"partition", "stop"}, &dispatch.CommandSpec{
		Name:     "stop",
		Help:     "Stop a partition and wait for completion.",
		Options:  []dispatch.OptionSpec{cpcOption},
		ArgNames: []string{"partition"},
		MinArgs:  1,
		MaxArgs:  1,
		Handler:  partitionOperation("stop", "Stopping", "stopped"),
	})

	r.Register([]string{"partition", "dump"}, &dispatch.CommandSpec{
		Name: "dump",
		Help: "Capture a memory dump of a partition.",
		Options: []dispatch.OptionSpec{
			cpcOption,
			{Name: "prop", Shorthand: "p", Usage: "Dump operation parameter as key=value (repeatable)", Type: dispatch.OptionStringSlice},
		},
		ArgNames: []string{"partition"},
		MinArgs:  1,
		MaxArgs:  1,
		Handler:  partitionDump,
	})
}

// resolvePartition finds the partition named by the first positional
// argument, within the --cpc option or the selected scope.
func resolvePartition(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*client.Handle, error) {
	if name := inv.String("cpc"); name != "" {
		cpc, err := sess.Resolve(ctx, client.KindCPC, name)
		if err != nil {
			return nil, err
		}
		return sess.ResolveIn(ctx, client.KindPartition, inv.Args[0], cpc)
	}
	return sess.Resolve(ctx, client.KindPartition, inv.Args[0])
}

func validateChoice(option, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &dispatch.InvalidArgumentError{
		Message: fmt.Sprintf("invalid value %q for --%s (allowed: %s)", value, option, joinChoices(allowed)),
	}
}

func joinChoices(allowed []string) string {
	s := ""
	for i, a := range allowed {
		if i > 0 {
			s += ", "
		}
		s += a
	}
	return s
}

func partitionList(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	cpc, err := scopedCPC(ctx, sess, inv)
	if err != nil {
		return nil, err
	}

	outcome, err := sess.Invoke(ctx, client.Request{
		Kind:      client.KindPartition,
		Scope:     cpc,
		Operation: "list",
	})
	if err != nil {
		return nil, err
	}

	records := make([]*output.Record, 0, len(outcome.Records))
	for _, props := range outcome.Records {
		if status := inv.String("status"); status != "" && props["status"] != status {
			continue
		}
		switch {
		case inv.Bool("names-only"):
			rec := output.NewRecord()
			rec.Set("name", props["name"])
			records = append(records, rec)
		case inv.Bool("uri"):
			rec := output.NewRecord()
			rec.Set("name", props["name"])
			rec.Set("object-uri", props["object-uri"])
			records = append(records, rec)
		case inv.Bool("type"):
			records = append(records, output.RecordFromMap(props, partitionListCols...))
		default:
			rec := output.NewRecord()
			rec.Set("name", props["name"])
			rec.Set("status", props["status"])
			records = append(records, rec)
		}
	}
	return dispatch.Done(output.Success("partitions", records...)), nil
}

func partitionShow(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	handle, err := resolvePartition(ctx, sess, inv)
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

	rec := output.RecordFromMap(outcome.Records[0], partitionShowFirst...)
	return dispatch.Done(output.Success("partitions", rec)), nil
}

func partitionCreate(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	cpc, err := scopedCPC(ctx, sess, inv)
	if err != nil {
		return nil, err
	}
	if err := validateChoice("type", inv.String("type"), partitionTypes); err != nil {
		return nil, err
	}
	if err := validateChoice("processor-mode", inv.String("processor-mode"), processorModes); err != nil {
		return nil, err
	}
	if inv.String("ssc-host-name") != "" && inv.String("type") != "ssc" {
		return nil, inv.Usagef("--ssc-host-name requires --type ssc")
	}

	props, err := parseProperties(inv.Strings("prop"))
	if err != nil {
		return nil, err
	}
	props["name"] = inv.String("name")
	props["type"] = inv.String("type")
	props["initial-memory"] = inv.Int("initial-memory")
	props["maximum-memory"] = inv.Int("maximum-memory")
	props["processor-mode"] = inv.String("processor-mode")
	if inv.Changed("cp-processors") {
		// An explicit CP count replaces the IFL default instead of
		// adding to it.
		props["cp-processors"] = inv.Int("cp-processors")
	} else {
		props["ifl-processors"] = inv.Int("ifl-processors")
	}
	if inv.Changed("description") {
		props["description"] = inv.String("description")
	}
	if inv.Changed("boot-timeout") {
		props["boot-timeout"] = inv.Int("boot-timeout")
	}
	if inv.Changed("ssc-host-name") {
		props["ssc-host-name"] = inv.String("ssc-host-name")
	}

	_, err = sess.Invoke(ctx, client.Request{
		Kind:      client.KindPartition,
		Scope:     cpc,
		Operation: "create",
		Params:    props,
	})
	if err != nil {
		return nil, err
	}

	inv.InvalidateKindOnSuccess(client.KindPartition)
	return dispatch.Done(output.Confirmation(
		fmt.Sprintf("Partition %s has been created.", inv.String("name")))), nil
}

func partitionUpdate(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	handle, err := resolvePartition(ctx, sess, inv)
	if err != nil {
		return nil, err
	}

	props, err := parseProperties(inv.Strings("prop"))
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"name", "description"} {
		if inv.Changed(name) {
			props[name] = inv.String(name)
		}
	}
	for _, name := range []string{"initial-memory", "maximum-memory"} {
		if inv.Changed(name) {
			props[name] = inv.Int(name)
		}
	}
	if len(props) == 0 {
		return dispatch.Done(output.Confirmation(
			fmt.Sprintf("No properties specified for partition %s.", handle.Name))), nil
	}

	_, err = sess.Invoke(ctx, client.Request{
		Target:    handle,
		Operation: "update",
		Params:    props,
	})
	if err != nil {
		return nil, err
	}

	// A rename leaves a handle cached under the old name.
	inv.InvalidateOnSuccess(client.KindPartition, handle.Name)
	if newName, ok := props["name"].(string); ok && newName != handle.Name {
		return dispatch.Done(output.Confirmation(
			fmt.Sprintf("Partition %s has been renamed to %s and updated.", handle.Name, newName))), nil
	}
	return dispatch.Done(output.Confirmation(
		fmt.Sprintf("Partition %s has been updated.", handle.Name))), nil
}

func partitionDelete(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	handle, err := resolvePartition(ctx, sess, inv)
	if err != nil {
		return nil, err
	}
	if err := confirm(inv, fmt.Sprintf("Are you sure you want to delete partition %s?", handle.Name)); err != nil {
		return nil, err
	}

	_, err = sess.Invoke(ctx, client.Request{
		Target:    handle,
		Operation: "delete",
	})
	if err != nil {
		return nil, err
	}

	inv.InvalidateOnSuccess(client.KindPartition, handle.Name)
	return dispatch.Done(output.Confirmation(
		fmt.Sprintf("Partition %s has been deleted.", handle.Name))), nil
}

// partitionOperation builds a handler for the start/stop style operations
// that the console accepts asynchronously.
func partitionOperation(op, progressing, done string) dispatch.HandlerFunc {
	return func(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
		handle, err := resolvePartition(ctx, sess, inv)
		if err != nil {
			return nil, err
		}

		outcome, err := sess.Invoke(ctx, client.Request{
			Target:    handle,
			Operation: op,
		})
		if err != nil {
			return nil, err
		}

		inv.InvalidateOnSuccess(client.KindPartition, handle.Name)
		if outcome.Async() {
			return &dispatch.Result{Job: &dispatch.AsyncJob{
				URI:     outcome.JobURI,
				Label:   fmt.Sprintf("%s partition %s", progressing, handle.Name),
				Success: fmt.Sprintf("Partition %s has been %s.", handle.Name, done),
			}}, nil
		}
		return dispatch.Done(output.Confirmation(
			fmt.Sprintf("Partition %s has been %s.", handle.Name, done))), nil
	}
}

func partitionDump(ctx context.Context, sess *session.Session, inv *dispatch.Invocation) (*dispatch.Result, error) {
	handle, err := resolvePartition(ctx, sess, inv)
	if err != nil {
		return nil, err
	}
	params, err := parseProperties(inv.Strings("prop"))
	if err != nil {
		return nil, err
	}

	outcome, err := sess.Invoke(ctx, client.Request{
		Target:    handle,
		Operation: "start-dump-program",
		Params:    params,
	})
	if err != nil {
		return nil, err
	}

	inv.InvalidateOnSuccess(client.KindPartition, handle.Name)
	if outcome.Async() {
		return &dispatch.Result{Job: &dispatch.AsyncJob{
			URI:     outcome.JobURI,
			Label:   fmt.Sprintf("Dumping partition %s", handle.Name),
			Success: fmt.Sprintf("Dump of partition %s has completed.", handle.Name),
		}}, nil
	}
	return dispatch.Done(output.Confirmation(
		fmt.Sprintf("Dump of partition %s has completed.", handle.Name))), nil
}

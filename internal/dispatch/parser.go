package dispatch

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"
)

// errHelpRequested signals that the user asked for the command's help
// text rather than an execution.
var errHelpRequested = errors.New("help requested")

// bind parses the remaining tokens against a command's declared options
// and positional arity. It performs no I/O of any sort; a failed bind
// means the remote side never hears about the invocation.
func bind(node *Node, tokens []string) (*Invocation, error) {
	spec := node.Spec
	fs := pflag.NewFlagSet(spec.Name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	for _, opt := range spec.Options {
		if err := declare(fs, opt); err != nil {
			return nil, err
		}
	}

	if err := fs.Parse(tokens); err != nil {
		// pflag turns an undeclared --help into ErrHelp; surface it as a
		// help request instead of a parse failure.
		if err == pflag.ErrHelp {
			return nil, errHelpRequested
		}
		return nil, &InvalidArgumentError{Message: err.Error()}
	}

	for _, opt := range spec.Options {
		if opt.Required && !fs.Changed(opt.Name) {
			return nil, &InvalidArgumentError{
				Message: fmt.Sprintf("required option --%s not set", opt.Name),
			}
		}
	}

	for _, group := range spec.Exclusive {
		var set []string
		for _, name := range group {
			if fs.Changed(name) {
				set = append(set, "--"+name)
			}
		}
		if len(set) > 1 {
			return nil, &InvalidArgumentError{
				Message: fmt.Sprintf("options %s are mutually exclusive", strings.Join(set, " and ")),
			}
		}
	}

	args := fs.Args()
	if len(args) < spec.MinArgs {
		return nil, &InvalidArgumentError{
			Message: fmt.Sprintf("%s requires at least %d argument(s), got %d",
				node.Path(), spec.MinArgs, len(args)),
		}
	}
	if spec.MaxArgs >= 0 && len(args) > spec.MaxArgs {
		return nil, &InvalidArgumentError{
			Message: fmt.Sprintf("%s accepts at most %d argument(s), got %d",
				node.Path(), spec.MaxArgs, len(args)),
		}
	}

	return &Invocation{node: node, flags: fs, Args: args}, nil
}

// declare registers one option on the flag set. Single-valued options get
// pflag's last-occurrence-wins behavior; repeatable ones use a string
// array so occurrences are collected in order.
func declare(fs *pflag.FlagSet, opt OptionSpec) error {
	switch opt.Type {
	case OptionString:
		def, _ := opt.Default.(string)
		fs.StringP(opt.Name, opt.Shorthand, def, opt.Usage)
	case OptionInt:
		def, _ := opt.Default.(int)
		fs.IntP(opt.Name, opt.Shorthand, def, opt.Usage)
	case OptionBool:
		def, _ := opt.Default.(bool)
		fs.BoolP(opt.Name, opt.Shorthand, def, opt.Usage)
	case OptionStringSlice:
		def, _ := opt.Default.([]string)
		fs.StringArrayP(opt.Name, opt.Shorthand, def, opt.Usage)
	default:
		return &InvalidArgumentError{Message: fmt.Sprintf("option --%s has unknown type", opt.Name)}
	}
	return nil
}

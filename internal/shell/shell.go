// Package shell implements the interactive read-eval loop. Each line is
// tokenized with shell quoting rules and handed to the dispatcher; the
// session persists across the whole shell lifetime.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhmcclient/zhmccli/internal/dispatch"
	"github.com/zhmcclient/zhmccli/internal/output"

	"github.com/chzyer/readline"
)

// historyFileName is where readline persists command history between
// sessions.
const historyFileName = ".zhmc_history"

// Shell is the interactive loop. A command failure renders an error and
// continues; only an explicit exit or end-of-input ends the loop.
type Shell struct {
	dispatcher *dispatch.Dispatcher
	renderOpts output.Options

	out io.Writer
	err io.Writer
	rl  *readline.Instance
}

// New creates a shell over a dispatcher. renderOpts carry the default
// output format selected at startup; the format builtin can change it for
// the rest of the session.
func New(d *dispatch.Dispatcher, renderOpts output.Options) *Shell {
	return &Shell{
		dispatcher: d,
		renderOpts: renderOpts,
		out:        os.Stdout,
		err:        os.Stderr,
	}
}

// prompt reflects the selected scope so the user always knows the default
// target of scoped commands.
func (s *Shell) prompt() string {
	if scope := s.dispatcher.Session().Scope(); scope != nil {
		return fmt.Sprintf("zhmc %s> ", scope.Name)
	}
	return "zhmc> "
}

// Run enters the read loop and blocks until exit, EOF, or an unrecoverable
// read error.
func (s *Shell) Run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            s.prompt(),
		HistoryFile:       filepath.Join(os.TempDir(), historyFileName),
		AutoComplete:      s.completer(),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize line reader: %w", err)
	}
	defer rl.Close()
	s.rl = rl

	fmt.Fprintf(s.out, "Connected context: %s (user %s). Type 'help' for commands, 'exit' to leave.\n\n",
		s.dispatcher.Session().Host(), s.dispatcher.Session().Userid())

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			// Ctrl-C on a non-empty line clears it; on an empty line it
			// is just re-prompted. Neither ends the session.
			continue
		} else if err == io.EOF {
			fmt.Fprintln(s.out, "Goodbye.")
			return nil
		} else if err != nil {
			return fmt.Errorf("read error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		if quit := s.eval(ctx, input); quit {
			fmt.Fprintln(s.out, "Goodbye.")
			return nil
		}

		rl.SetPrompt(s.prompt())
	}
}

// eval processes one line. Returns true when the session should end.
func (s *Shell) eval(ctx context.Context, input string) bool {
	tokens, err := Tokenize(input)
	if err != nil {
		output.RenderFailure(s.err, &output.Failure{
			Kind:    output.ErrInvalidArgument,
			Message: err.Error(),
		})
		return false
	}
	if len(tokens) == 0 {
		return false
	}

	switch tokens[0] {
	case "exit", "quit":
		return true
	case "help", "?":
		s.printHelp()
		return false
	case "format":
		s.setFormat(tokens[1:])
		return false
	}

	env := s.dispatcher.Execute(ctx, tokens)
	if !env.OK() {
		output.RenderFailure(s.err, env.Failure)
		return false
	}
	if err := output.Render(s.out, env, s.renderOpts); err != nil {
		output.RenderFailure(s.err, &output.Failure{
			Kind:    output.ErrInvalidArgument,
			Message: err.Error(),
		})
	}
	return false
}

// setFormat switches the session's output format.
func (s *Shell) setFormat(args []string) {
	if len(args) != 1 {
		fmt.Fprintf(s.out, "current format: %s (usage: format table|list|json|yaml|oneline)\n", s.renderOpts.Mode)
		return
	}
	mode, err := output.ParseMode(args[0])
	if err != nil {
		output.RenderFailure(s.err, &output.Failure{Kind: output.ErrInvalidArgument, Message: err.Error()})
		return
	}
	s.renderOpts.Mode = mode
}

// printHelp lists the command tree plus the shell builtins.
func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, "Commands:")
	for _, group := range s.dispatcher.Registry().Root().Children() {
		if group.Spec != nil {
			fmt.Fprintf(s.out, "  %-24s %s\n", group.Name, group.Help)
			continue
		}
		for _, cmd := range group.Children() {
			fmt.Fprintf(s.out, "  %-24s %s\n", group.Name+" "+cmd.Name, cmd.Help)
		}
	}
	fmt.Fprintln(s.out, "\nShell builtins:")
	fmt.Fprintf(s.out, "  %-24s %s\n", "format [mode]", "show or switch the output format")
	fmt.Fprintf(s.out, "  %-24s %s\n", "help", "show this overview")
	fmt.Fprintf(s.out, "  %-24s %s\n", "exit", "leave the shell")
}

// completer builds tab completion over the registry tree, the declared
// options of each command, and the builtins.
func (s *Shell) completer() readline.AutoCompleter {
	var items []readline.PrefixCompleterInterface
	for _, group := range s.dispatcher.Registry().Root().Children() {
		items = append(items, completeNode(group))
	}
	items = append(items,
		readline.PcItem("format",
			readline.PcItem("table"), readline.PcItem("list"),
			readline.PcItem("json"), readline.PcItem("yaml"), readline.PcItem("oneline")),
		readline.PcItem("help"),
		readline.PcItem("exit"),
		readline.PcItem("quit"),
	)
	return readline.NewPrefixCompleter(items...)
}

func completeNode(n *dispatch.Node) readline.PrefixCompleterInterface {
	var children []readline.PrefixCompleterInterface
	for _, child := range n.Children() {
		children = append(children, completeNode(child))
	}
	if n.Spec != nil {
		for _, opt := range n.Spec.Options {
			children = append(children, readline.PcItem("--"+opt.Name))
		}
	}
	return readline.PcItem(n.Name, children...)
}

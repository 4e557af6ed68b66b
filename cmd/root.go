package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/zhmcclient/zhmccli/internal/client"
	"github.com/zhmcclient/zhmccli/internal/commands"
	"github.com/zhmcclient/zhmccli/internal/config"
	"github.com/zhmcclient/zhmccli/internal/dispatch"
	"github.com/zhmcclient/zhmccli/internal/output"
	"github.com/zhmcclient/zhmccli/internal/session"
	"github.com/zhmcclient/zhmccli/internal/shell"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Exit codes. These are part of the scripting contract and must not
// change between releases.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (invalid arguments, a
	// rejected operation, a missing resource).
	ExitCodeError = 1
	// ExitCodeAuth indicates the console could not be reached or the
	// logon was rejected.
	ExitCodeAuth = 2
	// ExitCodeTimeout indicates an asynchronous operation did not reach
	// a terminal state in time; its outcome is unknown.
	ExitCodeTimeout = 3
)

// rootFlags hold the global option values bound in init.
var rootFlags struct {
	host      string
	userid    string
	console   string
	noVerify  bool
	caCerts   string
	format    string
	timeout   time.Duration
	quiet     bool
	fields    []string
	sortBy    string
	desc      bool
	noHeaders bool
	debug     bool
}

// rootCmd is the entry point. Console commands are not cobra subcommands:
// everything after the global flags is handed to the dispatcher as-is, so
// the same command set works on the command line and in the shell.
var rootCmd = &cobra.Command{
	Use:   "zhmc [command [args...]]",
	Short: "Command line interface for the Hardware Management Console",
	Long: `zhmc manages IBM Z systems through the Web Services API of their
Hardware Management Console. Without arguments it starts an interactive
shell; with arguments it executes a single command and exits.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// SetVersion injects the build version from the main package.
func SetVersion(v string) {
	rootCmd.Version = v
}

// exitError carries a semantic exit code out of RunE.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

// Execute runs the root command and exits the process with the semantic
// exit code of whatever failed.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "zhmc version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitCodeError)
	}
}

// exitCodeFor maps a failure classification to the process exit code.
func exitCodeFor(kind output.ErrorKind) int {
	switch kind {
	case output.ErrAuthentication, output.ErrConnectivity:
		return ExitCodeAuth
	case output.ErrTimeout:
		return ExitCodeTimeout
	default:
		return ExitCodeError
	}
}

func run(cmd *cobra.Command, args []string) error {
	settings, err := resolveSettings(cmd)
	if err != nil {
		return err
	}

	mode := output.ModeTable
	if settings.Format != "" {
		mode, err = output.ParseMode(settings.Format)
		if err != nil {
			return err
		}
	}

	creds := client.Credentials{
		Host:       settings.Host,
		Userid:     settings.Userid,
		Password:   settings.Password,
		VerifyCert: settings.VerifyCert,
		CACertPath: settings.CACerts,
	}
	if creds.Password == "" && creds.Host != "" && term.IsTerminal(int(os.Stdin.Fd())) {
		creds.Password, err = promptPassword(creds.Userid, creds.Host)
		if err != nil {
			return err
		}
	}

	rest := client.NewRESTClient(creds, client.RESTOptions{
		Timeout: settings.Timeout,
		Debug:   rootFlags.debug,
	})
	sess := session.New(rest, creds)

	registry := dispatch.NewRegistry()
	commands.Register(registry)
	dispatcher := dispatch.New(registry, sess, dispatch.Options{
		Quiet: rootFlags.quiet,
		Mode:  mode,
	})

	renderOpts := output.Options{
		Mode:       mode,
		Fields:     rootFlags.fields,
		SortBy:     rootFlags.sortBy,
		Descending: rootFlags.desc,
		NoHeaders:  rootFlags.noHeaders,
	}

	if len(args) == 0 {
		return shell.New(dispatcher, renderOpts).Run(cmd.Context())
	}

	env := dispatcher.Execute(cmd.Context(), args)
	if !env.OK() {
		output.RenderFailure(os.Stderr, env.Failure)
		return &exitError{code: exitCodeFor(env.Failure.Kind), msg: env.Failure.Message}
	}
	return output.Render(os.Stdout, env, renderOpts)
}

// resolveSettings merges environment, config file and command line flags.
// Flags win over the environment, the environment wins over the file.
func resolveSettings(cmd *cobra.Command) (config.Settings, error) {
	file, err := config.LoadFile(config.DefaultPath())
	if err != nil {
		return config.Settings{}, err
	}
	settings, err := config.Resolve(config.FromEnvironment(), file, rootFlags.console)
	if err != nil {
		return config.Settings{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		settings.Host = rootFlags.host
	}
	if flags.Changed("userid") {
		settings.Userid = rootFlags.userid
	}
	if flags.Changed("no-verify-cert") {
		settings.VerifyCert = !rootFlags.noVerify
	}
	if flags.Changed("ca-certs") {
		settings.CACerts = rootFlags.caCerts
	}
	if flags.Changed("format") {
		settings.Format = rootFlags.format
	}
	if flags.Changed("timeout") {
		settings.Timeout = rootFlags.timeout
	}
	if settings.Timeout == 0 {
		settings.Timeout = config.DefaultTimeout
	}
	return settings, nil
}

// promptPassword reads the logon password from the terminal. Only called
// when stdin is a terminal; scripts must supply ZHMC_PASSWORD.
func promptPassword(userid, host string) (string, error) {
	fmt.Fprintf(os.Stderr, "Enter password (for user %s at %s): ", userid, host)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("could not read password: %w", err)
	}
	return string(pw), nil
}

func init() {
	flags := rootCmd.Flags()
	// Stop flag parsing at the first non-flag token so that command
	// options ("partition list --type") reach the dispatcher untouched.
	flags.SetInterspersed(false)

	flags.StringVar(&rootFlags.host, "host", "", "hostname or IP address of the console (default $ZHMC_HOST)")
	flags.StringVarP(&rootFlags.userid, "userid", "u", "", "userid on the console (default $ZHMC_USERID)")
	flags.StringVarP(&rootFlags.console, "console", "c", "", "named console entry from the config file")
	flags.BoolVarP(&rootFlags.noVerify, "no-verify-cert", "n", false, "do not verify the console TLS certificate")
	flags.StringVar(&rootFlags.caCerts, "ca-certs", "", "path to a CA certificate bundle (PEM)")
	flags.StringVarP(&rootFlags.format, "format", "o", "", "output format: table, list, json, yaml, oneline (default $ZHMC_FORMAT or table)")
	flags.DurationVar(&rootFlags.timeout, "timeout", 0, "per-request timeout (default $ZHMC_TIMEOUT or 30s)")
	flags.BoolVarP(&rootFlags.quiet, "quiet", "q", false, "suppress the progress indicator")
	flags.StringSliceVar(&rootFlags.fields, "fields", nil, "comma-separated fields to show, in order")
	flags.StringVar(&rootFlags.sortBy, "sort-by", "", "field to sort records by")
	flags.BoolVar(&rootFlags.desc, "desc", false, "sort in descending order")
	flags.BoolVar(&rootFlags.noHeaders, "no-headers", false, "omit the header row in table output")
	flags.BoolVar(&rootFlags.debug, "debug", false, "trace console requests and responses to stderr")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}

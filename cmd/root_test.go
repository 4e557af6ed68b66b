package cmd

import (
	"testing"

	"github.com/zhmcclient/zhmccli/internal/output"

	"github.com/stretchr/testify/assert"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		kind output.ErrorKind
		want int
	}{
		{output.ErrInvalidArgument, ExitCodeError},
		{output.ErrUnknownCommand, ExitCodeError},
		{output.ErrNotFound, ExitCodeError},
		{output.ErrAmbiguousName, ExitCodeError},
		{output.ErrRemoteOperation, ExitCodeError},
		{output.ErrAuthentication, ExitCodeAuth},
		{output.ErrConnectivity, ExitCodeAuth},
		{output.ErrTimeout, ExitCodeTimeout},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCodeFor(tt.kind), string(tt.kind))
	}
}

func TestGlobalFlagsStopAtFirstCommandToken(t *testing.T) {
	// Command options must pass through to the dispatcher instead of
	// being eaten by the root flag set.
	flags := rootCmd.Flags()
	assert.NoError(t, flags.Parse([]string{"--host", "hmc1", "partition", "list", "--names-only"}))
	assert.Equal(t, []string{"partition", "list", "--names-only"}, flags.Args())
}

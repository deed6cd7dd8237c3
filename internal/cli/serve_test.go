package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := &bytes.Buffer{}
	cmd := newRootCommand(newTestOptions())
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--listen", "127.0.0.1:0"})

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Contains(t, out.String(), "Serving on http://127.0.0.1:0")
}

func TestServeCommand_BadListenAddress(t *testing.T) {
	out, _, err := runCLI(t, nil, "--format", "json", "serve", "--listen", "not-an-address")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeGeneric)
}

func TestServeHelpText(t *testing.T) {
	out, _, err := runCLI(t, nil, "serve", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "--listen")
	assert.Contains(t, out, "--allowed-origins")
}

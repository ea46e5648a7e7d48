package runtime

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommand(t *testing.T, prelude string) (Runtime, *strings.Builder) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var out strings.Builder
	rt, err := New("command", Config{
		Command: []string{"sh", "{file}"},
		FileExt: ".sh",
		Prelude: prelude,
		Stdout:  &out,
		Spawn:   PipeSpawn,
	})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Quit() })
	return rt, &out
}

func TestCommandEcho(t *testing.T) {
	rt, out := newTestCommand(t, "")
	require.NoError(t, rt.Eval(context.Background(), "echo hello"))
	assert.Equal(t, "hello\n", out.String())
}

func TestCommandPrelude(t *testing.T) {
	rt, out := newTestCommand(t, "GREETING=hey")
	require.NoError(t, rt.Eval(context.Background(), `echo "$GREETING"`))
	assert.Equal(t, "hey\n", out.String())
}

func TestCommandFailureReported(t *testing.T) {
	rt, out := newTestCommand(t, "")
	err := rt.Eval(context.Background(), "exit 3")
	require.Error(t, err)
	assert.Contains(t, out.String(), "exit status 3")
}

func TestCommandEmptyConfig(t *testing.T) {
	_, err := New("command", Config{})
	assert.Error(t, err)
}

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, []string{"dao", "-e", "/tmp/p.dao"}, commandArgs([]string{"dao", "-e", "{file}"}, "/tmp/p.dao"))
	assert.Equal(t, []string{"dao", "/tmp/p.dao"}, commandArgs([]string{"dao"}, "/tmp/p.dao"))
}

func TestCommandQuitIdempotent(t *testing.T) {
	rt, _ := newTestCommand(t, "")
	require.NoError(t, rt.Quit())
	require.NoError(t, rt.Quit())
	assert.ErrorIs(t, rt.Eval(context.Background(), "echo x"), ErrQuit)
}

func TestCommandTimeoutBoundsEval(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	var out strings.Builder
	rt, err := New("command", Config{
		Command: []string{"sh", "{file}"},
		FileExt: ".sh",
		Stdout:  &out,
		Timeout: 200 * time.Millisecond,
		Spawn:   PipeSpawn,
	})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Quit() })

	start := time.Now()
	err = rt.Eval(context.Background(), "sleep 3")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Contains(t, out.String(), "execution interrupted")
}

func TestCommandPTYLineEndings(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	var out strings.Builder
	rt, err := New("command", Config{
		Command: []string{"sh", "{file}"},
		FileExt: ".sh",
		Stdout:  &out,
	})
	require.NoError(t, err)
	t.Cleanup(func() { rt.Quit() })

	if err := rt.Eval(context.Background(), "echo hi"); err != nil {
		if strings.Contains(out.String(), "start sh") {
			t.Skipf("no pty available: %v", err)
		}
		t.Fatalf("Eval: %v", err)
	}
	assert.Equal(t, "hi\n", out.String())
}

func TestCRLFWriter(t *testing.T) {
	var out strings.Builder
	w := &crlfWriter{w: &out}
	for _, chunk := range []string{"a\r\nb\r", "\nc\rd", "\r"} {
		n, err := w.Write([]byte(chunk))
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}
	w.Flush()
	assert.Equal(t, "a\nb\nc\rd\r", out.String())
}

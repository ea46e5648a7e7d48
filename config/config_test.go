package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DEMO_ADDR", "DEMO_RUNTIME", "DEMO_SNIPPET_DIR", "DEMO_SNIPPET_URL", "DEMO_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	s, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", s.Addr)
	assert.Equal(t, "js", s.RuntimeKind)
	assert.Equal(t, 10*time.Second, s.EvalTimeout)
	assert.Equal(t, 30*time.Minute, s.MaxIdle)
	assert.Equal(t, ".js", s.SnippetExt)
	assert.Equal(t, `io.writeln("Hello World!")`, s.Builtins["HelloWorld"])
	assert.Equal(t, "HelloWorld", s.Initial)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "console.toml")
	err := os.WriteFile(path, []byte(`
[server]
addr = ":9000"

[runtime]
kind = "command"
command = ["dao", "{file}"]
eval_timeout = "3s"

[snippets]
dir = "./demos"
ext = ".dao"
catalog = ["Closures", "Tasks"]
initial = "Closures"

[snippets.builtins]
HelloWorld = 'io.writeln( "hi" )'

[session]
max_idle = "5m"
scrollback = 4096

[log]
level = "debug"
dev = true
`), 0o644)
	require.NoError(t, err)

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", s.Addr)
	assert.Equal(t, "command", s.RuntimeKind)
	assert.Equal(t, []string{"dao", "{file}"}, s.Command)
	assert.Equal(t, 3*time.Second, s.EvalTimeout)
	assert.Equal(t, "./demos", s.SnippetDir)
	assert.Equal(t, ".dao", s.SnippetExt)
	assert.Equal(t, []string{"Closures", "Tasks"}, s.Catalog)
	assert.Equal(t, "Closures", s.Initial)
	assert.Equal(t, `io.writeln( "hi" )`, s.Builtins["HelloWorld"])
	assert.Equal(t, 5*time.Minute, s.MaxIdle)
	assert.Equal(t, time.Minute, s.ReapInterval)
	assert.Equal(t, 4096, s.Scrollback)
	assert.Equal(t, "debug", s.LogLevel)
	assert.True(t, s.LogDev)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7000")
	t.Setenv("DEMO_RUNTIME", "go")
	t.Setenv("DEMO_SNIPPET_URL", "http://example.test/demos")

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", s.Addr)
	assert.Equal(t, "go", s.RuntimeKind)
	assert.Equal(t, "http://example.test/demos", s.SnippetURL)
	assert.Equal(t, `fmt.Println("Hello World!")`, s.Builtins["HelloWorld"])
}

func TestBadDuration(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[runtime]\neval_timeout = \"soon\"\n"), 0o644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "eval_timeout")
}

func TestBadTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	out := execute(t, "version", "-w", t.TempDir())
	assert.Equal(t, "devconsole dev\n", out)
}

func TestEvalFile(t *testing.T) {
	ws := t.TempDir()
	file := filepath.Join(ws, "snippet.go")
	require.NoError(t, os.WriteFile(file, []byte(`console.Warn("sum", 1+1)`), 0644))

	out := execute(t, "eval", file, "-w", ws)
	assert.Contains(t, out, `› console.Warn("sum", 1+1)`)
	assert.Contains(t, out, "sum 2")
	assert.Contains(t, out, "undefined")
}

func TestInvalidConfigIsRejected(t *testing.T) {
	ws := t.TempDir()
	path := filepath.Join(ws, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("console:\n  post_buffer_size: -1\n"), 0644))

	rootCmd.SetArgs([]string{"version", "-w", ws, "-c", path})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	assert.ErrorContains(t, err, "console.post_buffer_size")
}

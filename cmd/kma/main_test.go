package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTrace(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "trace.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReplayCommand(t *testing.T) {
	path := writeTrace(t, "REQUEST 0 100\nREQUEST 1 40\nREQUEST 2 4000\nFREE 1\nFREE 0\nFREE 2\n")

	tests := []struct {
		name        string
		args        []string
		wantErr     bool
		wantContain []string
	}{
		{
			name:        "buddy",
			args:        []string{"replay", path, "--page-size", "4096"},
			wantContain: []string{"buddy allocator, heap pages: 3 requests, 3 frees", "utilization", "pages in use"},
		},
		{
			name:        "resource map",
			args:        []string{"replay", path, "--allocator", "rm"},
			wantContain: []string{"rm allocator, heap pages: 3 requests, 3 frees"},
		},
		{
			name:    "page limit",
			args:    []string{"replay", path, "--page-size", "4096", "--max-pages", "1"},
			wantErr: true,
		},
		{
			name:    "bad allocator",
			args:    []string{"replay", path, "--allocator", "slab"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetReplayFlags(t)

			output, err := runCommand(t, tt.args...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			for _, s := range tt.wantContain {
				assert.Contains(t, output, s)
			}
		})
	}
}

func resetReplayFlags(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"replay"})
	require.NoError(t, err)
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		require.NoError(t, f.Value.Set(f.DefValue))
		f.Changed = false
	})
}

func TestReplayCommand_Config(t *testing.T) {
	confPath := filepath.Join(t.TempDir(), "kma.toml")
	require.NoError(t, os.WriteFile(confPath, []byte("allocator = \"rm\"\npage_size = 4096\n"), 0o644))
	path := writeTrace(t, "REQUEST 7 300\n")

	resetReplayFlags(t)
	output, err := runCommand(t, "replay", path, "--config", confPath, "--drain")
	require.NoError(t, err)
	assert.Contains(t, output, "rm allocator, heap pages: 1 requests, 0 frees, 1 drained")
}

func TestGenCommand(t *testing.T) {
	out := filepath.Join(t.TempDir(), "gen.txt")
	_, err := runCommand(t, "gen", "--count", "20", "--seed", "3", "-o", out)
	require.NoError(t, err)
	genOutput = ""

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, 40, bytes.Count(data, []byte("\n")))

	resetReplayFlags(t)
	output, err := runCommand(t, "replay", out)
	require.NoError(t, err)
	assert.Contains(t, output, "20 requests, 20 frees")
}

func TestClassesCommand(t *testing.T) {
	output, err := runCommand(t, "classes")
	require.NoError(t, err)
	assert.Contains(t, output, "header 64 bytes (2 units)")
	assert.Contains(t, output, "4096")
	assert.Contains(t, output, "BLOCKS PER PAGE")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	require.NoError(t, Init(filepath.Join(t.TempDir(), "missing.yaml")))

	assert.Equal(t, []string{"."}, Config.Scan.Roots)
	assert.Equal(t, int64(1), Config.Scan.MinSize)
	assert.Equal(t, "first", Config.Scan.Keep)
	assert.Equal(t, DefaultFoldCase(), Config.Scan.FoldCase)
	assert.True(t, Config.Notifications.SkipEmptyRun)
}

func TestInit_FileAndEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
scan:
  roots: [ "/data", "/backup" ]
  min_size: 1024
  exclude_regex: [ "\\.tmp$" ]
  keep: oldest
notifications:
  service:
    discord: https://discord.example/webhook
metrics:
  textfile: /var/lib/node_exporter/dupefind.prom
`), 0o644))

	t.Setenv("DUPEFIND__SCAN__MIN_SIZE", "4096")

	require.NoError(t, Init(path))

	assert.Equal(t, []string{"/data", "/backup"}, Config.Scan.Roots)
	assert.Equal(t, int64(4096), Config.Scan.MinSize)
	assert.Equal(t, []string{`\.tmp$`}, Config.Scan.ExcludeRegex)
	assert.Equal(t, "oldest", Config.Scan.Keep)
	assert.Equal(t, "https://discord.example/webhook", Config.Notifications.Service.Discord)
	assert.Equal(t, "/var/lib/node_exporter/dupefind.prom", Config.Metrics.Textfile)
}

func TestInit_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "negative_min_size",
			content: "scan:\n  min_size: -1\n",
		},
		{
			name:    "unknown_keep_strategy",
			content: "scan:\n  keep: largest\n",
		},
		{
			name:    "malformed_yaml",
			content: "scan: [\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			assert.Error(t, Init(path))
		})
	}
}

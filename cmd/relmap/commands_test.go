package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const legacySnapshot = `{
  "characters": [
    {"id": "a", "name": "Alice", "x": 10, "y": 20},
    {"id": "b", "name": "Bob"}
  ],
  "relations": [
    {"from": "a", "to": "b", "label": "friend"}
  ]
}`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", writeFile(t, legacySnapshot))
	require.NoError(t, err)
	assert.Contains(t, out, "version 1, migrates to 3")
	assert.Contains(t, out, "2 characters, 1 relations, 1 sheets")

	_, err = run(t, "validate", writeFile(t, `{"version": 3, "relations": [{"id": "r", "from": "x", "to": "y", "status": "active"}]}`))
	assert.Error(t, err)

	_, err = run(t, "--lenient", "validate", writeFile(t, `{"version": 3, "relations": [{"id": "r", "from": "x", "to": "y", "status": "active"}]}`))
	assert.NoError(t, err)
}

func TestMigrate(t *testing.T) {
	in := writeFile(t, legacySnapshot)
	dst := filepath.Join(t.TempDir(), "out.json")

	_, err := run(t, "migrate", in, "-o", dst)
	require.NoError(t, err)

	buf, err := os.ReadFile(dst)
	require.NoError(t, err)
	var doc struct {
		App     string `json:"app"`
		Version int    `json:"version"`
		Sheets  []struct {
			Positions map[string]struct{ X, Y float64 } `json:"positions"`
		} `json:"sheets"`
	}
	require.NoError(t, json.Unmarshal(buf, &doc))
	assert.Equal(t, 3, doc.Version)
	assert.NotEmpty(t, doc.App)
	require.Len(t, doc.Sheets, 1)
	assert.Equal(t, 10.0, doc.Sheets[0].Positions["a"].X)

	// the migrated file validates without migration
	out, err := run(t, "validate", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "version 3\n")
}

func TestStats(t *testing.T) {
	out, err := run(t, "stats", writeFile(t, legacySnapshot))
	require.NoError(t, err)
	assert.Regexp(t, `characters:\s+2`, out)
	assert.Regexp(t, `relations:\s+1`, out)

	_, err = run(t, "stats", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

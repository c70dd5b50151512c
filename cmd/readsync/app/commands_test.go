package app

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c0deZ3R0/readsync/record"
)

const sourceJSON = `[
  {"id": "b1", "title": "Piranesi", "authors": ["Susanna Clarke"], "progress": 35, "lastUpdated": "2024-03-09T18:30:00Z", "platform": "kobo"},
  {"id": "b2", "title": "Klara and the Sun", "authors": ["Kazuo Ishiguro"], "progress": 80, "lastUpdated": "2024-03-10T08:00:00Z", "platform": "kobo"}
]`

const sourceYAML = `records:
  - id: b1
    title: Piranesi
    authors: [Susanna Clarke]
    progress: 60
    lastUpdated: 2024-03-11T07:00:00Z
    platform: kindle
  - id: b2
    title: Klara and the Sun
    authors: [Kazuo Ishiguro]
    progress: 80
    lastUpdated: 2024-03-10T08:00:00Z
    platform: kobo
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRecords(t *testing.T) {
	dir := t.TempDir()

	list, err := loadRecords(writeFile(t, dir, "export.json", sourceJSON))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"Susanna Clarke"}, list[0].Authors)
	assert.Equal(t, 80.0, list[1].Progress)

	list, err = loadRecords(writeFile(t, dir, "export.yaml", sourceYAML))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "kindle", list[0].Platform)
	assert.False(t, list[0].LastUpdated.IsZero())

	list, err = loadRecords(writeFile(t, dir, "empty.json", `{"records": []}`))
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	_, err = loadRecords(writeFile(t, dir, "export.csv", "id,title"))
	assert.ErrorContains(t, err, "unsupported records format")

	_, err = loadRecords(writeFile(t, dir, "broken.json", `{"records": [`))
	assert.Error(t, err)

	_, err = loadRecords(filepath.Join(dir, "absent.json"))
	assert.Error(t, err)
}

func TestSyncCheckPull(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "state.db")

	out, err := execute(t, "--db", db, "--log-level", "error", "sync",
		"--source", writeFile(t, dir, "kobo.json", sourceJSON), "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:          SUCCESS")
	assert.Contains(t, out, "added=2 modified=0")
	assert.Contains(t, out, "readsync_records_synchronized_total 2")

	// The second export moves b1 forward by 25 points, a MEDIUM conflict
	// resolved by keeping the higher progress.
	out, err = execute(t, "--db", db, "--log-level", "error", "sync",
		"--source", writeFile(t, dir, "kindle.yaml", sourceYAML), "--mode", "merge")
	require.NoError(t, err)
	assert.Contains(t, out, "Status:          SUCCESS")
	assert.Contains(t, out, "modified=1 deleted=0 unchanged=1")
	assert.Contains(t, out, "1 resolved")

	out, err = execute(t, "--db", db, "--log-level", "error", "check")
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.EqualValues(t, 2, stats["records"])
	assert.EqualValues(t, 1, stats["resolutions_resolved"])

	out, err = execute(t, "--db", db, "--log-level", "error", "pull", "--limit", "1")
	require.NoError(t, err)
	var page struct {
		Records []record.Record `json:"records"`
		Next    struct {
			ID string `json:"id"`
		} `json:"next"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	require.Len(t, page.Records, 1)
	assert.Equal(t, "b2", page.Records[0].ID, "b2 has the oldest update time after b1 moved forward")
	assert.Equal(t, "b2", page.Next.ID)
}

func TestSyncFailures(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "state.db")
	source := writeFile(t, dir, "kobo.json", sourceJSON)

	_, err := execute(t, "--db", db, "sync")
	assert.ErrorContains(t, err, `required flag(s) "source" not set`)

	out, err := execute(t, "--db", db, "--log-level", "error", "sync", "--source", source, "--mode", "mirror")
	require.Error(t, err)
	assert.Contains(t, out, "Status:          FAILED")
	assert.Contains(t, out, "Failed stage:    VALIDATION")

	_, err = execute(t, "--config", filepath.Join(dir, "missing.yaml"), "check")
	assert.Error(t, err)

	_, err = execute(t, "--db", db, "--log-level", "loud", "check")
	assert.ErrorContains(t, err, `invalid --log-level "loud"`)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "readsync dev\n", out)

	out, err = execute(t, "version", "--format", "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version": "dev"}`, out)
}

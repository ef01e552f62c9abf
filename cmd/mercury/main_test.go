package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/state"
	"github.com/Ning0612/mercury/internal/testutil"
)

type env struct {
	config string
	root   string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "data")
	require.NoError(t, os.MkdirAll(root, 0755))

	config := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf(`
logging:
  level: error
state:
  data_dir: %q
storages:
  - name: scratch
    type: local
    root: %q
`, filepath.Join(dir, "state"), root)
	require.NoError(t, os.WriteFile(config, []byte(content), 0644))
	return env{config: config, root: root}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_UnknownOutputFormat(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "ls", "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestCLI_MissingConfig(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd(&out, &out)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "ls"})
	err := cmd.Execute()
	assert.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestCLI_FileOperations(t *testing.T) {
	e := newEnv(t)
	testutil.CreateTestFile(t, e.root, "inbox/notes.txt", []byte("hello"))

	_, err := e.run(t, "mkdir", "/samples")
	require.NoError(t, err)
	_, err = e.run(t, "cp", "/inbox/notes.txt", "/samples")
	require.NoError(t, err)
	_, err = e.run(t, "rename", "/inbox/notes.txt", "readme.txt")
	require.NoError(t, err)

	out, err := e.run(t, "ls", "/inbox", "-o", "json")
	require.NoError(t, err)
	var entries []domain.FileEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "readme.txt", entries[0].Basename)
	assert.FileExists(t, filepath.Join(e.root, "samples", "notes.txt"))

	_, err = e.run(t, "rm", "/inbox/readme.txt")
	require.NoError(t, err)
	out, err = e.run(t, "ls", "/inbox", "--deleted")
	require.NoError(t, err)
	assert.Contains(t, out, "file (deleted)")

	_, err = e.run(t, "rename", "/inbox/readme.txt", "other.txt")
	assert.ErrorIs(t, err, domain.ErrOperationDisabled, "deleted entries cannot be renamed")

	_, err = e.run(t, "undelete", "/inbox/readme.txt")
	require.NoError(t, err)
	out, err = e.run(t, "stat", "/inbox/readme.txt", "-o", "yaml")
	require.NoError(t, err)
	var entry domain.FileEntry
	require.NoError(t, yaml.Unmarshal([]byte(out), &entry))
	assert.Equal(t, "/inbox/readme.txt", entry.Filename)
	assert.False(t, entry.IsDeleted())

	_, err = e.run(t, "undelete", "/inbox/readme.txt")
	assert.ErrorIs(t, err, domain.ErrOperationDisabled, "only deleted entries can be restored")
}

func TestCLI_Move(t *testing.T) {
	e := newEnv(t)
	testutil.CreateTestFile(t, e.root, "inbox/a.txt", []byte("a"))
	require.NoError(t, os.Mkdir(filepath.Join(e.root, "target"), 0755))

	_, err := e.run(t, "mv", "/inbox/a.txt", "/target")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(e.root, "target", "a.txt"))
	assert.NoFileExists(t, filepath.Join(e.root, "inbox", "a.txt"))
}

func TestCLI_PasteRules(t *testing.T) {
	e := newEnv(t)
	testutil.CreateTestFile(t, e.root, "inbox/a.txt", []byte("a"))
	testutil.CreateTestFile(t, e.root, "top.txt", []byte("t"))
	require.NoError(t, os.Mkdir(filepath.Join(e.root, "target"), 0755))

	_, err := e.run(t, "cp", "/inbox/a.txt", "/")
	assert.ErrorIs(t, err, domain.ErrOperationDisabled, "nothing is pasted at the root")
	_, err = e.run(t, "cp", "/top.txt", "/target")
	assert.ErrorIs(t, err, domain.ErrOperationDisabled, "entries at the root are not copied")
	_, err = e.run(t, "mv", "/inbox/a.txt", "/inbox")
	assert.ErrorIs(t, err, domain.ErrOperationDisabled, "items are already there")

	assert.NoFileExists(t, filepath.Join(e.root, "a.txt"))
	assert.NoFileExists(t, filepath.Join(e.root, "target", "top.txt"))
}

func TestCLI_Upload(t *testing.T) {
	e := newEnv(t)
	src := testutil.CreateTestFile(t, t.TempDir(), "upload.bin", []byte("payload"))

	_, err := e.run(t, "upload", "-q", src, "/")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(e.root, "upload.bin"))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
}

func TestCLI_HistoryAndRetry(t *testing.T) {
	e := newEnv(t)
	testutil.CreateTestFile(t, e.root, "a.txt", []byte("a"))
	testutil.CreateTestFile(t, e.root, "b.txt", []byte("b"))

	_, err := e.run(t, "rename", "/a.txt", "b.txt")
	require.ErrorIs(t, err, domain.ErrAlreadyExists)

	out, err := e.run(t, "history", "-o", "json")
	require.NoError(t, err)
	var records []state.OperationRecord
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, domain.OpRename, records[0].Operation)
	assert.True(t, records[0].Failed())

	require.NoError(t, os.Remove(filepath.Join(e.root, "b.txt")))
	_, err = e.run(t, "history", "--retry")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(e.root, "b.txt"))
}

func TestCLI_PlatformCommandsOffline(t *testing.T) {
	e := newEnv(t)
	for _, args := range [][]string{
		{"hierarchy"},
		{"users"},
		{"view", "list"},
	} {
		_, err := e.run(t, args...)
		assert.ErrorIs(t, err, domain.ErrConfigInvalid, "%v", args)
	}

	_, err := e.run(t, "template")
	assert.ErrorIs(t, err, domain.ErrVocabularyUnavailable)
}

func TestCLI_Unlock(t *testing.T) {
	e := newEnv(t)
	_, err := e.run(t, "unlock")
	assert.NoError(t, err)
}

func TestParseSelections(t *testing.T) {
	selected, err := parseSelections(
		[]string{"species=Homo sapiens,Mus musculus"},
		[]string{"age=10..", "date=..2024-01-01"},
		[]string{"title=canc"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"Homo sapiens", "Mus musculus"}, selected["species"].Values)
	assert.Equal(t, 10.0, selected["age"].Min)
	assert.Nil(t, selected["age"].Max)
	assert.Equal(t, "2024-01-01", selected["date"].Max)
	assert.Equal(t, "canc", selected["title"].Prefix)

	_, err = parseSelections([]string{"novalue"}, nil, nil)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	_, err = parseSelections(nil, []string{"age=10"}, nil)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestWriteHierarchy(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeHierarchy(&buf, testutil.Hierarchy()))
	assert.Contains(t, buf.String(), "LEVEL")

	buf.Reset()
	require.NoError(t, writeHierarchy(&buf, nil))
	assert.Equal(t, "No hierarchy levels defined\n", buf.String())
}

package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "memory://")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImportCmd(t *testing.T) {
	csvPath := writeFile(t, "regions.csv", "code,name\nCN-110000,Beijing\nCN-440300,Shenzhen\n")
	jsonPath := writeFile(t, "more.json", `[{"code":"CN-510100","name":"Chengdu"}]`)

	stdout, err := runCmd(t, "import", csvPath, jsonPath)
	require.NoError(t, err)

	var out importOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	require.Len(t, out.Files, 2)
	assert.Equal(t, csvPath, out.Files[0].File)
	require.NotNil(t, out.Files[0].Result)
	assert.Equal(t, 2, out.Files[0].Result.SuccessCount)
	require.NotNil(t, out.Files[1].Result)
	assert.Equal(t, 1, out.Files[1].Result.SuccessCount)
}

func TestImportCmd_ReportsFailures(t *testing.T) {
	good := writeFile(t, "regions.csv", "code,name\nA,Alpha\n")
	bad := writeFile(t, "notes.txt", "hello")

	stdout, err := runCmd(t, "import", good, bad, filepath.Join(t.TempDir(), "missing.csv"))
	require.EqualError(t, err, "2 of 3 files failed")

	var out importOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out))
	assert.Empty(t, out.Files[0].Error)
	assert.Equal(t, "FILE005", out.Files[1].Code)
	assert.NotEmpty(t, out.Files[2].Error)
}

func TestImportCmd_RequiresFile(t *testing.T) {
	_, err := runCmd(t, "import")
	assert.Error(t, err)
}

func TestHistoryCmd_InvalidPage(t *testing.T) {
	_, err := runCmd(t, "history", "--page", "0")
	assert.ErrorContains(t, err, "invalid page")
}

func TestMigrateCmd_RejectsMemoryStore(t *testing.T) {
	_, err := runCmd(t, "migrate")
	assert.ErrorContains(t, err, "in-memory store")
}

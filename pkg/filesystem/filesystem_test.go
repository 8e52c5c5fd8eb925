package filesystem_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawasy/aderlee/pkg/filesystem"
)

func TestWriteReadFile(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	require.NoError(t, fs.WriteFile("test.txt", "Hello, World!"))

	content, err := fs.ReadFile("test.txt")
	require.NoError(t, err)
	assert.Equal(t, "Hello, World!", content)
}

func TestWriteFileCreatesParentDirectories(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	require.NoError(t, fs.WriteFile("nested/deeper/test.txt", "content"))
	assert.True(t, fs.Exists("nested/deeper/test.txt"))
}

func TestWriteFileReplacesExistingContent(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	require.NoError(t, fs.WriteFile("test.txt", "first"))
	require.NoError(t, fs.WriteFile("test.txt", "second"))

	content, err := fs.ReadFile("test.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", content)
}

func TestReadFileMissing(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	_, err := fs.ReadFile("absent.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestJSONRoundTrip(t *testing.T) {
	type record struct {
		Name string `json:"name"`
		Age  int    `json:"age"`
	}

	fs := filesystem.New(t.TempDir())
	in := record{Name: "John", Age: 30}

	require.NoError(t, fs.WriteJSON("test.json", in))

	var got record
	require.NoError(t, fs.ReadJSON("test.json", &got))
	assert.Equal(t, in, got)
}

func TestCSVRoundTrip(t *testing.T) {
	fs := filesystem.New(t.TempDir())
	rows := []map[string]string{
		{"name": "John", "age": "30"},
		{"name": "Jane", "age": "25"},
	}

	require.NoError(t, fs.WriteCSV("test.csv", rows))

	got, err := fs.ReadCSV("test.csv")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestListMatchesPattern(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	require.NoError(t, fs.WriteFile("one.txt", "content"))
	require.NoError(t, fs.WriteFile("two.txt", "content"))
	require.NoError(t, fs.WriteFile("other.json", "{}"))

	matches, err := fs.List("*.txt")
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

func TestExists(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	assert.False(t, fs.Exists("test.txt"))
	require.NoError(t, fs.WriteFile("test.txt", "content"))
	assert.True(t, fs.Exists("test.txt"))
}

func TestExecReturnsTrimmedOutput(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	out, err := fs.Exec(context.Background(), "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestExecRunsInBaseDirectory(t *testing.T) {
	fs := filesystem.New(t.TempDir())
	require.NoError(t, fs.WriteFile("test.txt", "from base"))

	out, err := fs.Exec(context.Background(), "cat test.txt")
	require.NoError(t, err)
	assert.Equal(t, "from base", out)
}

func TestExecReportsFailure(t *testing.T) {
	fs := filesystem.New(t.TempDir())

	_, err := fs.Exec(context.Background(), "exit 3")
	require.Error(t, err)
}

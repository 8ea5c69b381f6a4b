package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportPreservesFieldOrderAndValues(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(RoleUser, "hi"))
	require.NoError(t, s.Append(RoleAssistant, "hello"))

	data, err := s.Export()
	require.NoError(t, err)

	expected := "[\n  {\n    \"role\": \"user\",\n    \"content\": \"hi\"\n  },\n  {\n    \"role\": \"assistant\",\n    \"content\": \"hello\"\n  }\n]"
	assert.Equal(t, expected, string(data))

	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "assistant", decoded[1]["role"])
}

func TestExportEmptyHistory(t *testing.T) {
	s := New()
	data, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	s.Clear()
	data, err = s.Export()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestExportDoesNotEscapeMarkup(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(RoleUser, "<b>a & b</b>"))
	data, err := s.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), "<b>a & b</b>")
}

func TestClearResetsAnyLength(t *testing.T) {
	s := New()
	for i := 0; i < 7; i++ {
		require.NoError(t, s.Append(RoleUser, "q"))
	}
	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Messages())
}

func TestAppendRejectsUnknownRole(t *testing.T) {
	s := New()
	err := s.Append(Role("system"), "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRole))
	assert.Equal(t, 0, s.Len())
}

func TestMessagesReturnsCopy(t *testing.T) {
	s := New()
	require.NoError(t, s.Append(RoleUser, "one"))
	msgs := s.Messages()
	msgs[0].Content = "changed"
	assert.Equal(t, "one", s.Messages()[0].Content)
}

func TestClosedSessionRejectsAppend(t *testing.T) {
	s := New()
	s.Close()
	assert.True(t, s.Closed())
	assert.ErrorIs(t, s.Append(RoleUser, "late"), ErrClosed)
}

func TestWriteExportCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	s := New()
	require.NoError(t, s.Append(RoleUser, "hi"))

	path, err := s.WriteExport(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ExportFileName), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	expected, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t, expected, data)
}

func TestNewAssignsID(t *testing.T) {
	a, b := New(), New()
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.StartedAt.IsZero())
}

package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractText_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("senior school pathways"), 0644))

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Equal(t, "senior school pathways", text)
}

func TestExtractText_Markdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "guide.md")
	require.NoError(t, os.WriteFile(path, []byte("# Placement\ncontent"), 0644))

	text, err := ExtractText(path)
	require.NoError(t, err)
	assert.Contains(t, text, "Placement")
}

func TestExtractText_UnsupportedType(t *testing.T) {
	_, err := ExtractText("school_data.csv")
	require.Error(t, err)
}

func TestIsSupportedSource(t *testing.T) {
	assert.True(t, isSupportedSource("a.txt"))
	assert.True(t, isSupportedSource("b.MD"))
	assert.True(t, isSupportedSource("c.pdf"))
	assert.False(t, isSupportedSource("d.docx"))
	assert.False(t, isSupportedSource("noext"))
}

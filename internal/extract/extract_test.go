package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExtractPlainText(t *testing.T) {
	e := NewExtractor(1)
	path := writeFile(t, "note.txt", "call me at 9876543210")

	got, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "call me at 9876543210", got)
}

func TestExtractHTMLStripsMarkup(t *testing.T) {
	e := NewExtractor(1)
	got, err := e.ExtractBytes(context.Background(), "page.html",
		[]byte(`<html><body><p>email: jane@company.com</p><script>alert(1)</script></body></html>`))
	require.NoError(t, err)
	assert.Contains(t, got, "jane@company.com")
	assert.NotContains(t, got, "<p>")
	assert.NotContains(t, got, "alert")
}

func TestExtractCSVJoinsRows(t *testing.T) {
	e := NewExtractor(1)
	got, err := e.ExtractBytes(context.Background(), "people.csv",
		[]byte("name,email\nPriya,priya@company.com\n"))
	require.NoError(t, err)
	assert.Equal(t, "name, email\nPriya, priya@company.com", got)
}

func TestExtractCSVPartialFailure(t *testing.T) {
	e := NewExtractor(1)
	got, err := e.ExtractBytes(context.Background(), "people.csv",
		[]byte("name,email\nRahul,ra\"hul,broken\nPriya,priya@company.com\n"))

	var partial *PartialError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, 1, partial.Skipped)
	assert.Contains(t, got, "priya@company.com")
	assert.Equal(t, got, partial.Text)
}

func TestExtractUnsupportedFormat(t *testing.T) {
	e := NewExtractor(1)
	_, err := e.ExtractBytes(context.Background(), "binary.exe", []byte{0x00})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractSizeLimit(t *testing.T) {
	e := NewExtractor(0) // zero MB limit
	_, err := e.ExtractBytes(context.Background(), "big.txt", []byte("x"))
	assert.ErrorIs(t, err, ErrSizeExceeded)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.txt"))
	assert.True(t, Supported("a.HTML"))
	assert.False(t, Supported("a.pdf"))
}

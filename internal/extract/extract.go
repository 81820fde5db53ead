// Package extract turns uploaded files into plain text for scanning. It is
// deliberately thin: the detection core only ever sees text, so extraction
// failures can never corrupt detection semantics.
package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	scrubdotel "github.com/scrubd-io/scrubd/internal/otel"
)

var tracer = scrubdotel.Tracer("github.com/scrubd-io/scrubd/internal/extract")

// ErrUnsupportedFormat marks file extensions the extractor does not handle.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrSizeExceeded marks files over the configured size limit.
var ErrSizeExceeded = errors.New("file size exceeds limit")

// PartialError reports that extraction succeeded for part of the input.
// Text holds what was recovered; callers decide whether to scan it anyway.
type PartialError struct {
	Text    string
	Skipped int
	Err     error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("partial extraction: %d section(s) skipped: %v", e.Skipped, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Extractor extracts text content from supported file formats
// (.txt, .md, .csv, .html, .htm).
type Extractor struct {
	maxSize int64
}

// NewExtractor creates a file content extractor with a size limit in MB.
func NewExtractor(maxSizeMB int) *Extractor {
	return &Extractor{maxSize: int64(maxSizeMB) * 1024 * 1024}
}

// Extract reads and extracts text from a file on disk. A *PartialError
// return carries recovered text alongside the failure.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	_, span := tracer.Start(ctx, "extract.file")
	defer span.End()

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file %s: %w", path, err)
	}
	if info.Size() > e.maxSize {
		return "", fmt.Errorf("file %s is %d bytes: %w", path, info.Size(), ErrSizeExceeded)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading file %s: %w", path, err)
	}

	return e.ExtractBytes(ctx, filepath.Base(path), content)
}

// ExtractBytes extracts text from in-memory file content, dispatching on the
// filename extension. Used directly for HTTP uploads.
func (e *Extractor) ExtractBytes(ctx context.Context, filename string, content []byte) (string, error) {
	if int64(len(content)) > e.maxSize {
		return "", fmt.Errorf("upload %s is %d bytes: %w", filename, len(content), ErrSizeExceeded)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md":
		return string(content), nil

	case ".csv":
		return extractCSV(content)

	case ".html", ".htm":
		p := bluemonday.StrictPolicy()
		return p.Sanitize(string(content)), nil

	default:
		return "", fmt.Errorf("file type %q: %w", ext, ErrUnsupportedFormat)
	}
}

// Supported reports whether the extractor handles the file's extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".csv", ".html", ".htm":
		return true
	}
	return false
}

// extractCSV joins each row's fields with ", " and rows with newlines, the
// shape the recognizers expect free text in. Malformed rows are skipped and
// surfaced through a PartialError so callers can still scan the rest.
func extractCSV(content []byte) (string, error) {
	r := csv.NewReader(strings.NewReader(string(content)))
	r.FieldsPerRecord = -1

	var rows []string
	skipped := 0
	var lastErr error
	for {
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) || isParseError(err) {
				skipped++
				lastErr = err
				continue
			}
			break // io.EOF or unrecoverable
		}
		rows = append(rows, strings.Join(record, ", "))
	}

	text := strings.Join(rows, "\n")
	if skipped > 0 {
		return text, &PartialError{Text: text, Skipped: skipped, Err: lastErr}
	}
	return text, nil
}

func isParseError(err error) bool {
	var pe *csv.ParseError
	return errors.As(err, &pe)
}

package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LoadError is returned when a corpus source cannot be read as a collection of listing records.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load corpus from %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Decode reads a JSON array of listing records.
// Anything other than a well-formed array of objects yields a *LoadError.
func Decode(r io.Reader, source string) ([]Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, &LoadError{Source: source, Err: fmt.Errorf("expected a JSON array of listings")}
	}

	var records []Record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	if records == nil {
		records = []Record{}
	}
	return records, nil
}

// FileSource loads listing records from a JSON file on disk.
type FileSource struct {
	Path string
}

// NewFileSource creates a corpus source for the JSON file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and decodes the file. The file is re-read on every call.
func (s *FileSource) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &LoadError{Source: s.Path, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	return Decode(f, s.Path)
}

// String names the source in logs.
func (s *FileSource) String() string {
	return "file:" + s.Path
}

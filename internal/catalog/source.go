package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// Source loads the full list of titles.
type Source interface {
	Load(ctx context.Context) ([]Title, error)
}

// Format identifies a snapshot encoding.
type Format string

// Supported snapshot formats.
const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

// ErrUnknownFormat is returned for snapshot names without a known extension.
var ErrUnknownFormat = errors.New("unknown catalog format")

// FormatFromName picks the snapshot format from a file name or object key
// extension.
func FormatFromName(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".cbor":
		return FormatCBOR, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// Decode reads a snapshot: a JSON array or CBOR array of titles.
func Decode(data []byte, format Format) ([]Title, error) {
	var titles []Title
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &titles); err != nil {
			return nil, fmt.Errorf("decode JSON catalog: %w", err)
		}
	case FormatCBOR:
		if err := cbor.Unmarshal(data, &titles); err != nil {
			return nil, fmt.Errorf("decode CBOR catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return titles, nil
}

// Encode writes titles as a snapshot in the given format.
func Encode(w io.Writer, titles []Title, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(titles)
	case FormatCBOR:
		return cbor.NewEncoder(w).Encode(titles)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// FileSource loads a snapshot file from disk. The format follows the file
// extension.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Load reads and decodes the snapshot file.
func (s *FileSource) Load(ctx context.Context) ([]Title, error) {
	format, err := FormatFromName(s.Path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Decode(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), format)
}

// StaticSource serves a fixed list of titles.
type StaticSource []Title

// Load returns a copy of the titles.
func (s StaticSource) Load(context.Context) ([]Title, error) {
	out := make([]Title, len(s))
	copy(out, s)
	return out, nil
}

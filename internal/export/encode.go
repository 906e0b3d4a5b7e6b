package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"vaultScope/internal/model"
)

// Supported encodings.
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// Encode writes the bundle in the given format. JSON is indented by two spaces.
func Encode(w io.Writer, e model.Export, format string) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(e)
	case FormatMsgpack:
		enc := msgpack.NewEncoder(w)
		return enc.Encode(e)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// Decode reads a bundle written by Encode.
func Decode(r io.Reader, format string) (model.Export, error) {
	var e model.Export
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		if err := json.NewDecoder(r).Decode(&e); err != nil {
			return model.Export{}, fmt.Errorf("decode export json: %w", err)
		}
	case FormatMsgpack:
		if err := msgpack.NewDecoder(r).Decode(&e); err != nil {
			return model.Export{}, fmt.Errorf("decode export msgpack: %w", err)
		}
	default:
		return model.Export{}, fmt.Errorf("unsupported export format %q", format)
	}
	return e, nil
}

// WriteFile encodes the bundle to path, creating its directory. "-" writes to stdout.
func WriteFile(path string, e model.Export, format string) error {
	if path == "" || path == "-" {
		return Encode(os.Stdout, e, format)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export: %w", err)
	}
	if err := Encode(file, e, format); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// Filename is the default file name of a cluster's bundle.
func Filename(cluster, format string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(cluster)), " ", "_")
	ext := FormatJSON
	if strings.EqualFold(format, FormatMsgpack) {
		ext = FormatMsgpack
	}
	return fmt.Sprintf("euler_%s_state.%s", slug, ext)
}

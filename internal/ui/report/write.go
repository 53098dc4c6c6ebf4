package report

import (
	"encoding/json"
	"fmt"
	"io"
	"nexalint/internal/core/errors"
	"strings"
)

const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatSARIF = "sarif"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatJSON, FormatSARIF}

// Options tune rendering. Root anchors relative paths in text and SARIF
// output.
type Options struct {
	Root    string
	Verbose bool
}

// Write renders doc in format.
func Write(w io.Writer, format string, doc Document, opts Options) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatText, "":
		return WriteText(w, doc, opts)
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatSARIF:
		return WriteSARIF(w, doc, opts)
	default:
		return errors.AddContext(errors.Newf(errors.CodeValidationError, "unsupported output format %q", format), errors.CtxSetting, "output.format")
	}
}

func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json report: %w", err)
	}
	return nil
}

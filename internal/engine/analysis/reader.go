package analysis

import (
	"context"
	"io"
	"nexalint/internal/core/errors"
	"nexalint/internal/core/ports"
	"nexalint/internal/shared/util"
	"os"
	"strings"
)

// DefaultMaxFileBytes caps a single read when no limit is configured.
const DefaultMaxFileBytes int64 = 2 << 20

// FileReader reads sources from disk. Content beyond MaxBytes is dropped and
// invalid UTF-8 is replaced with U+FFFD.
type FileReader struct {
	MaxBytes int64
	Limiter  *util.Limiter
}

var _ ports.SourceReader = (*FileReader)(nil)

func NewFileReader(maxBytes int64, limiter *util.Limiter) *FileReader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &FileReader{MaxBytes: maxBytes, Limiter: limiter}
}

func (r *FileReader) ReadSource(ctx context.Context, path string) (string, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return "", err
	}

	f, err := os.Open(path)
	if err != nil {
		code := errors.CodeReadFailed
		if os.IsNotExist(err) {
			code = errors.CodeNotFound
		}
		return "", errors.AddContext(errors.Wrap(err, code, "open source"), errors.CtxPath, path)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, r.MaxBytes))
	if err != nil {
		return "", errors.AddContext(errors.Wrap(err, errors.CodeReadFailed, "read source"), errors.CtxPath, path)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

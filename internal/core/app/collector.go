package app

import (
	"context"
	"io/fs"
	"nexalint/internal/core/config"
	"nexalint/internal/core/errors"
	"nexalint/internal/core/ports"
	"nexalint/internal/shared/util"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

var _ ports.FileCollector = (*Collector)(nil)

// Collector walks scan roots and keeps files with a supported extension that
// no exclusion glob matches. Directory globs match a directory's base name;
// file globs match the base name or the slash path relative to the root.
type Collector struct {
	roots     []string
	supported map[string]bool
	dirGlobs  []glob.Glob
	fileGlobs []glob.Glob
}

func NewCollector(scan config.Scan) (*Collector, error) {
	dirGlobs, err := compileGlobs(scan.ExcludeDirs, "scan.exclude_dirs")
	if err != nil {
		return nil, err
	}
	fileGlobs, err := compileGlobs(scan.ExcludeFiles, "scan.exclude_files")
	if err != nil {
		return nil, err
	}
	return &Collector{
		roots:     uniqueRoots(scan.Roots),
		supported: util.ExtensionSet(scan.SupportedExtensions),
		dirGlobs:  dirGlobs,
		fileGlobs: fileGlobs,
	}, nil
}

func compileGlobs(patterns []string, setting string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "invalid glob "+p), errors.CtxSetting, setting)
		}
		out = append(out, g)
	}
	return out, nil
}

// Collect returns the eligible files under req.Roots sorted by path. A root
// may also name a single file. Any walk error aborts the scan.
func (c *Collector) Collect(ctx context.Context, req ports.ScanRequest) (ports.ScanResult, error) {
	result := ports.ScanResult{ByExtension: make(map[string]int)}
	seen := make(map[string]bool)

	for _, root := range uniqueRoots(req.Roots) {
		info, err := os.Stat(root)
		if err != nil {
			return ports.ScanResult{}, walkError(err, root)
		}
		if !info.IsDir() {
			c.consider(root, filepath.Base(root), seen, &result)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				if path != root && c.excludedDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				rel = d.Name()
			}
			c.consider(path, rel, seen, &result)
			return nil
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ports.ScanResult{}, ctxErr
			}
			return ports.ScanResult{}, walkError(err, root)
		}
	}

	sort.Strings(result.Files)
	return result, nil
}

func (c *Collector) consider(path, rel string, seen map[string]bool, result *ports.ScanResult) {
	if seen[path] {
		return
	}
	seen[path] = true
	if !c.eligible(path, rel) {
		result.Skipped++
		return
	}
	result.Files = append(result.Files, path)
	result.ByExtension[util.Extension(path)]++
}

// Accepts reports whether a single path would be collected. Like Collect,
// only directories below the enclosing scan root are checked against the
// directory globs. Paths outside every root have all their directories
// checked.
func (c *Collector) Accepts(path string) bool {
	rel, inRoot := c.relativeToRoot(path)
	if !inRoot {
		rel = path
	}
	for _, part := range strings.Split(filepath.ToSlash(filepath.Dir(rel)), "/") {
		if part != "" && part != "." && part != ".." && c.excludedDir(part) {
			return false
		}
	}
	if !inRoot || rel == "." {
		rel = filepath.Base(path)
	}
	return c.eligible(path, rel)
}

// relativeToRoot returns path relative to the innermost scan root holding it.
func (c *Collector) relativeToRoot(path string) (string, bool) {
	clean := filepath.Clean(path)
	best, bestLen := "", -1
	for _, root := range c.roots {
		rel, err := filepath.Rel(root, clean)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if len(root) > bestLen {
			best, bestLen = rel, len(root)
		}
	}
	return best, bestLen >= 0
}

func (c *Collector) eligible(path, rel string) bool {
	if len(c.supported) > 0 && !c.supported[util.Extension(path)] {
		return false
	}
	base := filepath.Base(path)
	relSlash := util.NormalizePatternPath(rel)
	for _, g := range c.fileGlobs {
		if g.Match(base) || g.Match(relSlash) {
			return false
		}
	}
	return true
}

func (c *Collector) excludedDir(name string) bool {
	for _, g := range c.dirGlobs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func walkError(err error, root string) error {
	code := errors.CodeReadFailed
	if os.IsNotExist(err) {
		code = errors.CodeNotFound
	}
	return errors.AddContext(errors.Wrap(err, code, "collect files"), errors.CtxPath, root)
}

func uniqueRoots(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		clean := filepath.Clean(strings.TrimSpace(p))
		if strings.TrimSpace(p) == "" || seen[clean] {
			continue
		}
		seen[clean] = true
		out = append(out, clean)
	}
	return out
}

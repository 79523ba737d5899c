// Package security validates user-influenced file names and paths
// before export writers touch the filesystem. Session sources are
// free-form strings (file names, camera labels) and must not be able
// to steer an export outside its target directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxFilenameLen bounds sanitized names so joined export paths stay
// well under filesystem limits.
const maxFilenameLen = 128

// SanitizeFilename derives a safe file-name stem from an arbitrary
// source or session identifier. Runs outside [A-Za-z0-9._-] collapse
// to a single underscore, and the result is length-bounded and
// stripped of leading and trailing separators. Empty input yields
// "unknown" so callers always get a usable stem.
func SanitizeFilename(s string) string {
	var b strings.Builder
	squashed := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
			squashed = false
		default:
			if !squashed {
				b.WriteByte('_')
				squashed = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// ValidateExportPath rejects export targets that resolve outside the
// working directory or the system temp directory. Replay tools write
// annotation and chart files next to where they were invoked; anything
// else is a traversal attempt.
func ValidateExportPath(path string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	for _, dir := range []string{cwd, os.TempDir()} {
		if withinDirectory(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("export path %q must be under %s or %s", path, cwd, os.TempDir())
}

// withinDirectory reports whether path, after canonicalizing both
// sides, stays inside dir. Symlinks are resolved so a link planted
// inside dir cannot redirect writes elsewhere.
func withinDirectory(path, dir string) error {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}

	canonDir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(canonDir, canonicalize(absPath))
	if err != nil {
		return fmt.Errorf("path is outside directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path %q escapes %q", path, dir)
	}
	return nil
}

// canonicalize resolves symlinks in abs. Export targets usually do not
// exist yet, so when the full path cannot be resolved the nearest
// existing ancestor is resolved instead and the remaining components
// are re-joined onto it. This catches links like dir/evil -> /etc
// even before dir/evil/out.tsv is created.
func canonicalize(abs string) string {
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved
	}
	for ancestor := filepath.Dir(abs); ; ancestor = filepath.Dir(ancestor) {
		if resolved, err := filepath.EvalSymlinks(ancestor); err == nil {
			rel, err := filepath.Rel(ancestor, abs)
			if err != nil {
				return abs
			}
			return filepath.Join(resolved, rel)
		}
		if ancestor == filepath.Dir(ancestor) {
			return abs
		}
	}
}

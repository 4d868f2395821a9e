// Package scan finds candidate run folders containing QC report files.
package scan

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Candidates walks the given roots for files ending in reportSuffix, maps each
// match to its containing directory, and returns the distinct directories not
// already recorded as done, in lexicographic order. Unreadable subtrees are
// skipped with a warning; a missing root is not an error.
func Candidates(roots []string, reportSuffix string, done func(string) bool, log *zap.Logger) []string {
	seen := make(map[string]struct{})
	for _, root := range roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), reportSuffix) {
				return nil
			}
			dir := filepath.Dir(path)
			if !done(dir) {
				seen[dir] = struct{}{}
			}
			return nil
		})
		if err != nil {
			log.Warn("failed to walk search root", zap.String("root", root), zap.Error(err))
		}
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs
}

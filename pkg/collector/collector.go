// Package collector walks a media tree and gathers file metadata for
// the planner. Collection never mutates the tree.
package collector

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// FileInfo holds metadata about one file under the root.
type FileInfo struct {
	Path string // absolute path
	Dir  string // directory containing the file
	Name string // base name
	Size int64  // size in bytes
}

// Options configures the collector behavior.
type Options struct {
	// SkipFiles is a list of exact base names to skip.
	SkipFiles []string
	// SkipPrefixes is a list of base-name prefixes to skip. Journal
	// and lock files written by the engine itself are matched here so
	// a second run never tries to reorganize them.
	SkipPrefixes []string
	// SkipDirs is a list of directory base names to skip entirely.
	SkipDirs []string
}

// Collector collects file metadata from a directory tree.
type Collector struct {
	skipFiles    map[string]bool
	skipPrefixes []string
	skipDirs     map[string]bool
}

// New creates a Collector with the given options.
func New(opts Options) *Collector {
	c := &Collector{
		skipFiles:    make(map[string]bool),
		skipPrefixes: append([]string(nil), opts.SkipPrefixes...),
		skipDirs:     make(map[string]bool),
	}

	for _, f := range opts.SkipFiles {
		c.skipFiles[f] = true
	}
	for _, d := range opts.SkipDirs {
		c.skipDirs[d] = true
	}

	return c
}

// Collect walks the tree and returns metadata for every regular file,
// sorted by path so planning is deterministic for a given tree.
func (c *Collector) Collect(rootDir string) ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != rootDir && c.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		if c.skip(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		files = append(files, FileInfo{
			Path: path,
			Dir:  filepath.Dir(path),
			Name: d.Name(),
			Size: info.Size(),
		})

		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})

	return files, nil
}

func (c *Collector) skip(name string) bool {
	if c.skipFiles[name] {
		return true
	}

	for _, prefix := range c.skipPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}

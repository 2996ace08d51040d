// Package sweep removes directories left empty by an executed plan.
//
// Only directories the plan touched, their descendants, and the
// ancestor chain they empty out are candidates; unrelated empty
// folders elsewhere in the tree are left alone. The root itself is
// never removed.
package sweep

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mediatidy/pkg/safepath"
)

// Run deletes empty directories reachable from the touched set,
// bottom-up. It returns the removed paths in removal order. Failures
// on individual directories are collected, not fatal.
func Run(validator *safepath.Validator, touched []string) (removed []string, errs []error) {
	root := validator.Root()

	candidates := map[string]bool{}
	for _, dir := range touched {
		if !strings.HasPrefix(dir, root+string(filepath.Separator)) {
			continue
		}
		collectSubdirs(dir, candidates)
	}

	// Deepest first.
	ordered := make([]string, 0, len(candidates))
	for d := range candidates {
		ordered = append(ordered, d)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return strings.Count(ordered[i], string(filepath.Separator)) > strings.Count(ordered[j], string(filepath.Separator))
	})

	removedSet := map[string]bool{}
	for _, dir := range ordered {
		if remErrs := removeUpward(validator, root, dir, removedSet); len(remErrs) > 0 {
			errs = append(errs, remErrs...)
		}
	}

	removed = make([]string, 0, len(removedSet))
	for d := range removedSet {
		removed = append(removed, d)
	}
	sort.Slice(removed, func(i, j int) bool {
		return strings.Count(removed[i], string(filepath.Separator)) > strings.Count(removed[j], string(filepath.Separator))
	})
	return removed, errs
}

// collectSubdirs adds dir and every directory below it to the set.
func collectSubdirs(dir string, set map[string]bool) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return
	}
	set[dir] = true

	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			set[path] = true
		}
		return nil
	})
}

// removeUpward removes dir when empty, then walks toward the root
// removing parents that became empty as a result.
func removeUpward(validator *safepath.Validator, root, dir string, removedSet map[string]bool) []error {
	var errs []error

	for dir != root && dir != filepath.Dir(dir) {
		if removedSet[dir] {
			dir = filepath.Dir(dir)
			continue
		}

		empty, err := isEmptyDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, err)
			}
			return errs
		}
		if !empty {
			return errs
		}

		if err := validator.SafeRemoveDir(dir); err != nil {
			errs = append(errs, err)
			return errs
		}
		removedSet[dir] = true
		dir = filepath.Dir(dir)
	}

	return errs
}

func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

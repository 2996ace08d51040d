package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mediatidy/pkg/hasher"
)

// resolveConflict decides where src may actually land when dest is
// already taken, on disk or by an earlier operation in this plan.
// Identical content at any probed candidate makes src a duplicate;
// otherwise the name gets an " (alt N)" suffix at the first free slot.
func (p *Planner) resolveConflict(src, dest string) (final string, duplicate bool, err error) {
	taken, dup, err := p.occupied(src, dest)
	if err != nil {
		return "", false, err
	}
	if dup {
		return dest, true, nil
	}
	if !taken {
		return dest, false, nil
	}

	for n := 1; ; n++ {
		candidate := altName(dest, n)

		taken, dup, err := p.occupied(src, candidate)
		if err != nil {
			return "", false, err
		}
		if dup {
			return candidate, true, nil
		}
		if !taken {
			return candidate, false, nil
		}
	}
}

// occupied reports whether path is taken, and if so whether its
// content matches src. Claims by earlier plan entries are compared
// against the claiming source, which still sits at its original path.
func (p *Planner) occupied(src, path string) (taken, duplicate bool, err error) {
	if claimant, ok := p.claims[path]; ok {
		same, err := hasher.SameContent(src, claimant)
		if err != nil {
			return false, false, fmt.Errorf("comparing %s with %s: %w", src, claimant, err)
		}
		return true, same, nil
	}

	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("probing %s: %w", path, err)
	}

	if !info.Mode().IsRegular() {
		return true, false, nil
	}

	same, err := hasher.SameContent(src, path)
	if err != nil {
		return false, false, fmt.Errorf("comparing %s with %s: %w", src, path, err)
	}
	return true, same, nil
}

// altName inserts " (alt)" before the extension, numbering from the
// second alternative on: " (alt 2)", " (alt 3)", …
func altName(dest string, n int) string {
	ext := filepath.Ext(dest)
	stem := strings.TrimSuffix(dest, ext)
	if n == 1 {
		return fmt.Sprintf("%s (alt)%s", stem, ext)
	}
	return fmt.Sprintf("%s (alt %d)%s", stem, n, ext)
}

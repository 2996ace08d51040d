// Package layout computes canonical destination paths for classified
// media files under a library root.
//
// Episodes land in <Show>/Season <NN>/<Show.Dotted>.S<NN>E<NN><ext>,
// movies in <Title> (<Year>)/<Title> (<Year>)<ext>. Subtitles follow
// their video's stem with language and modifier tags appended. Top
// level folders snap case-insensitively onto ones that already exist,
// so "the office" and "The Office" share a single show folder.
package layout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mediatidy/pkg/classify"
)

// ErrNoYear is returned when a movie identity carries no year and no
// lookup could supply one.
var ErrNoYear = errors.New("movie year unknown")

// YearLookup resolves a release year for a movie title. Implementations
// return ok=false when the title is unknown.
type YearLookup interface {
	Lookup(ctx context.Context, title string) (year int, ok bool, err error)
}

// Resolver builds destination paths under root.
type Resolver struct {
	root   string
	lookup YearLookup // may be nil

	// folders maps lowercase top-level folder names to the casing in
	// use, seeded from disk and extended as paths are resolved.
	folders map[string]string
}

// NewResolver creates a Resolver for root, indexing the existing
// top-level directories. lookup may be nil to disable year resolution.
func NewResolver(root string, lookup YearLookup) (*Resolver, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", root, err)
	}

	folders := make(map[string]string)
	for _, e := range entries {
		if e.IsDir() {
			folders[strings.ToLower(e.Name())] = e.Name()
		}
	}

	return &Resolver{root: root, lookup: lookup, folders: folders}, nil
}

// Resolve returns the canonical absolute destination for a classified
// media entry. Movie identities without a year consult the lookup;
// ErrNoYear is returned when none can be found.
func (r *Resolver) Resolve(ctx context.Context, entry classify.Entry) (string, error) {
	id := entry.Identity
	if id == nil {
		return "", errors.New("entry has no identity")
	}

	ext := strings.ToLower(filepath.Ext(entry.Path))

	switch id.Kind {
	case classify.KindEpisode:
		return r.episodeDest(id, ext), nil
	case classify.KindMovie:
		year := id.Year
		if year == 0 {
			resolved, err := r.resolveYear(ctx, id.Title)
			if err != nil {
				return "", err
			}
			year = resolved
		}
		return r.movieDest(id, year, ext), nil
	default:
		return "", fmt.Errorf("unknown identity kind %q", id.Kind)
	}
}

func (r *Resolver) episodeDest(id *classify.Identity, ext string) string {
	folder := r.snap(id.Show)
	season := fmt.Sprintf("Season %02d", id.Season)

	// The filename keeps the normalized show title; only the folder
	// snaps to existing casing.
	stem := fmt.Sprintf("%s.S%02dE%02d", strings.ReplaceAll(id.Show, " ", "."), id.Season, id.Episode)
	return filepath.Join(r.root, folder, season, r.sidecarName(stem, id, ext))
}

func (r *Resolver) movieDest(id *classify.Identity, year int, ext string) string {
	stem := fmt.Sprintf("%s (%d)", id.Title, year)
	folder := r.snap(stem)
	return filepath.Join(r.root, folder, r.sidecarName(stem, id, ext))
}

// sidecarName appends subtitle language and modifier tags to the stem.
// Video files pass through untouched.
func (r *Resolver) sidecarName(stem string, id *classify.Identity, ext string) string {
	parts := []string{stem}
	if id.Lang != "" {
		parts = append(parts, id.Lang)
	}
	parts = append(parts, id.Modifiers...)
	return strings.Join(parts, ".") + ext
}

func (r *Resolver) resolveYear(ctx context.Context, title string) (int, error) {
	if r.lookup == nil {
		return 0, ErrNoYear
	}

	year, ok, err := r.lookup.Lookup(ctx, title)
	if err != nil {
		return 0, fmt.Errorf("year lookup for %q: %w", title, err)
	}
	if !ok || year == 0 {
		return 0, ErrNoYear
	}
	return year, nil
}

// snap returns the existing casing of a top-level folder when one
// matches case-insensitively, registering new names as they appear so
// later entries in the same run agree on the casing.
func (r *Resolver) snap(name string) string {
	key := strings.ToLower(name)
	if existing, ok := r.folders[key]; ok {
		return existing
	}
	r.folders[key] = name
	return name
}

// Package plan turns classified files into an ordered list of
// filesystem operations. Planning is read-only: conflicts are resolved
// by probing the disk and the plan's own claims, never by mutating
// anything. The resulting operations execute in sequence order.
package plan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"mediatidy/pkg/classify"
	"mediatidy/pkg/collector"
	"mediatidy/pkg/hasher"
	"mediatidy/pkg/journal"
	"mediatidy/pkg/layout"
)

// Operation is one planned filesystem mutation. Op values are the
// journal operation types.
type Operation struct {
	Seq    int
	Op     string
	Src    string
	Dst    string
	Hash   string
	Reason string
}

// Actions reported per input file.
const (
	ActionMove       = "move"
	ActionDelete     = "delete"
	ActionQuarantine = "quarantine"
	ActionKeep       = "keep"
	ActionReport     = "report"
)

// Decision records what the planner decided for one input file, for
// reporting. Decisions cover every collected file; Operations cover
// only the ones that mutate the filesystem.
type Decision struct {
	Path     string
	Category classify.Category
	Action   string
	Dst      string
	Reason   string
}

// Result is a complete plan for one run.
type Result struct {
	Operations []Operation
	Decisions  []Decision

	// TouchedDirs are source directories of planned mutations, the
	// candidates for empty-directory sweeping after execution.
	TouchedDirs []string

	Moves         int
	Deletes       int
	Quarantines   int
	Duplicates    int
	AlreadyPlaced int
	Reported      int
}

// Options configure a Planner.
type Options struct {
	// QuarantineDir, when set, turns every planned delete into a move
	// under this directory, mirroring the file's path relative to root.
	QuarantineDir string

	// FilterSubtitlesEverywhere extends non-English subtitle removal
	// from release folders to the whole tree.
	FilterSubtitlesEverywhere bool
}

// Planner builds plans for one library root.
type Planner struct {
	root       string
	classifier *classify.Classifier
	resolver   *layout.Resolver
	opts       Options

	seq     int
	claims  map[string]string // dst -> src that claimed it
	dirs    map[string]bool   // dirs that exist or are planned
	touched map[string]bool
}

// New creates a Planner over root.
func New(root string, classifier *classify.Classifier, resolver *layout.Resolver, opts Options) *Planner {
	return &Planner{
		root:       root,
		classifier: classifier,
		resolver:   resolver,
		opts:       opts,
		claims:     make(map[string]string),
		dirs:       make(map[string]bool),
		touched:    make(map[string]bool),
	}
}

// Plan classifies every collected file and produces the run's
// operations. Individual files that cannot be planned (unresolvable
// identity, lookup failures) degrade to report decisions; only
// infrastructure failures abort planning.
func (p *Planner) Plan(ctx context.Context, files []collector.FileInfo) (*Result, error) {
	result := &Result{}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := p.classifier.Classify(f.Path, f.Size, p.root)
		if err := p.planEntry(ctx, entry, result); err != nil {
			return nil, err
		}
	}

	result.TouchedDirs = sortedKeys(p.touched)
	return result, nil
}

func (p *Planner) planEntry(ctx context.Context, entry classify.Entry, result *Result) error {
	switch entry.Category {
	case classify.CategoryJunkSample, classify.CategoryJunkArchive,
		classify.CategoryJunkImage, classify.CategoryJunkMetadata:
		return p.planDisposal(entry, string(entry.Category), result)

	case classify.CategoryUnknown:
		if classify.InReleaseContext(entry.Path, p.root) {
			return p.planDisposal(entry, "unknown file in release folder", result)
		}
		p.report(entry, "unhandled file type", result)
		return nil

	case classify.CategoryUnparseable:
		p.report(entry, "no identity in file or folder name", result)
		return nil

	case classify.CategorySubtitle:
		if p.subtitleFiltered(entry) {
			return p.planDisposal(entry, "non-english subtitle", result)
		}
		return p.planMove(ctx, entry, result)

	case classify.CategoryVideo:
		return p.planMove(ctx, entry, result)

	default:
		return fmt.Errorf("unhandled category %q for %s", entry.Category, entry.Path)
	}
}

// subtitleFiltered applies the non-English subtitle policy.
func (p *Planner) subtitleFiltered(entry classify.Entry) bool {
	name := filepath.Base(entry.Path)
	if classify.IsEnglishSubtitle(name) {
		return false
	}
	if p.opts.FilterSubtitlesEverywhere {
		return true
	}
	return classify.InReleaseContext(entry.Path, p.root)
}

func (p *Planner) planMove(ctx context.Context, entry classify.Entry, result *Result) error {
	dest, err := p.resolver.Resolve(ctx, entry)
	if err != nil {
		if errors.Is(err, layout.ErrNoYear) {
			p.report(entry, "movie year unknown", result)
			return nil
		}
		// Lookup transport errors degrade per entry.
		p.report(entry, err.Error(), result)
		return nil
	}

	if filepath.Clean(dest) == filepath.Clean(entry.Path) {
		result.AlreadyPlaced++
		result.Decisions = append(result.Decisions, Decision{
			Path: entry.Path, Category: entry.Category, Action: ActionKeep, Reason: "already in place",
		})
		return nil
	}

	final, duplicate, err := p.resolveConflict(entry.Path, dest)
	if err != nil {
		return err
	}

	if duplicate {
		return p.planDuplicate(entry, final, result)
	}

	p.planParentDirs(final, result)

	op := p.appendOp(result, Operation{
		Op: journal.OpMove, Src: entry.Path, Dst: final,
	})
	p.claims[final] = entry.Path
	p.touch(entry.Path)

	result.Moves++
	result.Decisions = append(result.Decisions, Decision{
		Path: entry.Path, Category: entry.Category, Action: ActionMove, Dst: op.Dst,
	})
	return nil
}

// planDuplicate disposes of a source whose content already exists at
// the destination.
func (p *Planner) planDuplicate(entry classify.Entry, existing string, result *Result) error {
	result.Duplicates++
	reason := fmt.Sprintf("duplicate of %s", existing)
	return p.planDisposal(entry, reason, result)
}

// planDisposal deletes the file, or quarantines it when a quarantine
// directory is configured.
func (p *Planner) planDisposal(entry classify.Entry, reason string, result *Result) error {
	if p.opts.QuarantineDir == "" {
		p.appendOp(result, Operation{
			Op: journal.OpDelete, Src: entry.Path, Reason: reason,
		})
		p.touch(entry.Path)

		result.Deletes++
		result.Decisions = append(result.Decisions, Decision{
			Path: entry.Path, Category: entry.Category, Action: ActionDelete, Reason: reason,
		})
		return nil
	}

	rel, err := filepath.Rel(p.root, entry.Path)
	if err != nil {
		return fmt.Errorf("quarantine path for %s: %w", entry.Path, err)
	}
	dst := filepath.Join(p.opts.QuarantineDir, rel)

	hash, err := hasher.Fingerprint(entry.Path)
	if err != nil {
		return fmt.Errorf("fingerprinting %s: %w", entry.Path, err)
	}

	p.appendOp(result, Operation{
		Op: journal.OpQuarantine, Src: entry.Path, Dst: dst, Hash: hash, Reason: reason,
	})
	p.touch(entry.Path)

	result.Quarantines++
	result.Decisions = append(result.Decisions, Decision{
		Path: entry.Path, Category: entry.Category, Action: ActionQuarantine, Dst: dst, Reason: reason,
	})
	return nil
}

// planParentDirs emits mkdir operations, parent first, for every
// missing directory between root and dst's parent. Each directory is
// planned at most once per run.
func (p *Planner) planParentDirs(dst string, result *Result) {
	var missing []string

	dir := filepath.Dir(dst)
	for dir != p.root && dir != filepath.Dir(dir) {
		if p.dirs[dir] {
			break
		}
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			break
		}
		missing = append(missing, dir)
		dir = filepath.Dir(dir)
	}

	for i := len(missing) - 1; i >= 0; i-- {
		p.appendOp(result, Operation{Op: journal.OpMkdir, Dst: missing[i]})
		p.dirs[missing[i]] = true
	}
}

func (p *Planner) report(entry classify.Entry, reason string, result *Result) {
	result.Reported++
	result.Decisions = append(result.Decisions, Decision{
		Path: entry.Path, Category: entry.Category, Action: ActionReport, Reason: reason,
	})
}

func (p *Planner) appendOp(result *Result, op Operation) Operation {
	p.seq++
	op.Seq = p.seq
	result.Operations = append(result.Operations, op)
	return op
}

func (p *Planner) touch(src string) {
	dir := filepath.Dir(src)
	if dir != p.root {
		p.touched[dir] = true
	}
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package classify inspects filesystem entries and assigns each one a
// category (video, subtitle, one of the junk categories) plus, for
// media files, a parsed identity. Classification is pure: it looks only
// at paths, names and extensions, never at file content.
package classify

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Category is the disposition assigned to one filesystem entry.
type Category string

const (
	// CategoryVideo is a video file with a parsed identity.
	CategoryVideo Category = "video"
	// CategorySubtitle is a subtitle sidecar with a parsed identity.
	CategorySubtitle Category = "subtitle"
	// CategoryJunkSample is a sample, proof or trailer file, or any
	// file inside a sample or screens directory.
	CategoryJunkSample Category = "junk-sample"
	// CategoryJunkArchive is an archive or repair-set file.
	CategoryJunkArchive Category = "junk-archive"
	// CategoryJunkImage is an image file.
	CategoryJunkImage Category = "junk-image"
	// CategoryJunkMetadata is OS or release metadata (.DS_Store, .nfo, …).
	CategoryJunkMetadata Category = "junk-metadata"
	// CategoryUnknown is a file with an extension the engine does not
	// handle. Unknown files inside release folders are junk; elsewhere
	// they are reported and left in place.
	CategoryUnknown Category = "unknown"
	// CategoryUnparseable is a media file whose name yields no identity.
	// Unparseable entries are reported and excluded from planning.
	CategoryUnparseable Category = "unparseable"
)

// Entry is one classified filesystem object.
type Entry struct {
	Path     string
	Size     int64
	Category Category
	Identity *Identity // set for CategoryVideo and CategorySubtitle
}

// Rules holds the name and extension rules the classifier applies.
// Zero values are not usable; construct with DefaultRules and adjust.
type Rules struct {
	VideoExts    map[string]bool
	SubtitleExts map[string]bool
	ArchiveExts  map[string]bool
	ImageExts    map[string]bool
	MetadataExts map[string]bool

	// SamplePatterns are lowercase substrings of a base name that mark
	// a file as a sample/proof/trailer.
	SamplePatterns []string

	// KeepExts removes extensions from the junk sets, preserving files
	// that would otherwise be deleted (e.g. .nfo for TV libraries).
	KeepExts map[string]bool
}

// DefaultRules returns the standard rule set.
func DefaultRules() *Rules {
	return &Rules{
		VideoExts:    extSet(".mkv", ".mp4", ".avi", ".mov", ".m4v", ".wmv"),
		SubtitleExts: extSet(".srt", ".sub", ".idx", ".vtt", ".ass", ".ssa"),
		ArchiveExts:  extSet(".rar", ".r00", ".r01", ".sfv", ".nzb", ".par2", ".srr"),
		ImageExts:    extSet(".jpg", ".jpeg", ".png", ".gif", ".bmp"),
		MetadataExts: extSet(".ds_store", ".nfo", ".txt", "thumbs.db"),

		SamplePatterns: []string{"sample", "proof", "trailer"},

		KeepExts: map[string]bool{},
	}
}

func extSet(exts ...string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[e] = true
	}
	return m
}

// subsFolderNames are directory names that hold subtitles for the
// release one level up.
var subsFolderNames = map[string]bool{"subs": true, "subtitles": true, "sub": true}

// releaseFolderPatterns match scene-release directory names: quality
// tags, codecs, bracketed suffixes, -GROUP suffixes, known groups.
var releaseFolderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\d{3,4}p`),
	regexp.MustCompile(`(?i)(WEB-?DL|WEBRip|BluRay|BDRip|HDRip|DVDRip)`),
	regexp.MustCompile(`(?i)(x264|x265|h264|h265|HEVC)`),
	regexp.MustCompile(`\[.*\]$`),
	regexp.MustCompile(`-[A-Z0-9]+$`),
	regexp.MustCompile(`(?i)(YIFY|YTS|RARBG|TGx)`),
}

// IsReleaseFolder reports whether a directory name looks like a
// scene-release wrapper folder.
func IsReleaseFolder(name string) bool {
	for _, pat := range releaseFolderPatterns {
		if pat.MatchString(name) {
			return true
		}
	}
	return false
}

// Classifier applies Rules to filesystem entries.
type Classifier struct {
	rules *Rules
}

// New creates a Classifier. A nil rules argument uses DefaultRules.
func New(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify assigns a category and, for media files, an identity to the
// file at path. The root is needed for parent-folder identity fallback.
func (c *Classifier) Classify(path string, size int64, root string) Entry {
	entry := Entry{Path: path, Size: size}

	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))
	dir := filepath.Dir(path)

	// Screens-folder content is terminal junk regardless of extension.
	if inScreensDir(dir, root) {
		entry.Category = CategoryJunkSample
		return entry
	}

	if c.isSample(path) {
		entry.Category = CategoryJunkSample
		return entry
	}

	if !c.rules.KeepExts[ext] {
		switch {
		case c.rules.ArchiveExts[ext]:
			entry.Category = CategoryJunkArchive
			return entry
		case c.rules.ImageExts[ext]:
			entry.Category = CategoryJunkImage
			return entry
		case c.rules.MetadataExts[ext] || c.rules.MetadataExts[strings.ToLower(name)]:
			entry.Category = CategoryJunkMetadata
			return entry
		}
	}

	isVideo := c.rules.VideoExts[ext]
	isSubtitle := c.rules.SubtitleExts[ext]
	if !isVideo && !isSubtitle {
		entry.Category = CategoryUnknown
		return entry
	}

	identity := c.parseWithFallback(path, root)
	if identity == nil {
		entry.Category = CategoryUnparseable
		return entry
	}

	if isSubtitle {
		identity.Lang, identity.Modifiers = ExtractLanguage(name)
		entry.Category = CategorySubtitle
	} else {
		entry.Category = CategoryVideo
	}

	entry.Identity = identity
	return entry
}

// parseWithFallback tries the file's own name, then the parent folder
// name, then the grandparent when the parent is a subs folder. Names
// with an explicit marker (episode pattern, movie year) are preferred
// at any level over yearless whole-name guesses, so a generic file
// name inside a release folder takes the folder's identity.
func (c *Classifier) parseWithFallback(path, root string) *Identity {
	names := candidateNames(path, root)

	for _, n := range names {
		if id := parseStrict(prepareStem(n)); id != nil {
			return id
		}
	}
	for _, n := range names {
		if id := parseWeak(prepareStem(n)); id != nil {
			return id
		}
	}
	return nil
}

func candidateNames(path, root string) []string {
	names := []string{filepath.Base(path)}

	parent := filepath.Dir(path)
	if parent == root || parent == filepath.Dir(parent) {
		return names
	}
	names = append(names, filepath.Base(parent))

	if subsFolderNames[strings.ToLower(filepath.Base(parent))] {
		grand := filepath.Dir(parent)
		if grand != root && grand != filepath.Dir(grand) {
			names = append(names, filepath.Base(grand))
		}
	}
	return names
}

// InReleaseContext reports whether the file at path sits in a release
// folder, directly or via a subs subfolder.
func InReleaseContext(path, root string) bool {
	parent := filepath.Dir(path)
	if parent == root {
		return false
	}

	if IsReleaseFolder(filepath.Base(parent)) {
		return true
	}

	if subsFolderNames[strings.ToLower(filepath.Base(parent))] {
		grand := filepath.Dir(parent)
		if grand != root && IsReleaseFolder(filepath.Base(grand)) {
			return true
		}
	}

	return false
}

func (c *Classifier) isSample(path string) bool {
	lowered := strings.ToLower(filepath.Base(path))
	for _, pattern := range c.rules.SamplePatterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}

	parent := strings.ToLower(filepath.Base(filepath.Dir(path)))
	return parent == "sample" || parent == "samples"
}

// inScreensDir reports whether any directory between root and the file
// is a screens folder.
func inScreensDir(dir, root string) bool {
	for dir != root && dir != filepath.Dir(dir) {
		if strings.Contains(strings.ToLower(filepath.Base(dir)), "screens") {
			return true
		}
		dir = filepath.Dir(dir)
	}
	return false
}

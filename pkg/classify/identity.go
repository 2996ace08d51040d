package classify

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind distinguishes the two media identities.
type Kind string

const (
	KindEpisode Kind = "episode"
	KindMovie   Kind = "movie"
)

// Identity is the parsed media identity of a video or subtitle file.
type Identity struct {
	Kind Kind

	// Episode fields.
	Show    string
	Season  int
	Episode int

	// Movie fields. Year is zero when the name carries none.
	Title string
	Year  int

	// Descriptor is the trailing text after the episode marker
	// (quality tags, release group), preserved verbatim.
	Descriptor string

	// Subtitle language tag and modifiers (forced, sdh, cc, hi).
	Lang      string
	Modifiers []string
}

var (
	reEpisodeSE = regexp.MustCompile(`(?i)^(.*?)[.\s\-_]*S(\d{1,2})[.\s\-_]*E(\d{1,2})`)
	reEpisodeNM = regexp.MustCompile(`(?i)^(.*?)[.\s\-_](\d{1,2})x(\d{1,2})(?:[.\s\-_]|$)`)
	reEpisodeWd = regexp.MustCompile(`(?i)^(.*?)[.\s\-_]*Season[.\s\-_]*(\d{1,2})[.\s\-_]*Episode[.\s\-_]*(\d{1,2})`)

	reMovieParen  = regexp.MustCompile(`^(.+?)\s*\(((?:19|20)\d{2})\)`)
	reMovieDotted = regexp.MustCompile(`^(.+?)[.\s_(-]((?:19|20)\d{2})(?:[).\s_-]|$)`)

	reNoisePrefixes = []*regexp.Regexp{
		regexp.MustCompile(`^\[[^\]]*\][\s.\-_]*`),
		regexp.MustCompile(`(?i)^www\.[^\s.]+\.[a-z]{2,4}[\s.\-_]*-?[\s.\-_]*`),
		regexp.MustCompile(`(?i)^(yts\.[a-z]{2,4}|yify)[\s.\-_]*`),
	}

	reQualityMarkers = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|4k|uhd|hdr10?|dolby[.\s]?vision|dv|bluray|blu-ray|bdrip|brrip|web-?dl|webrip|hdtv|dvdrip|dvd|remux|x264|x265|h[.\s]?264|h[.\s]?265|hevc|avc|aac|ac3|eac3|dts(-hd)?|truehd|atmos|dd5[.\s]?1|ddp5[.\s]?1|5[.\s]1|7[.\s]1|10bit|8bit|extended|unrated|remastered|proper|repack|internal|limited|imax|directors[.\s]?cut)\b`)

	reTrailingGroup  = regexp.MustCompile(`-[A-Za-z0-9]+$`)
	reBracketChunks  = regexp.MustCompile(`\[[^\]]*\]`)
	reSeparatorRuns  = regexp.MustCompile(`[._]+`)
	reSpaceRuns      = regexp.MustCompile(`\s+`)
	reTrailingYearWd = regexp.MustCompile(`\s*\(?(?:19|20)\d{2}\)?$`)
)

// titleCaser capitalizes individual words; acronyms are handled by the
// caller so the caser never sees them.
var titleCaser = cases.Title(language.English, cases.NoLower)

// ParseIdentity extracts an episode or movie identity from a file or
// folder name. Episode patterns win over movie patterns so that a year
// in a show name does not demote an episode to a movie. Returns nil
// when nothing parses.
func ParseIdentity(name string) *Identity {
	stem := prepareStem(name)
	if id := parseStrict(stem); id != nil {
		return id
	}
	return parseWeak(stem)
}

// parseStrict matches names with an explicit marker: an episode
// pattern or a movie year.
func parseStrict(stem string) *Identity {
	if id := parseEpisode(stem); id != nil {
		return id
	}
	return parseMovieWithYear(stem)
}

// parseWeak treats the whole stem as a yearless movie title. It wants
// at least two tokens so that generic single-word names ("episode",
// "movie") defer to their folder instead.
func parseWeak(stem string) *Identity {
	if len(splitTokens(stem)) < 2 {
		return nil
	}

	title := cleanMovieTitle(stem)
	if title == "" || !strings.ContainsAny(title, "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return nil
	}
	return &Identity{Kind: KindMovie, Title: title}
}

func prepareStem(name string) string {
	stem := trimKnownExt(name)
	stem = normalizeText(stem)
	return stripNoisePrefixes(stem)
}

func parseEpisode(stem string) *Identity {
	for _, pat := range []*regexp.Regexp{reEpisodeSE, reEpisodeNM, reEpisodeWd} {
		loc := pat.FindStringSubmatchIndex(stem)
		if loc == nil {
			continue
		}

		show := cleanShowName(stem[loc[2]:loc[3]])
		if show == "" {
			continue
		}

		season, _ := strconv.Atoi(stem[loc[4]:loc[5]])
		episode, _ := strconv.Atoi(stem[loc[6]:loc[7]])

		descriptor := strings.Trim(stem[loc[1]:], ".-_ ")

		return &Identity{
			Kind:       KindEpisode,
			Show:       show,
			Season:     season,
			Episode:    episode,
			Descriptor: descriptor,
		}
	}
	return nil
}

func parseMovieWithYear(stem string) *Identity {
	for _, pat := range []*regexp.Regexp{reMovieParen, reMovieDotted} {
		m := pat.FindStringSubmatch(stem)
		if m == nil {
			continue
		}

		title := cleanMovieTitle(m[1])
		if title == "" {
			continue
		}

		year, _ := strconv.Atoi(m[2])
		return &Identity{Kind: KindMovie, Title: title, Year: year}
	}
	return nil
}

// cleanShowName turns a raw show fragment into display form:
// "the.walking.dead" -> "The Walking Dead".
func cleanShowName(raw string) string {
	s := reSeparatorRuns.ReplaceAllString(raw, " ")
	s = strings.ReplaceAll(s, "-", " ")
	if trimmed := reTrailingYearWd.ReplaceAllString(s, ""); strings.TrimSpace(trimmed) != "" {
		s = trimmed
	}
	s = reSpaceRuns.ReplaceAllString(strings.TrimSpace(s), " ")
	return titleCase(s)
}

// cleanMovieTitle strips quality markers, release-group suffixes and
// bracketed chunks, then title-cases the remainder.
func cleanMovieTitle(raw string) string {
	s := reSeparatorRuns.ReplaceAllString(raw, " ")
	s = reBracketChunks.ReplaceAllString(s, " ")
	s = reQualityMarkers.ReplaceAllString(s, " ")
	s = reSpaceRuns.ReplaceAllString(strings.TrimSpace(s), " ")
	s = reTrailingGroup.ReplaceAllString(s, "")
	s = strings.Trim(s, " -")
	return titleCase(s)
}

// titleCase capitalizes each word while leaving short all-caps
// acronyms (FBI, NYPD, UFO) intact.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) <= 4 && w == strings.ToUpper(w) && strings.ContainsAny(w, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
			continue
		}
		words[i] = titleCaser.String(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

// normalizeText replaces unicode dashes and non-breaking spaces with
// their ASCII forms so the patterns above apply uniformly.
func normalizeText(s string) string {
	replacer := strings.NewReplacer(
		"–", "-", // en dash
		"—", "-", // em dash
		"−", "-", // minus sign
		" ", " ", // no-break space
	)
	return replacer.Replace(s)
}

func stripNoisePrefixes(s string) string {
	for changed := true; changed; {
		changed = false
		for _, pat := range reNoisePrefixes {
			if next := pat.ReplaceAllString(s, ""); next != s {
				s = next
				changed = true
			}
		}
	}
	return s
}

// trimKnownExt drops the final extension when it is short and
// alphanumeric, leaving dotted release names intact.
func trimKnownExt(name string) string {
	if e := filepathExt(name); e != "" {
		return strings.TrimSuffix(name, e)
	}
	return name
}

func filepathExt(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return ""
	}
	ext := name[idx:]
	if len(ext) > 5 {
		return ""
	}
	digitsOnly := true
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return ""
		}
		if r < '0' || r > '9' {
			digitsOnly = false
		}
	}
	// A trailing ".2020" is a year token, not an extension.
	if digitsOnly {
		return ""
	}
	return ext
}

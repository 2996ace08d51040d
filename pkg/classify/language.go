package classify

import "strings"

// languageTags maps name tokens to the canonical three-letter tag used
// in renamed subtitle files.
var languageTags = map[string]string{
	"en": "eng", "eng": "eng", "english": "eng",
	"es": "spa", "spa": "spa", "spanish": "spa", "espanol": "spa",
	"fr": "fre", "fre": "fre", "french": "fre", "francais": "fre",
	"de": "ger", "ger": "ger", "german": "ger", "deutsch": "ger",
}

// modifierTags are subtitle variant markers carried through to the
// renamed file.
var modifierTags = map[string]bool{
	"forced": true,
	"sdh":    true,
	"cc":     true,
	"hi":     true,
}

// ExtractLanguage pulls a language tag and any variant modifiers out of
// a subtitle file name. Tokens are the dot/underscore/dash separated
// segments of the stem; the order of modifiers in the name is kept.
func ExtractLanguage(name string) (lang string, modifiers []string) {
	stem := trimKnownExt(name)
	for _, token := range splitTokens(stem) {
		if tag, ok := languageTags[token]; ok && lang == "" {
			lang = tag
			continue
		}
		if modifierTags[token] {
			modifiers = append(modifiers, token)
		}
	}
	return lang, modifiers
}

// IsEnglishSubtitle reports whether a subtitle name is English, either
// by an explicit tag or because the whole stem names the language
// ("English.srt", "2_English.srt").
func IsEnglishSubtitle(name string) bool {
	lang, _ := ExtractLanguage(name)
	if lang != "" {
		return lang == "eng"
	}

	stem := strings.ToLower(trimKnownExt(name))
	return strings.Contains(stem, "english")
}

func splitTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		switch r {
		case '.', '_', '-', ' ', '(', ')', '[', ']':
			return true
		}
		return false
	})
}

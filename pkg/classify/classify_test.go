package classify

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentityEpisodes(t *testing.T) {
	tests := []struct {
		name    string
		show    string
		season  int
		episode int
	}{
		{"The.Walking.Dead.S03E07.1080p.WEB-DL.mkv", "The Walking Dead", 3, 7},
		{"breaking.bad.s01e01.720p.mkv", "Breaking Bad", 1, 1},
		{"Show Name - 2x05 - Title.avi", "Show Name", 2, 5},
		{"Some.Show.Season.1.Episode.12.mp4", "Some Show", 1, 12},
		{"NCIS.S10E02.HDTV.x264.mkv", "NCIS", 10, 2},
		{"Show_Name_S05E09_REPACK.mkv", "Show Name", 5, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ParseIdentity(tt.name)
			require.NotNil(t, id)
			assert.Equal(t, KindEpisode, id.Kind)
			assert.Equal(t, tt.show, id.Show)
			assert.Equal(t, tt.season, id.Season)
			assert.Equal(t, tt.episode, id.Episode)
		})
	}
}

func TestParseIdentityKeepsDescriptor(t *testing.T) {
	id := ParseIdentity("Show.S01E02.1080p.WEB-DL.x264-GROUP.mkv")
	require.NotNil(t, id)
	assert.Equal(t, "1080p.WEB-DL.x264-GROUP", id.Descriptor)
}

func TestParseIdentityMovies(t *testing.T) {
	tests := []struct {
		name  string
		title string
		year  int
	}{
		{"Inception (2010).mkv", "Inception", 2010},
		{"The.Matrix.1999.1080p.BluRay.x264-SPARKS.mkv", "The Matrix", 1999},
		{"Blade Runner 2049 (2017) [1080p].mp4", "Blade Runner 2049", 2017},
		{"old.movie.1955.DVDRip.avi", "Old Movie", 1955},
		{"Movie.Title.2020", "Movie Title", 2020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ParseIdentity(tt.name)
			require.NotNil(t, id)
			assert.Equal(t, KindMovie, id.Kind)
			assert.Equal(t, tt.title, id.Title)
			assert.Equal(t, tt.year, id.Year)
		})
	}
}

func TestParseIdentityMovieWithoutYear(t *testing.T) {
	id := ParseIdentity("Some.Movie.1080p.BluRay.mkv")
	require.NotNil(t, id)
	assert.Equal(t, KindMovie, id.Kind)
	assert.Equal(t, "Some Movie", id.Title)
	assert.Zero(t, id.Year)
}

func TestParseIdentityEpisodeBeatsMovieYear(t *testing.T) {
	id := ParseIdentity("Show.2019.S02E04.mkv")
	require.NotNil(t, id)
	assert.Equal(t, KindEpisode, id.Kind)
	assert.Equal(t, "Show", id.Show)
}

func TestParseIdentityResolutionIsNotEpisodeMarker(t *testing.T) {
	id := ParseIdentity("Big.Movie.2020.1920x1080.mkv")
	require.NotNil(t, id)
	assert.Equal(t, KindMovie, id.Kind)
	assert.Equal(t, 2020, id.Year)
}

func TestParseIdentityStripsNoisePrefixes(t *testing.T) {
	tests := []struct {
		name string
		show string
	}{
		{"[rartv]Show.S01E01.mkv", "Show"},
		{"www.Torrenting.com - Show.S01E01.mkv", "Show"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := ParseIdentity(tt.name)
			require.NotNil(t, id)
			assert.Equal(t, tt.show, id.Show)
		})
	}
}

func TestParseIdentityNormalizesUnicodeDashes(t *testing.T) {
	id := ParseIdentity("Show – 1x03.mkv")
	require.NotNil(t, id)
	assert.Equal(t, KindEpisode, id.Kind)
	assert.Equal(t, 1, id.Season)
	assert.Equal(t, 3, id.Episode)
}

func TestParseIdentityPreservesAcronyms(t *testing.T) {
	id := ParseIdentity("FBI.S04E11.720p.mkv")
	require.NotNil(t, id)
	assert.Equal(t, "FBI", id.Show)
}

func TestParseIdentityUnparseable(t *testing.T) {
	assert.Nil(t, ParseIdentity("0001.mkv"))
}

func TestClassifyCategories(t *testing.T) {
	root := filepath.FromSlash("/media")
	c := New(nil)

	tests := []struct {
		path     string
		category Category
	}{
		{"/media/Show.S01E01.mkv", CategoryVideo},
		{"/media/Show.S01E01.srt", CategorySubtitle},
		{"/media/release/sample.mkv", CategoryJunkSample},
		{"/media/release/Screens/shot.mkv", CategoryJunkSample},
		{"/media/release/release.rar", CategoryJunkArchive},
		{"/media/release/cover.jpg", CategoryJunkImage},
		{"/media/release/release.nfo", CategoryJunkMetadata},
		{"/media/.DS_Store", CategoryJunkMetadata},
		{"/media/release/Thumbs.db", CategoryJunkMetadata},
		{"/media/release/weird.xyz", CategoryUnknown},
		{"/media/0001.mkv", CategoryUnparseable},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			entry := c.Classify(filepath.FromSlash(tt.path), 100, root)
			assert.Equal(t, tt.category, entry.Category)
		})
	}
}

func TestClassifyKeepExtensionsOverride(t *testing.T) {
	rules := DefaultRules()
	rules.KeepExts[".nfo"] = true
	c := New(rules)

	entry := c.Classify(filepath.FromSlash("/media/release/info.nfo"), 10, filepath.FromSlash("/media"))
	assert.Equal(t, CategoryUnknown, entry.Category)
}

func TestClassifyParentFolderFallback(t *testing.T) {
	root := filepath.FromSlash("/media")
	c := New(nil)

	entry := c.Classify(filepath.FromSlash("/media/Show.S02E03.1080p.WEB-GRP/episode.mkv"), 100, root)
	require.Equal(t, CategoryVideo, entry.Category)
	require.NotNil(t, entry.Identity)
	assert.Equal(t, "Show", entry.Identity.Show)
	assert.Equal(t, 2, entry.Identity.Season)
	assert.Equal(t, 3, entry.Identity.Episode)
}

func TestClassifySubsFolderInheritsRelease(t *testing.T) {
	root := filepath.FromSlash("/media")
	c := New(nil)

	entry := c.Classify(filepath.FromSlash("/media/Movie.2020.1080p-GRP/Subs/english.srt"), 100, root)
	require.Equal(t, CategorySubtitle, entry.Category)
	require.NotNil(t, entry.Identity)
	assert.Equal(t, KindMovie, entry.Identity.Kind)
	assert.Equal(t, "Movie", entry.Identity.Title)
}

func TestIsReleaseFolder(t *testing.T) {
	assert.True(t, IsReleaseFolder("Movie.2020.1080p.BluRay.x264-SPARKS"))
	assert.True(t, IsReleaseFolder("Show.S01.COMPLETE.720p.WEBRip"))
	assert.True(t, IsReleaseFolder("Some Movie [YTS.MX]"))
	assert.False(t, IsReleaseFolder("Inception (2010)"))
	assert.False(t, IsReleaseFolder("Season 01"))
}

func TestInReleaseContext(t *testing.T) {
	root := filepath.FromSlash("/media")

	assert.True(t, InReleaseContext(filepath.FromSlash("/media/Movie.1080p.x264-GRP/movie.srt"), root))
	assert.True(t, InReleaseContext(filepath.FromSlash("/media/Movie.1080p.x264-GRP/Subs/spanish.srt"), root))
	assert.False(t, InReleaseContext(filepath.FromSlash("/media/movie.srt"), root))
	assert.False(t, InReleaseContext(filepath.FromSlash("/media/Inception (2010)/movie.srt"), root))
}

func TestExtractLanguage(t *testing.T) {
	tests := []struct {
		name      string
		lang      string
		modifiers []string
	}{
		{"Movie.2020.eng.srt", "eng", nil},
		{"Movie.2020.spa.srt", "spa", nil},
		{"2_English.srt", "eng", nil},
		{"Movie.eng.forced.srt", "eng", []string{"forced"}},
		{"Movie.en.sdh.srt", "eng", []string{"sdh"}},
		{"Movie.2020.srt", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lang, mods := ExtractLanguage(tt.name)
			assert.Equal(t, tt.lang, lang)
			assert.Equal(t, tt.modifiers, mods)
		})
	}
}

func TestIsEnglishSubtitle(t *testing.T) {
	assert.True(t, IsEnglishSubtitle("Movie.eng.srt"))
	assert.True(t, IsEnglishSubtitle("English.srt"))
	assert.False(t, IsEnglishSubtitle("Movie.spa.srt"))
	assert.False(t, IsEnglishSubtitle("Movie.2020.srt"))
}

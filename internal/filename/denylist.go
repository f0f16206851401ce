package filename

import "regexp"

// noisePatterns is the enumerated deny-list of video-scene release
// tokens stripped from a filename's residue before it becomes query text
// (spec.md §4.9 step 4). Expressed as a data-driven slice of regexes, in
// the style of the original Rust source's declarative noise-token list,
// so the list can grow without touching the extraction pipeline.
// Separators within a multi-part token (e.g. "DD5.1") are matched via a
// character class since noise stripping runs before the filename's own
// `.`/`_`/`-` separators are normalized to spaces.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b\d{3,4}p\b`), // 1080p, 720p, 480p
	regexp.MustCompile(`(?i)\bweb[._ -]?dl\b`),
	regexp.MustCompile(`(?i)\bweb[._ -]?rip\b`),
	regexp.MustCompile(`(?i)\bbluray\b`),
	regexp.MustCompile(`(?i)\bbrrip\b`),
	regexp.MustCompile(`(?i)\bdvdrip\b`),
	regexp.MustCompile(`(?i)\bhdtv\b`),
	regexp.MustCompile(`(?i)\bx264\b`),
	regexp.MustCompile(`(?i)\bx265\b`),
	regexp.MustCompile(`(?i)\bh[._ -]?264\b`),
	regexp.MustCompile(`(?i)\bh[._ -]?265\b`),
	regexp.MustCompile(`(?i)\bhevc\b`),
	regexp.MustCompile(`(?i)\bddp?[._ -]?\d[._ -]?\d\b`), // DD5.1, DDP5.1
	regexp.MustCompile(`(?i)\baac(2[._ -]?0)?\b`),
	regexp.MustCompile(`(?i)\bxvid\b`),
	regexp.MustCompile(`(?i)\bdivx\b`),
	regexp.MustCompile(`(?i)\bproper\b`),
	regexp.MustCompile(`(?i)\brepack\b`),
	regexp.MustCompile(`(?i)\bextended\b`),
	regexp.MustCompile(`(?i)\bunrated\b`),
	regexp.MustCompile(`(?i)\binternal\b`),
	regexp.MustCompile(`(?i)\blimited\b`),
}

// releaseGroupSuffix matches a trailing "-GROUPTAG" immediately before
// the (already-stripped) file extension, the scene convention for
// crediting the release group.
var releaseGroupSuffix = regexp.MustCompile(`-[A-Za-z0-9]+$`)

// stripNoise removes every deny-listed token from s, leaving the
// separators around each removed token as single spaces so later
// whitespace collapsing can clean them up.
func stripNoise(s string) string {
	for _, re := range noisePatterns {
		s = re.ReplaceAllString(s, " ")
	}
	return s
}

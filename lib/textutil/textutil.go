package textutil

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var innerWhitespace = regexp.MustCompile(`[\s\x{00a0}]+`)

// CleanFragment turns an HTML fragment into comparable plain text:
// tags are stripped (script and style bodies included), entities are
// decoded and whitespace runs are collapsed to single spaces.
//
// Entity escapes that fail to resolve are kept verbatim, malformed
// markup never produces an error.
func CleanFragment(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))

	var text strings.Builder
	skipDepth := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			// io.EOF or unrecoverable garbage, either way we
			// keep whatever text was collected
			return CollapseSpace(text.String())
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if isRawTextTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if isRawTextTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth == 0 {
				text.Write(tokenizer.Text())
			}
		}
	}
}

func isRawTextTag(name string) bool {
	return name == "script" || name == "style"
}

// CollapseSpace collapses internal whitespace runs (non-breaking
// spaces included) to single spaces and trims the ends.
func CollapseSpace(s string) string {
	return strings.TrimSpace(innerWhitespace.ReplaceAllString(s, " "))
}

var dashVariants = strings.NewReplacer("–", "-", "—", "-")

// NormalizeMatch canonicalizes already-extracted text for fuzzy
// comparison: lower-case, en/em dashes folded to plain hyphens,
// whitespace collapsed. A value that is nothing but a dash renders
// "no data" upstream and collapses to the empty string.
func NormalizeMatch(s string) string {
	s = CollapseSpace(dashVariants.Replace(s))
	s = strings.ToLower(s)
	if s == "-" {
		return ""
	}
	return s
}

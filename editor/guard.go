package editor

import (
	"html"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Merge-tag syntax used by mailing providers: {{first_name}}, *|FNAME|*.
var mergeTagRe = regexp.MustCompile(`\{\{[^{}]*\}\}|\*\|[^|]*\|\*`)

// overlapsMergeTag reports whether the match span [start, end) intersects
// a merge-tag token in text.
func overlapsMergeTag(text string, start, end int) bool {
	for _, m := range mergeTagRe.FindAllStringIndex(text, -1) {
		if start < m[1] && end > m[0] {
			return true
		}
	}
	return false
}

var stripPolicy = bluemonday.StrictPolicy()

// plainText strips any markup from a proposed replacement, so a
// collaborator can never inject elements through the replace string.
// Only text content is ever substituted into the document.
func plainText(s string) string {
	return html.UnescapeString(stripPolicy.Sanitize(s))
}

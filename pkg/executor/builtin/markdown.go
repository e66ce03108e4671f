package builtin

import (
	"regexp"
	"strings"
)

// Ordered Markdown-stripping transformations.
var (
	reFencedCode  = regexp.MustCompile("```[a-zA-Z0-9_-]*\n?([\\s\\S]*?)```")
	reInlineCode  = regexp.MustCompile("`([^`]*)`")
	reImage       = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	reLink        = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	reATXHeading  = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	reBold1       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reBold2       = regexp.MustCompile(`__([^_]+)__`)
	reItalic1     = regexp.MustCompile(`\*([^*]+)\*`)
	reItalic2     = regexp.MustCompile(`_([^_]+)_`)
	reStrike      = regexp.MustCompile(`~~([^~]+)~~`)
	reBlockquote  = regexp.MustCompile(`(?m)^\s*>\s?`)
	reListMarker  = regexp.MustCompile(`(?m)^\s*([-*+]|\d+\.)\s+`)
	reHR          = regexp.MustCompile(`(?m)^\s*(?:(?:-\s*){3,}|(?:\*\s*){3,}|(?:_\s*){3,})$`)
	reHTMLTag     = regexp.MustCompile(`<[^>]+>`)
	reEscape      = regexp.MustCompile(`\\([\\` + "`" + `*_{}\[\]()#+\-.!~>])`)
	reManyNewline = regexp.MustCompile(`\n{3,}`)
)

// MarkdownToText strips Markdown formatting down to plain text,
// idempotently: applying it twice equals applying it once.
func MarkdownToText(input string) string {
	s := input
	s = reFencedCode.ReplaceAllString(s, "$1")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reImage.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = reATXHeading.ReplaceAllString(s, "")
	s = reBold1.ReplaceAllString(s, "$1")
	s = reBold2.ReplaceAllString(s, "$1")
	s = reItalic1.ReplaceAllString(s, "$1")
	s = reItalic2.ReplaceAllString(s, "$1")
	s = reStrike.ReplaceAllString(s, "$1")
	s = reBlockquote.ReplaceAllString(s, "")
	s = reListMarker.ReplaceAllString(s, "")
	s = reHR.ReplaceAllString(s, "")
	s = reHTMLTag.ReplaceAllString(s, "")
	s = reEscape.ReplaceAllString(s, "$1")
	s = reManyNewline.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

package llm

import (
	"regexp"
	"strings"
)

var (
	codeBlockPattern     = regexp.MustCompile("(?s)```(?:([\\w+#.-]*)[ \\t]*\\r?\\n)?(.*?)```")
	squareBracketPattern = regexp.MustCompile(`\[([^\[\]]*)\]`)
)

// ExtractFirstCodeBlock returns the contents of the first fenced code block
// in text, or "" when there is none. With ignoreLanguage the language tag is
// dropped; otherwise it is kept as the first line.
func ExtractFirstCodeBlock(text string, ignoreLanguage bool) string {
	match := codeBlockPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}

	code := strings.TrimSpace(match[2])
	if ignoreLanguage || match[1] == "" {
		return code
	}
	return match[1] + "\n" + code
}

// ExtractFirstSquareBrackets returns the text inside the first [...] pair, or ""
func ExtractFirstSquareBrackets(text string) string {
	match := squareBracketPattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return match[1]
}

// StripString trims the prompt and every line in it
func StripString(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

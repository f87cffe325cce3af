package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// abbreviations that end with a period without ending a sentence
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true, "st": true,
	"jr": true, "sr": true, "vs": true, "etc": true, "e.g": true, "i.e": true,
	"inc": true, "ltd": true, "co": true, "no": true, "approx": true,
	"jan": true, "feb": true, "mar": true, "apr": true, "aug": true,
	"sept": true, "sep": true, "oct": true, "nov": true, "dec": true,
	"u.s": true, "u.k": true,
}

// PlainText returns the visible text of response. Responses that do not look
// like HTML are returned unchanged.
func PlainText(response string) string {
	trimmed := strings.TrimSpace(response)
	if !strings.HasPrefix(trimmed, "<") {
		return response
	}

	doc, err := html.Parse(strings.NewReader(trimmed))
	if err != nil {
		return response
	}
	return strings.TrimSpace(extractVisibleText(doc))
}

// extractVisibleText extracts text nodes from HTML, skipping scripts/styles
func extractVisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// SplitSentences splits text into sentences on ., ! and ? followed by
// whitespace. Blank lines and list items also end a sentence.
func SplitSentences(text string) []string {
	var sentences []string
	flush := func(s string) {
		s = strings.Join(strings.Fields(s), " ")
		if s != "" {
			sentences = append(sentences, s)
		}
	}

	for _, block := range splitBlocks(text) {
		var current strings.Builder
		for i, r := range block {
			current.WriteRune(r)
			if r != '.' && r != '!' && r != '?' {
				continue
			}

			next := i + utf8.RuneLen(r)
			if next < len(block) && !isSpace(block[next]) {
				continue
			}
			if r == '.' && isAbbreviation(current.String()) {
				continue
			}

			flush(current.String())
			current.Reset()
		}
		flush(current.String())
	}

	return sentences
}

// splitBlocks breaks text at blank lines and at markdown list markers
func splitBlocks(text string) []string {
	var blocks []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		item := listItem(trimmed)
		if trimmed == "" || item != trimmed {
			if len(current) > 0 {
				blocks = append(blocks, strings.Join(current, " "))
				current = nil
			}
		}
		if item != "" {
			current = append(current, item)
		}
	}
	if len(current) > 0 {
		blocks = append(blocks, strings.Join(current, " "))
	}
	return blocks
}

// listItem strips a leading "- ", "* " or "• " marker
func listItem(line string) string {
	for _, marker := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):])
		}
	}
	return line
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// isAbbreviation reports whether s ends with a known abbreviation or a
// single initial such as the "J." in "J. R. R. Tolkien".
func isAbbreviation(s string) bool {
	s = strings.TrimSuffix(s, ".")
	idx := strings.LastIndexFunc(s, unicode.IsSpace)
	word := s[idx+1:]
	word = strings.TrimLeft(word, "(\"'")

	if utf8.RuneCountInString(word) == 1 {
		r, _ := utf8.DecodeRuneInString(word)
		return unicode.IsUpper(r)
	}
	return abbreviations[strings.ToLower(word)]
}

// dedupe removes case-insensitive duplicates, keeping first-seen order
func dedupe(items []string) []string {
	seen := make(map[string]bool)
	var unique []string

	for _, item := range items {
		key := strings.ToLower(strings.TrimSpace(item))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, strings.TrimSpace(item))
	}

	return unique
}

package report

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var (
	urlPattern  = regexp.MustCompile(`https?://[^\s]+`)
	whitespace  = regexp.MustCompile(`\s+`)
	punctuation = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// Template words never make good keywords.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "to": {}, "in": {}, "for": {},
	"of": {}, "on": {}, "and": {}, "is": {}, "at": {}, "with": {},
	"report": {}, "latest": {}, "news": {}, "summary": {}, "trending": {},
}

// ExtractURLs returns the distinct http(s) URLs of input in order of appearance.
func ExtractURLs(input string) []string {
	matches := urlPattern.FindAllString(input, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var urls []string
	for _, u := range matches {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		urls = append(urls, u)
	}
	return urls
}

// CleanText unescapes HTML entities and drops URLs, punctuation and emoji,
// collapsing whitespace.
func CleanText(input string) string {
	if input == "" {
		return ""
	}
	out := html.UnescapeString(input)
	out = urlPattern.ReplaceAllString(out, " ")
	out = punctuation.ReplaceAllString(out, " ")
	out = whitespace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// ExtractKeywords returns up to limit of the most frequent words of text that
// are at least minLen runes long, ties broken alphabetically.
func ExtractKeywords(text string, limit, minLen int) []string {
	clean := strings.ToLower(CleanText(text))
	if clean == "" {
		return nil
	}

	freq := make(map[string]int)
	for _, token := range strings.Fields(clean) {
		token = strings.TrimFunc(token, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(token)) < minLen {
			continue
		}
		if _, skip := stopwords[token]; skip {
			continue
		}
		freq[token]++
	}
	if len(freq) == 0 {
		return nil
	}

	words := make([]string, 0, len(freq))
	for w := range freq {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		if freq[words[i]] == freq[words[j]] {
			return words[i] < words[j]
		}
		return freq[words[i]] > freq[words[j]]
	})

	if limit > 0 && limit < len(words) {
		words = words[:limit]
	}
	return words
}

// BuildDocumentID hashes the given fields into a stable identifier.
func BuildDocumentID(fields ...string) string {
	s := sha1.Sum([]byte(strings.Join(fields, "|")))
	return hex.EncodeToString(s[:])
}

package rules

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// KeywordSet is a case-insensitive, word-bounded set of terms.
// A trailing "*" makes a term a prefix ("evict*" matches "evicted").
type KeywordSet struct {
	terms []keyword
	any   *regexp.Regexp
}

type keyword struct {
	text string
	re   *regexp.Regexp
}

var quotes = strings.NewReplacer("’", "'", "‘", "'")

// NewKeywordSet compiles terms into a set
func NewKeywordSet(terms []string) (KeywordSet, error) {
	set := KeywordSet{}
	patterns := make([]string, 0, len(terms))

	for _, t := range terms {
		pattern, err := termPattern(t)
		if err != nil {
			return KeywordSet{}, err
		}
		set.terms = append(set.terms, keyword{
			text: strings.ToLower(strings.TrimSpace(t)),
			re:   regexp.MustCompile("(?i)" + pattern),
		})
		patterns = append(patterns, pattern)
	}

	if len(patterns) > 0 {
		set.any = regexp.MustCompile("(?i)(?:" + strings.Join(patterns, "|") + ")")
	}
	return set, nil
}

// MustKeywordSet is NewKeywordSet for literals; it panics on an invalid term
func MustKeywordSet(terms ...string) KeywordSet {
	set, err := NewKeywordSet(terms)
	if err != nil {
		panic(err)
	}
	return set
}

func termPattern(raw string) (string, error) {
	t := strings.ToLower(strings.TrimSpace(raw))
	prefix := strings.HasSuffix(t, "*")
	t = strings.TrimSpace(strings.TrimSuffix(t, "*"))
	if t == "" {
		return "", fmt.Errorf("empty keyword %q", raw)
	}
	if strings.Contains(t, "*") {
		return "", fmt.Errorf("keyword %q: \"*\" is only allowed at the end", raw)
	}

	words := strings.Fields(t)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(words, `\s+`)
	if prefix {
		body += `\w*`
	}

	runes := []rune(t)
	if isWord(runes[0]) {
		body = `\b` + body
	}
	if prefix || isWord(runes[len(runes)-1]) {
		body += `\b`
	}
	return body, nil
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// Match reports whether any term occurs in text
func (k KeywordSet) Match(text string) bool {
	if k.any == nil {
		return false
	}
	return k.any.MatchString(quotes.Replace(text))
}

// Find returns the terms occurring in text, in set order
func (k KeywordSet) Find(text string) []string {
	if k.any == nil {
		return nil
	}
	text = quotes.Replace(text)
	var found []string
	for _, t := range k.terms {
		if t.re.MatchString(text) {
			found = append(found, t.text)
		}
	}
	return found
}

// Terms returns the configured terms
func (k KeywordSet) Terms() []string {
	out := make([]string, len(k.terms))
	for i, t := range k.terms {
		out[i] = t.text
	}
	return out
}

// Empty reports whether the set has no terms
func (k KeywordSet) Empty() bool {
	return len(k.terms) == 0
}

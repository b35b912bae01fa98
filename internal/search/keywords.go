// Package search derives the denormalized keyword index stored on every vendor
// and tokenizes free-text queries against it.
package search

import (
	"regexp"
	"sort"
	"strings"
)

// MaxQueryTokens bounds the OR-match list of a keyword query.
const MaxQueryTokens = 10

var tokenSplitter = regexp.MustCompile(`[\s,./&]+`)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "the": {}, "of": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "with": {}, "by": {}, "from": {}, "or": {}, "is": {}, "are": {},
	"was": {}, "were": {}, "be": {}, "it": {}, "its": {}, "as": {}, "this": {}, "that": {},
	"we": {}, "our": {}, "you": {}, "your": {}, "all": {}, "any": {},
	// listing noise
	"per": {}, "more": {}, "age": {},
}

// ServiceText is the part of a service offering that feeds the index.
type ServiceText struct {
	Name        string
	Description string
}

// KeywordSource is the full set of fields the index is derived from. Callers
// building it for a partial update must merge the stored record first.
type KeywordSource struct {
	BusinessName string
	Category     string
	Description  string
	City         string
	Colony       string
	Services     []ServiceText
}

// IsStopWord reports whether token is excluded from the index.
func IsStopWord(token string) bool {
	_, ok := stopWords[token]
	return ok
}

// GenerateSearchKeywords returns the deduplicated, lower-cased, stop-word
// filtered tokens of src, sorted so that repeated calls produce equal slices.
func GenerateSearchKeywords(src KeywordSource) []string {
	set := make(map[string]struct{})

	fields := []string{src.BusinessName, src.Category, src.Description, src.City, src.Colony}
	for _, svc := range src.Services {
		fields = append(fields, svc.Name, svc.Description)
	}
	for _, field := range fields {
		addTokens(set, field)
	}

	keywords := make([]string, 0, len(set))
	for token := range set {
		keywords = append(keywords, token)
	}
	sort.Strings(keywords)
	return keywords
}

func addTokens(set map[string]struct{}, text string) {
	if text == "" {
		return
	}
	for _, token := range tokenSplitter.Split(strings.ToLower(text), -1) {
		if token == "" || IsStopWord(token) {
			continue
		}
		set[token] = struct{}{}
	}
}

// SearchTokens splits a user query on whitespace and keeps the first
// MaxQueryTokens lower-cased tokens. Stop words are not removed here.
func SearchTokens(query string) []string {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) > MaxQueryTokens {
		tokens = tokens[:MaxQueryTokens]
	}
	return tokens
}

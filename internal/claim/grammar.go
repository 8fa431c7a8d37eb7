package claim

import (
	"strings"
	"unicode"
)

// propertyRule maps claim keywords to the property a disjunctive claim compares
// A rule matches when every word in all is present and, if any is set, at least one of any
type propertyRule struct {
	all      []string
	any      []string
	property string
}

var propertyRules = []propertyRule{
	{any: []string{"older", "younger"}, property: "age"},
	{all: []string{"born"}, any: []string{"earlier", "later"}, property: "birth date"},
	{any: []string{"from", "england"}, property: "origin"},
	{any: []string{"members", "had more"}, property: "number of members"},
	{all: []string{"instrument", "ratio"}, property: "instrument-to-person ratio"},
	{any: []string{"ancestors"}, property: "ancestors"},
	{any: []string{"animation", "known for"}, property: "domain"},
}

// ExtractProperty returns the coarse property a disjunctive claim is about
func ExtractProperty(claim string) string {
	lower := strings.ToLower(claim)
	for _, rule := range propertyRules {
		if rule.matches(lower) {
			return rule.property
		}
	}
	return "attribute"
}

func (r propertyRule) matches(lower string) bool {
	for _, kw := range r.all {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	if len(r.any) == 0 {
		return true
	}
	for _, kw := range r.any {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// indefiniteArticle picks "an" before a vowel letter, "a" otherwise
func indefiniteArticle(phrase string) string {
	for _, r := range phrase {
		if strings.ContainsRune("aeiouAEIOU", r) {
			return "an"
		}
		return "a"
	}
	return "a"
}

// singularizePredicate turns the trailing common noun of a plural predicate
// into its singular so that "are both opera composers" reads "is an opera composer".
// Capitalized words are left alone ("from the United States").
func singularizePredicate(pred string) string {
	idx := strings.LastIndexByte(pred, ' ')
	head, last := "", pred
	if idx >= 0 {
		head, last = pred[:idx+1], pred[idx+1:]
	}
	return head + singularize(last)
}

func singularize(word string) string {
	if len(word) <= 3 {
		return word
	}
	for _, r := range word {
		if unicode.IsUpper(r) {
			return word
		}
		break
	}
	switch {
	case strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "sses"), strings.HasSuffix(word, "shes"),
		strings.HasSuffix(word, "ches"), strings.HasSuffix(word, "xes"), strings.HasSuffix(word, "zes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	}
	return word
}

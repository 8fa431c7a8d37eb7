// Package claim classifies factual claims as atomic or compound and splits
// compound claims into sub-claims that can be verified independently.
package claim

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ppiankov/entailrag/internal/model"
)

// compoundRule marks a claim as compound when its pattern matches anywhere
type compoundRule struct {
	name    string
	kind    model.ClaimKind
	pattern *regexp.Regexp
}

// template extracts sub-claims from a claim that matches its anchored pattern
type template struct {
	name    string
	pattern *regexp.Regexp
	extract func(groups []string, claim string) []string
}

// Decomposer holds the ordered rule tables
// Order matters: later rules are more general and would shadow earlier ones
type Decomposer struct {
	compound  []compoundRule
	templates []template
}

// NewDecomposer creates a decomposer with the built-in rule tables
func NewDecomposer() *Decomposer {
	return &Decomposer{
		compound: []compoundRule{
			{"and-share-same", model.ClaimKindConjunctive, regexp.MustCompile(`(?i)\band\b.*\bshare\s+the\s+same\b`)},
			{"and-both", model.ClaimKindConjunctive, regexp.MustCompile(`(?i)\band\b.*\bboth\b`)},
			{"and-located-same", model.ClaimKindConjunctive, regexp.MustCompile(`(?i)\band\b.*\blocated\s+in\s+the\s+same\b`)},
			{"and-same", model.ClaimKindConjunctive, regexp.MustCompile(`(?i)\band\b.*\bsame\b`)},
			{"one-of-or", model.ClaimKindDisjunctive, regexp.MustCompile(`(?i)\bone\s+of\s+.+\s+or\s+.+`)},
		},
		templates: []template{
			{
				name:    "share-the-same",
				pattern: regexp.MustCompile(`(?i)^(.+?)\s+and\s+(.+?)\s+share\s+the\s+same\s+(.+?)\.?$`),
				extract: func(g []string, _ string) []string {
					return []string{
						fmt.Sprintf("%s has %s", g[0], g[2]),
						fmt.Sprintf("%s has %s", g[1], g[2]),
					}
				},
			},
			{
				name:    "are-both",
				pattern: regexp.MustCompile(`(?i)^(.+?)\s+and\s+(.+?)\s+are\s+both\s+(.+?)\.?$`),
				extract: func(g []string, _ string) []string {
					pred := singularizePredicate(g[2])
					article := indefiniteArticle(pred)
					return []string{
						fmt.Sprintf("%s is %s %s", g[0], article, pred),
						fmt.Sprintf("%s is %s %s", g[1], article, pred),
					}
				},
			},
			{
				name:    "located-in-the-same",
				pattern: regexp.MustCompile(`(?i)^(.+?)\s+and\s+(.+?)\s+are\s+located\s+in\s+the\s+same\s+(.+?)\.?$`),
				extract: func(g []string, _ string) []string {
					return []string{
						fmt.Sprintf("%s is located in %s", g[0], g[2]),
						fmt.Sprintf("%s is located in %s", g[1], g[2]),
					}
				},
			},
			{
				name:    "are-the-same",
				pattern: regexp.MustCompile(`(?i)^(.+?)\s+and\s+(.+?)\s+are\s+the\s+same\s+(.+?)\.?$`),
				extract: func(g []string, _ string) []string {
					return []string{
						fmt.Sprintf("%s is %s", g[0], g[2]),
						fmt.Sprintf("%s is %s", g[1], g[2]),
					}
				},
			},
			{
				name:    "one-of-or",
				pattern: regexp.MustCompile(`(?i)^one\s+of\s+(.+?)\s+or\s+(.+?)\s+(?:is|was|has|have|had|does|do|did)\b.+`),
				extract: func(g []string, claim string) []string {
					prop := ExtractProperty(claim)
					return []string{
						fmt.Sprintf("There is information about %s %s.", prop, g[0]),
						fmt.Sprintf("There is information about %s %s.", prop, g[1]),
					}
				},
			},
		},
	}
}

// Kind returns the compound kind of the first matching rule, or atomic
func (d *Decomposer) Kind(claim string) model.ClaimKind {
	kind, _ := d.match(claim)
	return kind
}

// IsCompound reports whether any compound rule matches the claim
func (d *Decomposer) IsCompound(claim string) bool {
	return d.Kind(claim) != model.ClaimKindAtomic
}

// Rule returns the name of the compound rule that matched, or "" for atomic claims
func (d *Decomposer) Rule(claim string) string {
	_, name := d.match(claim)
	return name
}

func (d *Decomposer) match(claim string) (model.ClaimKind, string) {
	for _, rule := range d.compound {
		if rule.pattern.MatchString(claim) {
			return rule.kind, rule.name
		}
	}
	return model.ClaimKindAtomic, ""
}

// Decompose splits a claim using the first matching template
// It never fails: a claim no template understands is returned unchanged
func (d *Decomposer) Decompose(claim string) []string {
	text := strings.TrimSpace(claim)
	for _, tmpl := range d.templates {
		m := tmpl.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		groups := make([]string, len(m)-1)
		for i, g := range m[1:] {
			groups[i] = cleanSpan(g)
		}
		if hasEmpty(groups) {
			continue
		}
		return tmpl.extract(groups, text)
	}
	return []string{claim}
}

// Subclaims returns the decomposition for compound claims and [claim] otherwise
// This is the sub-claim set pipelines verify against
func (d *Decomposer) Subclaims(claim string) []string {
	if !d.IsCompound(claim) {
		return []string{claim}
	}
	return d.Decompose(claim)
}

// SubClaims is Subclaims with back references to the parent claim
func (d *Decomposer) SubClaims(parent *model.Claim) []model.SubClaim {
	texts := d.Subclaims(parent.Text)
	out := make([]model.SubClaim, len(texts))
	for i, t := range texts {
		out[i] = model.SubClaim{Text: t, Parent: parent}
	}
	return out
}

var defaultDecomposer = NewDecomposer()

// IsCompound reports whether claim is compound using the default rule tables
func IsCompound(claim string) bool { return defaultDecomposer.IsCompound(claim) }

// Decompose splits claim using the default rule tables
func Decompose(claim string) []string { return defaultDecomposer.Decompose(claim) }

// Subclaims returns the verification set for claim using the default rule tables
func Subclaims(claim string) []string { return defaultDecomposer.Subclaims(claim) }

// cleanSpan trims surrounding whitespace and one trailing period
func cleanSpan(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}

func hasEmpty(groups []string) bool {
	for _, g := range groups {
		if g == "" {
			return true
		}
	}
	return false
}

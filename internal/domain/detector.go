// Package domain classifies questions into specialized sub-domains the base
// dataset does not label explicitly (wildlife trafficking, deforestation).
// Detection is deterministic and local: weighted term matching over the
// accent-folded question, no model calls.
package domain

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Tag identifies a sub-domain.
type Tag string

const (
	TagGeneral       Tag = "general"
	TagBiopiracy     Tag = "biopiracy"
	TagDeforestation Tag = "deforestation"
)

// Classification is the per-question result. Confidence is in [0,1];
// RewriteHint is non-empty only for specialized tags.
type Classification struct {
	Tag          Tag      `json:"tag"`
	Confidence   float64  `json:"confidence"`
	RewriteHint  string   `json:"rewrite_hint,omitempty"`
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

type weightedTerm struct {
	Term   string
	Weight int
}

type domainTable struct {
	Tag   Tag
	Terms []weightedTerm
	Hint  string
}

// Detector holds the read-only term tables. Safe for unsynchronized
// concurrent use.
type Detector struct {
	tables []domainTable
}

func NewDetector() *Detector {
	return &Detector{tables: domainTables}
}

// Classify scores the question against every domain table and returns the
// best match. A tie between specialized domains resolves to general: a wrong
// rewrite hint corrupts the prompt, so false negatives are the cheaper error.
func (d *Detector) Classify(question string) Classification {
	folded := Normalize(question)

	best := Classification{Tag: TagGeneral, Confidence: 0}
	bestScore := 0
	tied := false

	for _, table := range d.tables {
		score := 0
		var matched []string
		for _, wt := range table.Terms {
			if strings.Contains(folded, wt.Term) {
				score += wt.Weight
				matched = append(matched, wt.Term)
			}
		}
		if score == 0 {
			continue
		}
		switch {
		case score > bestScore:
			bestScore = score
			tied = false
			best = Classification{
				Tag:          table.Tag,
				Confidence:   confidence(score),
				RewriteHint:  table.Hint,
				MatchedTerms: matched,
			}
		case score == bestScore:
			tied = true
		}
	}

	if tied {
		return Classification{Tag: TagGeneral, Confidence: 0}
	}
	sort.Strings(best.MatchedTerms)
	return best
}

// Force returns the classification for an explicitly requested tag, used by
// callers with dedicated per-domain views. Unknown tags resolve to general.
func (d *Detector) Force(tag Tag) Classification {
	for _, table := range d.tables {
		if table.Tag == tag {
			return Classification{Tag: tag, Confidence: 1, RewriteHint: table.Hint}
		}
	}
	return Classification{Tag: TagGeneral, Confidence: 0}
}

// confidence maps a raw weight sum into [0,1). A single strong term
// (weight 3) yields 0.6; a single weak term (weight 1) yields 0.33 and stays
// under the default 0.5 threshold.
func confidence(score int) float64 {
	return float64(score) / float64(score+2)
}

// Normalize lowercases and accent-folds text for term matching. Brazilian
// Portuguese questions arrive with inconsistent accents ("tráfico" vs
// "trafico"); folding makes the term tables insensitive to that.
func Normalize(s string) string {
	lowered := strings.ToLower(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, lowered)
	if err != nil {
		return lowered
	}
	return folded
}

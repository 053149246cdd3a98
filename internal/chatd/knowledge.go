package chatd

import (
	_ "embed"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var knowledgeYAML []byte

// Source is a citation attached to an answer.
type Source struct {
	Title string `json:"title" yaml:"title"`
	Page  int    `json:"page,omitempty" yaml:"page,omitempty"`
}

type localized struct {
	ES string `yaml:"es"`
	EN string `yaml:"en"`
}

func (l localized) pick(lang string) string {
	if lang == "en" && l.EN != "" {
		return l.EN
	}
	return l.ES
}

type knowledgeEntry struct {
	ID       string    `yaml:"id"`
	Keywords []string  `yaml:"keywords"`
	Answer   localized `yaml:"answer"`
	Sources  []Source  `yaml:"sources"`

	terms map[string]struct{}
}

// KnowledgeBase answers questions by keyword overlap.
type KnowledgeBase struct {
	Fallback localized        `yaml:"fallback"`
	Entries  []knowledgeEntry `yaml:"entries"`
}

// LoadKnowledgeBase parses a knowledge base document.
func LoadKnowledgeBase(data []byte) (*KnowledgeBase, error) {
	var kb KnowledgeBase
	if err := yaml.Unmarshal(data, &kb); err != nil {
		return nil, fmt.Errorf("parse knowledge base: %w", err)
	}
	if kb.Fallback.ES == "" {
		return nil, fmt.Errorf("knowledge base fallback answer is required")
	}
	for i := range kb.Entries {
		e := &kb.Entries[i]
		if e.Answer.ES == "" {
			return nil, fmt.Errorf("knowledge entry %q: answer is required", e.ID)
		}
		e.terms = make(map[string]struct{}, len(e.Keywords))
		for _, kw := range e.Keywords {
			if term := foldText(kw); term != "" {
				e.terms[term] = struct{}{}
			}
		}
	}
	return &kb, nil
}

// DefaultKnowledgeBase returns the embedded tax knowledge base.
func DefaultKnowledgeBase() (*KnowledgeBase, error) {
	return LoadKnowledgeBase(knowledgeYAML)
}

// Answer returns the best matching answer; ties go to the earlier entry.
func (kb *KnowledgeBase) Answer(question, lang string) (string, []Source) {
	words := tokenize(question)
	best, bestScore := -1, 0
	for i, e := range kb.Entries {
		score := 0
		for _, w := range words {
			if _, ok := e.terms[w]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return kb.Fallback.pick(lang), nil
	}
	e := kb.Entries[best]
	return e.Answer.pick(lang), append([]Source(nil), e.Sources...)
}

// foldText lower-cases and strips diacritics.
func foldText(s string) string {
	// Transformers carry state, so each call builds its own chain.
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return folded
}

func tokenize(s string) []string {
	return strings.FieldsFunc(foldText(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

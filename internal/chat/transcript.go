// Package chat implements the chat demo client widget.
package chat

import (
	"fmt"
	"time"
)

// Author identifies who wrote a transcript entry.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// Source is a citation returned with an answer.
type Source struct {
	Title string `json:"title"`
	Page  *int   `json:"page,omitempty"`
}

// Label renders the source for display, e.g. "Doc A (pág. 3)".
// A missing or zero page renders the title alone.
func (s Source) Label(locale Locale) string {
	if s.Page == nil || *s.Page == 0 {
		return s.Title
	}
	return fmt.Sprintf("%s (%s %d)", s.Title, locale.pageAbbrev(), *s.Page)
}

// Entry is one transcript line.
type Entry struct {
	ID        string
	Author    Author
	Content   string
	Sources   []Source
	Timestamp time.Time
}

// SourceLabels renders every source of the entry.
func (e Entry) SourceLabels(locale Locale) []string {
	if len(e.Sources) == 0 {
		return nil
	}
	labels := make([]string, len(e.Sources))
	for i, src := range e.Sources {
		labels[i] = src.Label(locale)
	}
	return labels
}

func cloneEntries(in []Entry) []Entry {
	out := make([]Entry, len(in))
	for i, e := range in {
		out[i] = e
		if len(e.Sources) > 0 {
			out[i].Sources = append([]Source(nil), e.Sources...)
		}
	}
	return out
}

// Package answer holds a respondent's in-memory answers and the codec that
// packs them into the single delimited string a submission is stored as.
package answer

import (
	"slices"
	"strings"

	"github.com/mbolis/form-flow/model"
)

// Answer is the value a respondent gave to one question.
//
// Single choice answers carry zero or one position, multiple choice answers
// a set of positions kept sorted ascending, and free text answers Text,
// trimmed.
type Answer struct {
	Kind      model.Kind
	Positions []int
	Text      string
}

// Empty is the unanswered value for a question of the given kind.
func Empty(kind model.Kind) Answer {
	return Answer{Kind: kind}
}

// Single selects pos. Positions below 1 mean nothing is selected.
func Single(pos int) Answer {
	if pos < 1 {
		return Answer{Kind: model.SingleChoice}
	}
	return Answer{Kind: model.SingleChoice, Positions: []int{pos}}
}

// Multiple selects positions, dropping duplicates and non-positive values.
func Multiple(positions ...int) Answer {
	return Answer{Kind: model.MultipleChoice, Positions: normalize(positions)}
}

func Text(s string) Answer {
	return Answer{Kind: model.FreeText, Text: strings.TrimSpace(s)}
}

// Toggle returns a copy of a multiple choice answer with pos checked or unchecked.
func (a Answer) Toggle(pos int, checked bool) Answer {
	positions := slices.Clone(a.Positions)
	if checked {
		positions = append(positions, pos)
	} else {
		positions = slices.DeleteFunc(positions, func(p int) bool { return p == pos })
	}
	return Multiple(positions...)
}

// Selected returns the chosen position of a single choice answer.
func (a Answer) Selected() (int, bool) {
	if len(a.Positions) == 0 {
		return 0, false
	}
	return a.Positions[0], true
}

// Blank reports whether nothing was answered.
func (a Answer) Blank() bool {
	if a.Kind.AcceptsText() {
		return strings.TrimSpace(a.Text) == ""
	}
	return len(a.Positions) == 0
}

func (a Answer) Equal(b Answer) bool {
	if a.Kind != b.Kind || a.Text != b.Text {
		return false
	}
	return slices.Equal(normalize(a.Positions), normalize(b.Positions))
}

func normalize(positions []int) []int {
	if len(positions) == 0 {
		return nil
	}
	out := make([]int, 0, len(positions))
	for _, p := range positions {
		if p > 0 {
			out = append(out, p)
		}
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

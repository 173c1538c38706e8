package model

import (
	"fmt"
	"slices"
	"strings"

	"github.com/goccy/go-json"
)

type Kind string

// OptionSep joins option labels in a question's wire body.
const OptionSep = ","

const (
	SingleChoice   Kind = "single"
	MultipleChoice Kind = "multiple"
	FreeText       Kind = "text"
)

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown question type %q", s)
	}
	return k, nil
}

func (k Kind) Valid() bool {
	switch k {
	case SingleChoice, MultipleChoice, FreeText:
		return true
	}
	return false
}

// HasOptions reports whether answers to k select among positioned options.
func (k Kind) HasOptions() bool {
	return k == SingleChoice || k == MultipleChoice
}

// AcceptsText reports whether answers to k are free-form text.
func (k Kind) AcceptsText() bool {
	return k == FreeText
}

// Question is one authored prompt. Options are addressed by their 1-based
// position, which is the value carried by answers and statistics.
type Question struct {
	ID      ID
	Order   int
	Kind    Kind
	Prompt  string
	Options []string
}

// InvalidQuestion reports a question that cannot be rendered or saved.
type InvalidQuestion struct {
	Order  int
	Reason string
}

func (e *InvalidQuestion) Error() string {
	if e.Order > 0 {
		return fmt.Sprintf("question %d: %s", e.Order, e.Reason)
	}
	return "question: " + e.Reason
}

// ParseOptions splits a comma-joined option body into trimmed labels.
func ParseOptions(body string) []string {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	opts := strings.Split(body, OptionSep)
	for i, o := range opts {
		opts[i] = strings.TrimSpace(o)
	}
	return opts
}

// NewQuestion builds a validated question. Options are ignored for FreeText.
func NewQuestion(kind Kind, prompt string, body string) (Question, error) {
	q := Question{
		Kind:   kind,
		Prompt: strings.TrimSpace(prompt),
	}
	if kind.HasOptions() {
		q.Options = ParseOptions(body)
	}
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

func (q Question) Validate() error {
	invalid := func(format string, args ...any) error {
		return &InvalidQuestion{Order: q.Order, Reason: fmt.Sprintf(format, args...)}
	}

	if !q.Kind.Valid() {
		return invalid("unknown question type %q", string(q.Kind))
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return invalid("prompt is blank")
	}
	if q.Kind.HasOptions() {
		if len(q.Options) == 0 {
			return invalid("%s choice question has no options", q.Kind)
		}
		for i, o := range q.Options {
			if strings.TrimSpace(o) == "" {
				return invalid("option %d is blank", i+1)
			}
			// labels must survive Body and ParseOptions unchanged
			if strings.Contains(o, OptionSep) {
				return invalid("option %d contains %q", i+1, OptionSep)
			}
		}
	}
	return nil
}

// Option returns the label at the 1-based position pos.
func (q Question) Option(pos int) (string, bool) {
	if pos < 1 || pos > len(q.Options) {
		return "", false
	}
	return q.Options[pos-1], true
}

// Body is the comma-joined option list sent over the wire.
func (q Question) Body() string {
	if !q.Kind.HasOptions() {
		return ""
	}
	return strings.Join(q.Options, OptionSep)
}

type questionJSON struct {
	ID     ID     `json:"id,omitempty"`
	Order  int    `json:"question_order"`
	Prompt string `json:"description"`
	Kind   Kind   `json:"type"`
	Body   string `json:"body"`
}

func (q Question) MarshalJSON() ([]byte, error) {
	return json.Marshal(questionJSON{
		ID:     q.ID,
		Order:  q.Order,
		Prompt: q.Prompt,
		Kind:   q.Kind,
		Body:   q.Body(),
	})
}

func (q *Question) UnmarshalJSON(b []byte) error {
	var w questionJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*q = Question{
		ID:     w.ID,
		Order:  w.Order,
		Kind:   Kind(strings.ToLower(strings.TrimSpace(string(w.Kind)))),
		Prompt: strings.TrimSpace(w.Prompt),
	}
	if q.Kind.HasOptions() {
		q.Options = ParseOptions(w.Body)
	}
	return nil
}

// SortByOrder returns a copy of qs in ascending order.
func SortByOrder(qs []Question) []Question {
	sorted := slices.Clone(qs)
	slices.SortStableFunc(sorted, func(a, b Question) int {
		return a.Order - b.Order
	})
	return sorted
}

// AssignOrder numbers questions 1..n by position when none carries an order.
func AssignOrder(qs []Question) {
	for _, q := range qs {
		if q.Order != 0 {
			return
		}
	}
	for i := range qs {
		qs[i].Order = i + 1
	}
}

package answer

import (
	"strconv"
	"strings"

	"github.com/mbolis/form-flow/model"
)

const (
	QuestionSep = ";"
	OptionSep   = ","
)

// Codec converts answers to and from the submission string.
//
// One token is written per question, in ascending question order, joined
// by QuestionSep. Choice tokens are decimal option positions (multiple
// choice ones sorted and joined by OptionSep), free text tokens the trimmed
// text. With Escape unset, free text is written verbatim and a text holding
// a separator will not decode; with Escape set, `\`, `;` and `,` inside
// free text are backslash-escaped.
type Codec struct {
	Escape bool
}

var (
	Legacy  = Codec{}
	Escaped = Codec{Escape: true}
)

var (
	escaper   = strings.NewReplacer(`\`, `\\`, QuestionSep, `\`+QuestionSep, OptionSep, `\`+OptionSep)
	separator = QuestionSep[0]
)

// Token encodes a single answer for a question of the given kind.
func (c Codec) Token(kind model.Kind, a Answer) string {
	switch kind {
	case model.SingleChoice:
		if pos, ok := a.Selected(); ok {
			return strconv.Itoa(pos)
		}
		return ""
	case model.MultipleChoice:
		positions := normalize(a.Positions)
		parts := make([]string, len(positions))
		for i, p := range positions {
			parts[i] = strconv.Itoa(p)
		}
		return strings.Join(parts, OptionSep)
	case model.FreeText:
		text := strings.TrimSpace(a.Text)
		if c.Escape {
			return escaper.Replace(text)
		}
		return text
	}
	return ""
}

// Check is the pre-submit gate: every free text answer must be non-blank.
// Other kinds may be left unanswered.
func (c Codec) Check(qs []model.Question, answers map[model.ID]Answer) error {
	for _, q := range model.SortByOrder(qs) {
		if !q.Kind.AcceptsText() {
			continue
		}
		if a, ok := answers[q.ID]; !ok || a.Blank() {
			return &ValidationError{
				Reason:     ReasonMissingText,
				QuestionID: q.ID,
				Order:      q.Order,
				Prompt:     q.Prompt,
			}
		}
	}
	return nil
}

// Encode checks and serializes the answers to qs, keyed by question id.
func (c Codec) Encode(qs []model.Question, answers map[model.ID]Answer) (string, error) {
	if err := c.Check(qs, answers); err != nil {
		return "", err
	}

	sorted := model.SortByOrder(qs)
	tokens := make([]string, len(sorted))
	for i, q := range sorted {
		tokens[i] = c.Token(q.Kind, answers[q.ID])
	}
	return strings.Join(tokens, QuestionSep), nil
}

// Decode splits s back into one answer per question, in ascending question
// order. Multiple choice positions come back sorted.
func (c Codec) Decode(qs []model.Question, s string) ([]Answer, error) {
	sorted := model.SortByOrder(qs)
	if len(sorted) == 0 {
		if s != "" {
			return nil, &DecodeError{Reason: "answers given for a survey without questions"}
		}
		return nil, nil
	}

	tokens := c.split(s, separator)
	if len(tokens) != len(sorted) {
		return nil, &DecodeError{
			Reason: "expected " + strconv.Itoa(len(sorted)) + " answers, got " + strconv.Itoa(len(tokens)),
		}
	}

	answers := make([]Answer, len(sorted))
	for i, q := range sorted {
		a, err := c.decodeToken(q, tokens[i])
		if err != nil {
			return nil, err
		}
		answers[i] = a
	}
	return answers, nil
}

// Validate decodes s and checks it is a complete, in-range submission.
func (c Codec) Validate(qs []model.Question, s string) error {
	answers, err := c.Decode(qs, s)
	if err != nil {
		return err
	}

	for i, q := range model.SortByOrder(qs) {
		a := answers[i]
		switch {
		case q.Kind.AcceptsText() && a.Blank():
			return &ValidationError{Reason: ReasonMissingText, QuestionID: q.ID, Order: q.Order, Prompt: q.Prompt}
		case q.Kind.HasOptions():
			for _, p := range a.Positions {
				if _, ok := q.Option(p); !ok {
					return &ValidationError{
						Reason:     "option " + strconv.Itoa(p) + " does not exist",
						QuestionID: q.ID,
						Order:      q.Order,
						Prompt:     q.Prompt,
					}
				}
			}
		}
	}
	return nil
}

func (c Codec) decodeToken(q model.Question, token string) (Answer, error) {
	fail := func(reason string) error {
		return &DecodeError{Order: q.Order, Token: token, Reason: reason}
	}

	switch q.Kind {
	case model.SingleChoice:
		if token == "" {
			return Empty(q.Kind), nil
		}
		pos, err := strconv.Atoi(token)
		if err != nil || pos < 1 {
			return Answer{}, fail("not an option position")
		}
		return Single(pos), nil
	case model.MultipleChoice:
		if token == "" {
			return Empty(q.Kind), nil
		}
		parts := strings.Split(token, OptionSep)
		positions := make([]int, len(parts))
		for i, part := range parts {
			pos, err := strconv.Atoi(part)
			if err != nil || pos < 1 {
				return Answer{}, fail("not a list of option positions")
			}
			positions[i] = pos
		}
		return Multiple(positions...), nil
	case model.FreeText:
		if c.Escape {
			token = unescape(token)
		}
		return Answer{Kind: model.FreeText, Text: token}, nil
	}
	return Answer{}, fail("unknown question type")
}

func (c Codec) split(s string, sep byte) []string {
	if !c.Escape {
		return strings.Split(s, string(sep))
	}

	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case sep:
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	return append(parts, s[start:])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

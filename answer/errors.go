package answer

import (
	"fmt"

	"github.com/mbolis/form-flow/model"
)

const ReasonMissingText = "missing text answer"

// ValidationError blocks a submission until the respondent corrects it.
type ValidationError struct {
	Reason     string
	QuestionID model.ID
	Order      int
	Prompt     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s (question %d)", e.Reason, e.Order)
}

// Message is the text shown to the respondent.
func (e *ValidationError) Message() string {
	if e.Reason == ReasonMissingText {
		return fmt.Sprintf("Please fill out the text question: %q", e.Prompt)
	}
	return fmt.Sprintf("Please check question %d: %s", e.Order, e.Reason)
}

// DecodeError reports a stored answer string that does not fit its survey.
type DecodeError struct {
	Order  int
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	if e.Order == 0 {
		return "decode answers: " + e.Reason
	}
	return fmt.Sprintf("decode answers: question %d (%q): %s", e.Order, e.Token, e.Reason)
}

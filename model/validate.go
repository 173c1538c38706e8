package model

import (
	"errors"
	"strings"

	"github.com/hashicorp/go-multierror"
)

var ErrBlankTitle = errors.New("survey title is blank")

// ValidateSurvey collects every authoring problem of a survey so that all of
// them can be shown at once. Question orders must run 1..n without gaps.
func ValidateSurvey(title string, qs []Question) error {
	var result *multierror.Error

	if strings.TrimSpace(title) == "" {
		result = multierror.Append(result, ErrBlankTitle)
	}

	for _, q := range qs {
		if err := q.Validate(); err != nil {
			result = multierror.Append(result, err)
		}
	}

	for i, q := range SortByOrder(qs) {
		if q.Order != i+1 {
			result = multierror.Append(result, &InvalidQuestion{
				Order:  q.Order,
				Reason: "question order must be unique and contiguous from 1",
			})
			break
		}
	}

	return result.ErrorOrNil()
}

// Problems flattens an error returned by ValidateSurvey into messages.
func Problems(err error) []string {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		msgs := make([]string, len(merr.Errors))
		for i, e := range merr.Errors {
			msgs[i] = e.Error()
		}
		return msgs
	}
	return []string{err.Error()}
}

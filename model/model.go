package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is a backend-assigned identifier. Clients have historically sent
// survey ids both as JSON numbers and as numeric strings (taken from a URL),
// so both forms are accepted.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", b)
	}
	*id = ID(n)
	return nil
}

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

type Survey struct {
	ID             ID         `json:"surveyId"`
	Version        int        `json:"version"`
	Owner          string     `json:"owner"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	EscapedAnswers bool       `json:"escapedAnswers"`
	Questions      []Question `json:"questions"`
}

// SurveySummary is the catalog entry of a survey.
type SurveySummary struct {
	ID          ID     `json:"surveyId"`
	Name        string `json:"surveyName"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
}

type Submission struct {
	ID       ID        `json:"submissionId"`
	SurveyID ID        `json:"surveyId"`
	Username string    `json:"username"`
	Time     time.Time `json:"time"`
	Answers  string    `json:"answers"`
}

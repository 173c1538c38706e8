// Package client calls the survey backend on behalf of a signed-in user.
//
// There is no ambient session: every call that needs one takes a Session
// value, sent both as a bearer header and as the sessionToken body field.
// Every failure to get a usable answer from the backend is a
// *TransportError.
package client

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/mbolis/form-flow/model"
)

// Session is the credential of a signed-in user.
type Session struct {
	Username     string
	Token        string
	RefreshToken string
	Expires      time.Time
}

func (s Session) Valid() bool {
	return s.Token != ""
}

// TransportError is a failed backend call: the request could not be sent,
// the backend answered with a non-2xx status, or the response body could
// not be decoded.
type TransportError struct {
	Op       string
	Status   int
	Message  string
	Problems []string
	Err      error
}

func (e *TransportError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Status != 0 {
		b.WriteString(": ")
		b.WriteString(http.StatusText(e.Status))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var terr *TransportError
	if errors.As(err, &terr) {
		return terr.Status
	}
	return 0
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the backend at baseURL. A nil hc uses a client
// with a 30 second timeout.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
	}
}

type errorBody struct {
	Message  string   `json:"message"`
	Problems []string `json:"problems"`
}

// call posts in as JSON to path and decodes the response into out, when
// out is not nil.
func (c *Client) call(ctx context.Context, op, path string, session *Session, in, out any) error {
	body, err := json.Marshal(in)
	if err == nil && session != nil {
		body, err = withSessionToken(body, session.Token)
	}
	if err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "encode request")}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "new request")}
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")
	if session != nil {
		req.Header.Set("authorization", "Bearer "+session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: errors.Wrap(err, "send request")}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: errors.Wrap(err, "read response")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &TransportError{Op: op, Status: resp.StatusCode}
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && (eb.Message != "" || len(eb.Problems) > 0) {
			terr.Message = eb.Message
			terr.Problems = eb.Problems
		} else {
			terr.Message = strings.TrimSpace(string(raw))
		}
		return terr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err = json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: op, Status: resp.StatusCode, Err: errors.Wrapf(err, "decode %s response", path)}
	}
	return nil
}

// withSessionToken adds the sessionToken field to a JSON object body.
func withSessionToken(body []byte, token string) ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	raw, err := json.Marshal(token)
	if err != nil {
		return nil, err
	}
	fields["sessionToken"] = raw
	return json.Marshal(fields)
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

func (r loginResponse) session(username string) Session {
	s := Session{
		Username:     username,
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
	}
	if r.ExpiresIn > 0 {
		s.Expires = time.Now().Add(time.Duration(r.ExpiresIn) * time.Second)
	}
	return s
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.call(ctx, "register", "/user/register", nil, credentials{username, password}, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (Session, error) {
	var resp loginResponse
	err := c.call(ctx, "login", "/user/login", nil, credentials{username, password}, &resp)
	if err != nil {
		return Session{}, err
	}
	if !resp.Success || resp.Token == "" {
		return Session{}, &TransportError{Op: "login", Message: resp.Message}
	}
	return resp.session(username), nil
}

// Refresh exchanges the refresh token of s for a new session.
func (c *Client) Refresh(ctx context.Context, s Session) (Session, error) {
	var resp loginResponse
	err := c.call(ctx, "refresh", "/user/refresh", nil, map[string]string{"refreshToken": s.RefreshToken}, &resp)
	if err != nil {
		return Session{}, err
	}
	if !resp.Success || resp.Token == "" {
		return Session{}, &TransportError{Op: "refresh", Message: resp.Message}
	}
	return resp.session(s.Username), nil
}

// SurveyPage is one page of the survey catalog, already corrected by the
// backend when the requested page was past the end.
type SurveyPage struct {
	Surveys    []model.SurveySummary `json:"surveys"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"totalPages"`
	PageSize   int                   `json:"pageSize"`
}

func (c *Client) Surveys(ctx context.Context, s Session, page int, mine bool) (SurveyPage, error) {
	var resp SurveyPage
	err := c.call(ctx, "list_surveys", "/survey/list", &s, map[string]any{"page": page, "mine": mine}, &resp)
	return resp, err
}

type surveyIdRequest struct {
	SurveyID model.ID `json:"surveyId"`
}

func (c *Client) SurveyDetail(ctx context.Context, s Session, id model.ID) (model.Survey, error) {
	var resp model.Survey
	err := c.call(ctx, "get_survey_detail", "/survey/get_survey_detail", &s, surveyIdRequest{id}, &resp)
	return resp, err
}

type surveyRequest struct {
	SurveyID    model.ID         `json:"surveyId,omitempty"`
	Version     int              `json:"version,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Questions   []model.Question `json:"questions"`
}

func (c *Client) CreateSurvey(ctx context.Context, s Session, title, description string, qs []model.Question) (model.ID, error) {
	var resp struct {
		SurveyID model.ID `json:"surveyId"`
	}
	err := c.call(ctx, "create_survey", "/survey/create", &s, surveyRequest{
		Title:       title,
		Description: description,
		Questions:   qs,
	}, &resp)
	return resp.SurveyID, err
}

// UpdateQuestions replaces the questions of survey, failing with a 409
// status when the survey changed since survey.Version was read.
func (c *Client) UpdateQuestions(ctx context.Context, s Session, survey model.Survey) error {
	return c.call(ctx, "update_questions", "/survey/update_questions", &s, surveyRequest{
		SurveyID:    survey.ID,
		Version:     survey.Version,
		Title:       survey.Title,
		Description: survey.Description,
		Questions:   survey.Questions,
	}, nil)
}

func (c *Client) DeleteSurvey(ctx context.Context, s Session, id model.ID) error {
	return c.call(ctx, "delete_survey", "/survey/delete", &s, surveyIdRequest{id}, nil)
}

// Submit sends the encoded answers of one respondent.
func (c *Client) Submit(ctx context.Context, s Session, id model.ID, answers string) (model.ID, error) {
	var resp struct {
		SubmissionID model.ID `json:"submissionId"`
	}
	err := c.call(ctx, "take_survey", "/take/take_survey", &s, map[string]any{
		"surveyId": id,
		"answers":  answers,
	}, &resp)
	return resp.SubmissionID, err
}

func (c *Client) Stats(ctx context.Context, s Session, id model.ID) (model.TallyReport, error) {
	var resp struct {
		Stats model.TallyReport `json:"stats"`
	}
	err := c.call(ctx, "get_survey_stats", "/take/get_survey_stats", &s, surveyIdRequest{id}, &resp)
	return resp.Stats, err
}

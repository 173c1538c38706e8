package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/form-flow/model"
)

// backend serves canned bodies by path and records the last request.
type backend struct {
	status map[string]int
	bodies map[string]string

	lastPath string
	lastAuth string
	lastBody string
}

func (b *backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	b.lastPath = r.URL.Path
	b.lastAuth = r.Header.Get("authorization")
	b.lastBody = string(raw)

	status, ok := b.status[r.URL.Path]
	if !ok {
		status = http.StatusOK
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, b.bodies[r.URL.Path])
}

func newBackend(t *testing.T) (*backend, *Client) {
	t.Helper()
	b := &backend{status: map[string]int{}, bodies: map[string]string{}}
	srv := httptest.NewServer(b)
	t.Cleanup(srv.Close)
	return b, New(srv.URL+"/", srv.Client())
}

var session = Session{Username: "alice", Token: "t0k3n"}

func TestLogin(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["/user/login"] = `{"success":true,"token":"abc","refreshToken":"def","expiresIn":3600}`

	s, err := c.Login(context.Background(), "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, "abc", s.Token)
	assert.Equal(t, "def", s.RefreshToken)
	assert.False(t, s.Expires.IsZero())
	assert.True(t, s.Valid())
	assert.JSONEq(t, `{"username":"alice","password":"secret"}`, b.lastBody, "no session before login")
	assert.Empty(t, b.lastAuth)
}

func TestLoginRejected(t *testing.T) {
	b, c := newBackend(t)
	b.status["/user/login"] = http.StatusUnauthorized
	b.bodies["/user/login"] = `{"success":false,"message":"Invalid credentials"}`

	_, err := c.Login(context.Background(), "alice", "wrong")
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusUnauthorized, terr.Status)
	assert.Equal(t, "Invalid credentials", terr.Message)
}

func TestSessionIsSentExplicitly(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["/survey/list"] = `{"surveys":[{"surveyId":3,"surveyName":"Lunch","owner":"bob"}],"page":2,"totalPages":2,"pageSize":8}`

	page, err := c.Surveys(context.Background(), session, 5, true)
	require.NoError(t, err)
	assert.Equal(t, "Bearer t0k3n", b.lastAuth)
	assert.JSONEq(t, `{"sessionToken":"t0k3n","page":5,"mine":true}`, b.lastBody)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Surveys, 1)
	assert.Equal(t, model.ID(3), page.Surveys[0].ID)
	assert.Equal(t, "Lunch", page.Surveys[0].Name)
}

func TestSurveyDetail(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["/survey/get_survey_detail"] = `{
		"surveyId": 7, "version": 2, "owner": "alice", "title": "Poll", "escapedAnswers": true,
		"questions": [
			{"id": 11, "question_order": 2, "description": "Why?", "type": "text", "body": ""},
			{"id": 10, "question_order": 1, "description": "Pick", "type": "single", "body": "A,B"}
		]
	}`

	survey, err := c.SurveyDetail(context.Background(), session, 7)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sessionToken":"t0k3n","surveyId":7}`, b.lastBody)
	assert.Equal(t, 2, survey.Version)
	assert.True(t, survey.EscapedAnswers)
	require.Len(t, survey.Questions, 2)
	assert.Equal(t, []string{"A", "B"}, survey.Questions[1].Options)
	assert.Equal(t, model.FreeText, survey.Questions[0].Kind)
}

func TestStatsKeepKeyOrder(t *testing.T) {
	b, c := newBackend(t)
	b.bodies["/take/get_survey_stats"] = `{"stats":[{"question_order":1,"stats":{"2":4,"1":3,"9":1}}]}`

	report, err := c.Stats(context.Background(), session, 7)
	require.NoError(t, err)
	tally, ok := report.For(1)
	require.True(t, ok)
	assert.Equal(t, []string{"2", "1", "9"}, tally.Keys())
}

func TestSubmit(t *testing.T) {
	b, c := newBackend(t)
	b.status["/take/take_survey"] = http.StatusCreated
	b.bodies["/take/take_survey"] = `{"submissionId":42}`

	id, err := c.Submit(context.Background(), session, 7, "2;1,3;hello")
	require.NoError(t, err)
	assert.Equal(t, model.ID(42), id)
	assert.JSONEq(t, `{"sessionToken":"t0k3n","surveyId":7,"answers":"2;1,3;hello"}`, b.lastBody)
}

func TestTransportErrors(t *testing.T) {
	t.Run("problems are carried", func(t *testing.T) {
		b, c := newBackend(t)
		b.status["/survey/create"] = http.StatusBadRequest
		b.bodies["/survey/create"] = `{"success":false,"message":"invalid survey","problems":["survey title is blank"]}`

		_, err := c.CreateSurvey(context.Background(), session, "", "", nil)
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "invalid survey", terr.Message)
		assert.Equal(t, []string{"survey title is blank"}, terr.Problems)
		assert.Equal(t, http.StatusBadRequest, StatusOf(err))
	})

	t.Run("plain text body", func(t *testing.T) {
		b, c := newBackend(t)
		b.status["/survey/delete"] = http.StatusForbidden
		b.bodies["/survey/delete"] = "Forbidden\n"

		err := c.DeleteSurvey(context.Background(), session, 7)
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, "Forbidden", terr.Message)
		assert.Equal(t, http.StatusForbidden, StatusOf(err))
	})

	t.Run("undecodable body", func(t *testing.T) {
		b, c := newBackend(t)
		b.bodies["/take/get_survey_stats"] = `{"stats":[{"question_order":1,"stats":[1,2]}]}`

		_, err := c.Stats(context.Background(), session, 7)
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, http.StatusOK, terr.Status)
		assert.Error(t, terr.Err)
	})

	t.Run("unreachable backend", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		c := New(srv.URL, nil)
		srv.Close()

		_, err := c.SurveyDetail(context.Background(), session, 1)
		var terr *TransportError
		require.ErrorAs(t, err, &terr)
		assert.Zero(t, terr.Status)
		assert.Zero(t, StatusOf(errors.New("other")))
	})

	t.Run("cancelled context", func(t *testing.T) {
		_, c := newBackend(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := c.Surveys(ctx, session, 1, false)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

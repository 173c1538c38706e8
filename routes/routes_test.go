package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/oauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbolis/form-flow/app"
	"github.com/mbolis/form-flow/config"
	"github.com/mbolis/form-flow/database"
	"github.com/mbolis/form-flow/httpx"
	"github.com/mbolis/form-flow/log"
)

func init() {
	log.SetOutput(io.Discard)
}

func newTestApp(t *testing.T) app.App {
	t.Helper()

	cfg := config.Config{
		DBUrl:       filepath.Join(t.TempDir(), "test.sqlite"),
		TokenSecret: "test-secret",
		TokenTTL:    time.Hour,
		PageSize:    2,
	}
	db, err := database.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return app.App{DB: db, BearerServer: httpx.NewBearerServer(db, cfg), Config: cfg}
}

func addUser(t *testing.T, a app.App, username string) {
	t.Helper()
	hash, err := httpx.HashPassword("password")
	require.NoError(t, err)
	_, err = a.Exec(`INSERT INTO user (username, password_hash) VALUES (?, ?)`, username, hash)
	require.NoError(t, err)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("content-type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// as calls h directly with a session already resolved to username.
func as(t *testing.T, username string, h http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(b))
	req = req.WithContext(context.WithValue(req.Context(), oauth.CredentialContext, username))
	w := httptest.NewRecorder()
	h(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "body: %s", w.Body.String())
	return v
}

var sampleQuestions = []map[string]any{
	{"question_order": 1, "description": "Single", "type": "single", "body": "A,B,C"},
	{"question_order": 2, "description": "Multiple", "type": "multiple", "body": "X, Y, Z"},
	{"question_order": 3, "description": "Text", "type": "text", "body": ""},
}

func createSurvey(t *testing.T, a app.App, owner string) int64 {
	t.Helper()
	w := as(t, owner, CreateSurvey(a), map[string]any{
		"title":       "Sample",
		"description": "A sample survey",
		"questions":   sampleQuestions,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct {
		SurveyID int64 `json:"surveyId"`
	}](t, w).SurveyID
}

func TestCreateSurvey(t *testing.T) {
	a := newTestApp(t)
	addUser(t, a, "alice")

	t.Run("valid", func(t *testing.T) {
		id := createSurvey(t, a, "alice")
		assert.NotZero(t, id)

		w := as(t, "alice", GetSurveyDetail(a), map[string]any{"surveyId": id})
		require.Equal(t, http.StatusOK, w.Code)

		type surveyDetail struct {
			Title     string `json:"title"`
			Owner     string `json:"owner"`
			Questions []struct {
				ID    int64  `json:"id"`
				Order int    `json:"question_order"`
				Type  string `json:"type"`
				Body  string `json:"body"`
			} `json:"questions"`
		}
		detail := decode[surveyDetail](t, w)
		assert.Equal(t, "Sample", detail.Title)
		assert.Equal(t, "alice", detail.Owner)
		require.Len(t, detail.Questions, 3)
		assert.Equal(t, "X,Y,Z", detail.Questions[1].Body)
		assert.Equal(t, "text", detail.Questions[2].Type)
		assert.NotZero(t, detail.Questions[0].ID)
	})

	t.Run("invalid questions are all reported", func(t *testing.T) {
		w := as(t, "alice", CreateSurvey(a), map[string]any{
			"title": "",
			"questions": []map[string]any{
				{"description": "No options", "type": "single", "body": ""},
				{"description": " ", "type": "text"},
			},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		resp := decode[httpx.ErrorResponse](t, w)
		assert.Len(t, resp.Problems, 3)
	})

	t.Run("survey id as string", func(t *testing.T) {
		id := createSurvey(t, a, "alice")
		w := as(t, "alice", GetSurveyDetail(a), map[string]any{"surveyId": strconv.FormatInt(id, 10)})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown survey", func(t *testing.T) {
		w := as(t, "alice", GetSurveyDetail(a), map[string]any{"surveyId": 999})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestUpdateQuestions(t *testing.T) {
	a := newTestApp(t)
	addUser(t, a, "alice")
	addUser(t, a, "bob")
	id := createSurvey(t, a, "alice")

	replacement := []map[string]any{
		{"description": "Only", "type": "single", "body": "Yes,No"},
	}

	w := as(t, "bob", UpdateQuestions(a), map[string]any{"surveyId": id, "questions": replacement})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = as(t, "alice", UpdateQuestions(a), map[string]any{"surveyId": id, "version": 7, "questions": replacement})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = as(t, "alice", UpdateQuestions(a), map[string]any{"surveyId": id, "version": 1, "questions": replacement})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	var count, version int
	require.NoError(t, a.QueryRow(`SELECT COUNT(*) FROM question WHERE survey_id = ?`, id).Scan(&count))
	require.NoError(t, a.QueryRow(`SELECT version FROM survey WHERE id = ?`, id).Scan(&version))
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, version)
}

func TestTakeSurveyAndStats(t *testing.T) {
	a := newTestApp(t)
	for _, u := range []string{"alice", "bob", "carol", "dave"} {
		addUser(t, a, u)
	}
	id := createSurvey(t, a, "alice")

	for user, answers := range map[string]string{
		"bob":   "2;1,3;hello",
		"carol": "2;3;hi",
		"dave":  ";;quiet",
	} {
		w := as(t, user, TakeSurvey(a), map[string]any{"surveyId": id, "answers": answers})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	t.Run("second submission conflicts", func(t *testing.T) {
		w := as(t, "bob", TakeSurvey(a), map[string]any{"surveyId": id, "answers": "1;1;again"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("blank text rejected", func(t *testing.T) {
		w := as(t, "alice", TakeSurvey(a), map[string]any{"surveyId": id, "answers": "1;1; "})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode[httpx.ErrorResponse](t, w).Message, "Please fill out the text question")
	})

	t.Run("wrong token count rejected", func(t *testing.T) {
		w := as(t, "alice", TakeSurvey(a), map[string]any{"surveyId": id, "answers": "1;1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("stats are owner only", func(t *testing.T) {
		w := as(t, "bob", GetSurveyStats(a), map[string]any{"surveyId": id})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("stats keep option order", func(t *testing.T) {
		w := as(t, "alice", GetSurveyStats(a), map[string]any{"surveyId": id})
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"stats":[
			{"question_order":1,"stats":{"1":0,"2":2,"3":0}},
			{"question_order":2,"stats":{"1":1,"2":0,"3":2}}
		]}`, w.Body.String())
	})
}

func TestListSurveys(t *testing.T) {
	a := newTestApp(t)
	addUser(t, a, "alice")
	addUser(t, a, "bob")
	for i := 0; i < 3; i++ {
		createSurvey(t, a, "alice")
	}
	createSurvey(t, a, "bob")

	type listed struct {
		Surveys []struct {
			ID    int64  `json:"surveyId"`
			Name  string `json:"surveyName"`
			Owner string `json:"owner"`
		} `json:"surveys"`
		Page       int `json:"page"`
		TotalPages int `json:"totalPages"`
	}

	w := as(t, "bob", ListSurveys(a), map[string]any{"page": 2})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[listed](t, w)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Len(t, resp.Surveys, 2)

	w = as(t, "bob", ListSurveys(a), map[string]any{"page": 5, "mine": true})
	resp = decode[listed](t, w)
	assert.Equal(t, 1, resp.Page, "page past the end is corrected")
	assert.Equal(t, 1, resp.TotalPages)
	require.Len(t, resp.Surveys, 1)
	assert.Equal(t, "bob", resp.Surveys[0].Owner)

	addUser(t, a, "erin")
	w = as(t, "erin", ListSurveys(a), map[string]any{"mine": true})
	resp = decode[listed](t, w)
	assert.Equal(t, 1, resp.TotalPages)
	assert.NotNil(t, resp.Surveys)
	assert.Empty(t, resp.Surveys)
}

func TestDeleteSurvey(t *testing.T) {
	a := newTestApp(t)
	addUser(t, a, "alice")
	addUser(t, a, "bob")
	id := createSurvey(t, a, "alice")

	w := as(t, "bob", DeleteSurvey(a), map[string]any{"surveyId": id})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = as(t, "alice", DeleteSurvey(a), map[string]any{"surveyId": id})
	assert.Equal(t, http.StatusNoContent, w.Code)

	var count int
	require.NoError(t, a.QueryRow(`SELECT COUNT(*) FROM question WHERE survey_id = ?`, id).Scan(&count))
	assert.Zero(t, count)

	w = as(t, "alice", DeleteSurvey(a), map[string]any{"surveyId": id})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionFlow(t *testing.T) {
	a := newTestApp(t)
	h := Wire(a)

	w := postJSON(t, h, "/user/register", map[string]any{"username": "alice", "password": "s3cret!"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(t, h, "/user/register", map[string]any{"username": "alice", "password": "another"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(t, h, "/user/login", map[string]any{"username": "alice", "password": "wrong!!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, h, "/user/login", map[string]any{"username": "alice", "password": "s3cret!"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	login := decode[struct {
		Success      bool   `json:"success"`
		Token        string `json:"token"`
		RefreshToken string `json:"refreshToken"`
	}](t, w)
	require.True(t, login.Success)
	require.NotEmpty(t, login.Token)

	w = postJSON(t, h, "/survey/list", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, h, "/survey/create", map[string]any{
		"sessionToken": login.Token,
		"title":        "Flow",
		"questions":    sampleQuestions,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode[struct {
		SurveyID int64 `json:"surveyId"`
	}](t, w).SurveyID

	w = postJSON(t, h, "/take/take_survey", map[string]any{
		"sessionToken": login.Token,
		"surveyId":     strconv.FormatInt(id, 10),
		"answers":      "2;1,3;hello",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = postJSON(t, h, "/take/get_survey_stats", map[string]any{
		"sessionToken": login.Token,
		"surveyId":     id,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"stats":{"1":0,"2":1,"3":0}`)

	if login.RefreshToken != "" {
		w = postJSON(t, h, "/user/refresh", map[string]any{"refreshToken": login.RefreshToken})
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
}

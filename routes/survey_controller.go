package routes

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"

	"github.com/mbolis/form-flow/app"
	"github.com/mbolis/form-flow/httpx"
	"github.com/mbolis/form-flow/log"
	"github.com/mbolis/form-flow/model"
	"github.com/mbolis/form-flow/pager"
	"github.com/mbolis/form-flow/routes/middlewares"
)

type surveyRequest struct {
	SurveyID    model.ID         `json:"surveyId"`
	Version     int              `json:"version"`
	Title       *string          `json:"title"`
	SurveyName  *string          `json:"surveyName"`
	Description *string          `json:"description"`
	Questions   []model.Question `json:"questions"`
}

func (req surveyRequest) title() *string {
	if req.Title != nil {
		return req.Title
	}
	return req.SurveyName
}

type surveyIdRequest struct {
	SurveyID model.ID `json:"surveyId"`
}

func CreateSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := surveyRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		var title, description string
		if t := req.title(); t != nil {
			title = strings.TrimSpace(*t)
		}
		if req.Description != nil {
			description = strings.TrimSpace(*req.Description)
		}

		model.AssignOrder(req.Questions)
		if err = model.ValidateSurvey(title, req.Questions); err != nil {
			httpx.LogInvalid(w, r, "survey.create.invalid", "invalid survey", model.Problems(err))
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		var surveyId model.ID
		err = tx.QueryRowContext(r.Context(), `
			INSERT INTO survey (owner, title, description) VALUES (?, ?, ?)
			RETURNING id`,
			middlewares.User(r),
			title,
			description,
		).Scan(&surveyId)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey", err)
			return
		}

		err = insertQuestions(r.Context(), tx, surveyId, req.Questions)
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey.questions", err)
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.insert_survey.commit", err)
			return
		}

		log.WithFields(log.Fields{"survey": surveyId, "owner": middlewares.User(r)}).Info("survey.created")
		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"surveyId": surveyId,
		})
	}
}

// UpdateQuestions replaces every question of a survey. Stored questions are
// never edited in place; replacements get new ids.
func UpdateQuestions(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := surveyRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		tx, err := app.BeginTx(r.Context(), nil)
		if err != nil {
			httpx.LogInternalError(w, "db.begin_tx", err)
			return
		}
		defer tx.Rollback()

		survey, err := loadSurvey(r.Context(), tx, req.SurveyID)
		if errors.Is(err, errNotFound) {
			httpx.LogNotFound(w, "update_questions", req.SurveyID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.update_questions.get_survey", err)
			return
		}
		if survey.Owner != middlewares.User(r) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "update_questions.not_owner")
			return
		}

		if t := req.title(); t != nil {
			survey.Title = strings.TrimSpace(*t)
		}
		if req.Description != nil {
			survey.Description = strings.TrimSpace(*req.Description)
		}

		model.AssignOrder(req.Questions)
		if err = model.ValidateSurvey(survey.Title, req.Questions); err != nil {
			httpx.LogInvalid(w, r, "survey.update_questions.invalid", "invalid survey", model.Problems(err))
			return
		}

		// delete all questions
		_, err = tx.ExecContext(r.Context(), `
			DELETE FROM question
			WHERE survey_id = ?`,
			req.SurveyID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_questions.delete", err)
			return
		}

		// recreate all questions
		err = insertQuestions(r.Context(), tx, req.SurveyID, req.Questions)
		if err != nil {
			httpx.LogInternalError(w, "db.update_questions.insert", err)
			return
		}

		// a zero version skips the optimistic lock
		res, err := tx.ExecContext(r.Context(), `
			UPDATE survey
			SET
				title = ?,
				description = ?,
				version = version+1
			WHERE id = ?
				AND (? = 0 OR version = ?)`,
			survey.Title,
			survey.Description,
			req.SurveyID,
			req.Version,
			req.Version,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.update_questions.survey", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.update_questions.verify", err)
			return
		}
		if n < 1 {
			httpx.LogStatus(w, http.StatusConflict, log.DebugLevel, "db.update_questions.verify.conflict")
			return
		}

		err = tx.Commit()
		if err != nil {
			httpx.LogInternalError(w, "db.update_questions.commit", err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := surveyIdRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		var owner string
		err = app.QueryRowContext(r.Context(), `
			SELECT owner FROM survey WHERE id = ?`,
			req.SurveyID,
		).Scan(&owner)
		if err != nil {
			httpx.LogNotFound(w, "delete_survey", req.SurveyID)
			return
		}
		if owner != middlewares.User(r) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "delete_survey.not_owner")
			return
		}

		// questions and submissions cascade
		res, err := app.ExecContext(r.Context(), `
			DELETE FROM survey WHERE id = ? AND owner = ?`,
			req.SurveyID,
			owner,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey", err)
			return
		}
		n, err := res.RowsAffected()
		if err != nil {
			httpx.LogInternalError(w, "db.delete_survey.verify", err)
			return
		}
		if n < 1 {
			httpx.LogNotFound(w, "delete_survey", req.SurveyID)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func GetSurveyDetail(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := surveyIdRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		survey, err := loadSurvey(r.Context(), app.DB, req.SurveyID)
		if errors.Is(err, errNotFound) {
			httpx.LogNotFound(w, "get_survey_detail", req.SurveyID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey_detail", err)
			return
		}
		survey.EscapedAnswers = app.EscapeAnswers

		render.JSON(w, r, survey)
	}
}

type listRequest struct {
	Page int  `json:"page"`
	Mine bool `json:"mine"`
}

type listResponse struct {
	Surveys    []model.SurveySummary `json:"surveys"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"totalPages"`
	PageSize   int                   `json:"pageSize"`
}

// ListSurveys pages through the catalog in creation order. A page past the
// end is answered with the last page.
func ListSurveys(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := listRequest{Page: 1}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil && !errors.Is(err, io.EOF) {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		owner := ""
		if req.Mine {
			owner = middlewares.User(r)
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT s.id, s.title, s.description, s.owner
			FROM survey s
			WHERE ? = '' OR s.owner = ?
			ORDER BY s.id`,
			owner,
			owner,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.list_surveys", err)
			return
		}
		defer rows.Close()

		surveys := []model.SurveySummary{}
		for rows.Next() {
			s := model.SurveySummary{}
			err = rows.Scan(&s.ID, &s.Name, &s.Description, &s.Owner)
			if err != nil {
				httpx.LogInternalError(w, "db.list_surveys.scan", err)
				return
			}
			surveys = append(surveys, s)
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, "db.list_surveys.rows", err)
			return
		}

		page := pager.Paginate(surveys, app.PageSize, req.Page)
		render.JSON(w, r, listResponse{
			Surveys:    page.Items,
			Page:       page.Current,
			TotalPages: page.Total,
			PageSize:   page.Size,
		})
	}
}

package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"github.com/mbolis/form-flow/answer"
	"github.com/mbolis/form-flow/app"
	"github.com/mbolis/form-flow/httpx"
	"github.com/mbolis/form-flow/log"
	"github.com/mbolis/form-flow/model"
	"github.com/mbolis/form-flow/routes/middlewares"
	"github.com/mbolis/form-flow/stats"
)

type takeRequest struct {
	SurveyID model.ID `json:"surveyId"`
	Answers  string   `json:"answers"`
}

// TakeSurvey stores one respondent's encoded answers. Each user may answer a
// survey once.
func TakeSurvey(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := takeRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		survey, err := loadSurvey(r.Context(), app.DB, req.SurveyID)
		if errors.Is(err, errNotFound) {
			httpx.LogNotFound(w, "take_survey", req.SurveyID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.take_survey.get_survey", err)
			return
		}

		err = app.Codec().Validate(survey.Questions, req.Answers)
		var verr *answer.ValidationError
		var derr *answer.DecodeError
		switch {
		case errors.As(err, &verr):
			httpx.LogInvalid(w, r, "take_survey.invalid", verr.Message(), []string{verr.Error()})
			return
		case errors.As(err, &derr):
			httpx.LogInvalid(w, r, "take_survey.decode", "answers do not match the survey", []string{derr.Error()})
			return
		case err != nil:
			httpx.LogInternalError(w, "take_survey.validate", err)
			return
		}

		var submissionId model.ID
		err = app.QueryRowContext(r.Context(), `
			INSERT INTO submission (survey_id, username, time, answers) VALUES (?, ?, ?, ?)
			RETURNING id`,
			req.SurveyID,
			middlewares.User(r),
			time.Now().UTC(),
			req.Answers,
		).Scan(&submissionId)
		if isConstraintViolation(err) {
			httpx.LogStatusMsg(w, http.StatusConflict, log.DebugLevel, "take_survey.already_submitted", "survey %d was already answered", req.SurveyID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.insert_submission", err)
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, map[string]any{
			"submissionId": submissionId,
		})
	}
}

// GetSurveyStats aggregates the submissions of a survey into option tallies.
// Only the survey's owner may read them.
func GetSurveyStats(app app.App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := surveyIdRequest{}
		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			httpx.LogStatus(w, http.StatusBadRequest, log.DebugLevel, "request.parse_body")
			return
		}

		survey, err := loadSurvey(r.Context(), app.DB, req.SurveyID)
		if errors.Is(err, errNotFound) {
			httpx.LogNotFound(w, "get_survey_stats", req.SurveyID)
			return
		}
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey_stats.get_survey", err)
			return
		}
		if survey.Owner != middlewares.User(r) {
			httpx.LogStatus(w, http.StatusForbidden, log.DebugLevel, "get_survey_stats.not_owner")
			return
		}

		rows, err := app.QueryContext(r.Context(), `
			SELECT id, answers
			FROM submission
			WHERE survey_id = ?
			ORDER BY id`,
			req.SurveyID,
		)
		if err != nil {
			httpx.LogInternalError(w, "db.get_survey_stats", err)
			return
		}
		defer rows.Close()

		agg := stats.NewAggregator(survey.Questions, app.Codec())
		for rows.Next() {
			var submissionId model.ID
			var answers string
			err = rows.Scan(&submissionId, &answers)
			if err != nil {
				httpx.LogInternalError(w, "db.get_survey_stats.scan", err)
				return
			}
			if err = agg.Add(answers); err != nil {
				log.WithFields(log.Fields{"survey": req.SurveyID, "submission": submissionId}).
					Warnf("get_survey_stats.skip: %s", err)
			}
		}
		if err = rows.Err(); err != nil {
			httpx.LogInternalError(w, "db.get_survey_stats.rows", err)
			return
		}

		render.JSON(w, r, map[string]any{
			"stats": agg.Report(),
		})
	}
}

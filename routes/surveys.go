package routes

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/mbolis/form-flow/model"
)

var errNotFound = errors.New("not found")

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// loadSurvey reads a survey and its questions in ascending order.
func loadSurvey(ctx context.Context, q querier, surveyId model.ID) (model.Survey, error) {
	survey := model.Survey{ID: surveyId, Questions: []model.Question{}}
	err := q.QueryRowContext(ctx, `
		SELECT version, owner, title, description
		FROM survey
		WHERE id = ?`,
		surveyId,
	).Scan(&survey.Version, &survey.Owner, &survey.Title, &survey.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return survey, errNotFound
	}
	if err != nil {
		return survey, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, question_order, type, description, body
		FROM question
		WHERE survey_id = ?
		ORDER BY question_order`,
		surveyId,
	)
	if err != nil {
		return survey, err
	}
	defer rows.Close()

	for rows.Next() {
		var qn model.Question
		var kind, body string
		err = rows.Scan(&qn.ID, &qn.Order, &kind, &qn.Prompt, &body)
		if err != nil {
			return survey, err
		}
		qn.Kind = model.Kind(kind)
		if qn.Kind.HasOptions() {
			qn.Options = model.ParseOptions(body)
		}
		survey.Questions = append(survey.Questions, qn)
	}
	return survey, rows.Err()
}

func insertQuestions(ctx context.Context, tx *sql.Tx, surveyId model.ID, qs []model.Question) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO question (survey_id, question_order, type, description, body)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range model.SortByOrder(qs) {
		_, err = stmt.ExecContext(ctx, surveyId, q.Order, string(q.Kind), q.Prompt, q.Body())
		if err != nil {
			return err
		}
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

package view

import (
	"context"
	"net/http"

	"github.com/pkg/errors"

	"github.com/mbolis/form-flow/answer"
	"github.com/mbolis/form-flow/client"
	"github.com/mbolis/form-flow/model"
)

var (
	ErrNotLoaded      = errors.New("survey not loaded")
	ErrNoSuchQuestion = errors.New("no such question")
	ErrWrongKind      = errors.New("answer does not fit the question type")
	ErrNoSuchOption   = errors.New("no such option")
)

// Fillout is the form a respondent answers. Answers stay here until Submit
// sends them.
type Fillout struct {
	lifecycle
	backend  Backend
	session  client.Session
	surveyID model.ID

	survey    model.Survey
	questions []model.Question
	codec     answer.Codec
	answers   map[model.ID]answer.Answer
	loaded    bool
	submitted model.ID
}

func NewFillout(backend Backend, session client.Session, surveyID model.ID) *Fillout {
	f := &Fillout{
		backend:  backend,
		session:  session,
		surveyID: surveyID,
		codec:    answer.Legacy,
		answers:  map[model.ID]answer.Answer{},
	}
	f.init("fillout")
	return f
}

// Load fetches the survey and resets every answer.
func (f *Fillout) Load(ctx context.Context) error {
	t := f.begin()
	survey, err := f.backend.SurveyDetail(ctx, f.session, f.surveyID)
	if err != nil {
		f.fail(t, "load", "Could not load the survey.", err)
		return err
	}
	f.apply(t, "load", func() {
		f.survey = survey
		f.questions = model.SortByOrder(survey.Questions)
		f.codec = answer.Legacy
		if survey.EscapedAnswers {
			f.codec = answer.Escaped
		}
		f.answers = make(map[model.ID]answer.Answer, len(f.questions))
		for _, q := range f.questions {
			f.answers[q.ID] = answer.Empty(q.Kind)
		}
		f.loaded = true
		f.notice = ""
	})
	return nil
}

func (f *Fillout) Survey() model.Survey {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.survey
}

// Questions are in display order.
func (f *Fillout) Questions() []model.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.SortByOrder(f.questions)
}

func (f *Fillout) Answer(id model.ID) answer.Answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.answers[id]
}

// SetSingle selects pos for a single choice question; 0 clears it.
func (f *Fillout) SetSingle(id model.ID, pos int) error {
	return f.update(id, model.SingleChoice, func(q model.Question, a answer.Answer) (answer.Answer, error) {
		if pos != 0 {
			if _, ok := q.Option(pos); !ok {
				return a, errors.Wrapf(ErrNoSuchOption, "question %d option %d", q.Order, pos)
			}
		}
		return answer.Single(pos), nil
	})
}

// Toggle checks or unchecks pos of a multiple choice question.
func (f *Fillout) Toggle(id model.ID, pos int, checked bool) error {
	return f.update(id, model.MultipleChoice, func(q model.Question, a answer.Answer) (answer.Answer, error) {
		if _, ok := q.Option(pos); !ok {
			return a, errors.Wrapf(ErrNoSuchOption, "question %d option %d", q.Order, pos)
		}
		return a.Toggle(pos, checked), nil
	})
}

func (f *Fillout) SetText(id model.ID, text string) error {
	return f.update(id, model.FreeText, func(_ model.Question, _ answer.Answer) (answer.Answer, error) {
		return answer.Text(text), nil
	})
}

func (f *Fillout) update(id model.ID, kind model.Kind, fn func(model.Question, answer.Answer) (answer.Answer, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.loaded {
		return ErrNotLoaded
	}

	for _, q := range f.questions {
		if q.ID != id {
			continue
		}
		if q.Kind != kind {
			return errors.Wrapf(ErrWrongKind, "question %d is %s", q.Order, q.Kind)
		}
		a, err := fn(q, f.answers[id])
		if err != nil {
			return err
		}
		f.answers[id] = a
		return nil
	}
	return errors.Wrapf(ErrNoSuchQuestion, "id %s", id)
}

// Encoded is the submission string of the current answers.
func (f *Fillout) Encoded() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codec.Encode(f.questions, f.answers)
}

// Submit sends the answers. A blank text answer is reported as an
// *answer.ValidationError and nothing is sent.
func (f *Fillout) Submit(ctx context.Context) (model.ID, error) {
	f.mu.Lock()
	if !f.loaded {
		f.mu.Unlock()
		return 0, ErrNotLoaded
	}
	encoded, err := f.codec.Encode(f.questions, f.answers)
	var verr *answer.ValidationError
	if errors.As(err, &verr) {
		f.notice = verr.Message()
	}
	f.mu.Unlock()
	if err != nil {
		return 0, err
	}

	t := f.begin()
	id, err := f.backend.Submit(ctx, f.session, f.surveyID, encoded)
	if err != nil {
		msg := "Could not submit your answers."
		if client.StatusOf(err) == http.StatusConflict {
			msg = "You have already answered this survey."
		}
		f.fail(t, "submit", msg, err)
		return 0, err
	}
	f.apply(t, "submit", func() {
		f.submitted = id
		f.notice = ""
	})
	return id, nil
}

// Submitted is the id of the accepted submission, or 0.
func (f *Fillout) Submitted() model.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

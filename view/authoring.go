package view

import (
	"context"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/mbolis/form-flow/client"
	"github.com/mbolis/form-flow/model"
)

var ErrNoSuchIndex = errors.New("no such draft question")

// Authoring is the draft of a new survey, or of new questions for an
// existing one. Questions are ordered by their position in the draft.
type Authoring struct {
	lifecycle
	backend Backend
	session client.Session

	survey model.Survey
	saved  model.ID
}

// NewAuthoring starts an empty draft.
func NewAuthoring(backend Backend, session client.Session) *Authoring {
	a := &Authoring{backend: backend, session: session}
	a.init("authoring")
	return a
}

// EditAuthoring starts a draft from an existing survey. Saving it replaces
// the survey's questions.
func EditAuthoring(backend Backend, session client.Session, survey model.Survey) *Authoring {
	a := NewAuthoring(backend, session)
	a.survey = survey
	a.survey.Questions = model.SortByOrder(survey.Questions)
	for i := range a.survey.Questions {
		a.survey.Questions[i].ID = 0
		a.survey.Questions[i].Options = slices.Clone(a.survey.Questions[i].Options)
	}
	return a
}

func (a *Authoring) SetTitle(title string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.survey.Title = title
}

func (a *Authoring) SetDescription(description string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.survey.Description = description
}

// AddQuestion appends an empty question of kind and returns its index.
// Choice questions start with one empty option.
func (a *Authoring) AddQuestion(kind model.Kind) (int, error) {
	if !kind.Valid() {
		return 0, &model.InvalidQuestion{Reason: "unknown question type " + string(kind)}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	q := model.Question{Kind: kind}
	if kind.HasOptions() {
		q.Options = []string{""}
	}
	a.survey.Questions = append(a.survey.Questions, q)
	a.renumber()
	return len(a.survey.Questions) - 1, nil
}

func (a *Authoring) SetPrompt(i int, prompt string) error {
	return a.edit(i, func(q *model.Question) error {
		q.Prompt = prompt
		return nil
	})
}

// AddOption appends an option to choice question i.
func (a *Authoring) AddOption(i int, label string) error {
	return a.edit(i, func(q *model.Question) error {
		if !q.Kind.HasOptions() {
			return errors.Wrapf(ErrWrongKind, "question %d is %s", q.Order, q.Kind)
		}
		q.Options = append(q.Options, label)
		return nil
	})
}

// SetOption relabels the option at 1-based position pos of question i.
func (a *Authoring) SetOption(i, pos int, label string) error {
	return a.edit(i, func(q *model.Question) error {
		if _, ok := q.Option(pos); !ok {
			return errors.Wrapf(ErrNoSuchOption, "question %d option %d", q.Order, pos)
		}
		q.Options[pos-1] = label
		return nil
	})
}

// RemoveOption drops the option at position pos of question i.
func (a *Authoring) RemoveOption(i, pos int) error {
	return a.edit(i, func(q *model.Question) error {
		if _, ok := q.Option(pos); !ok {
			return errors.Wrapf(ErrNoSuchOption, "question %d option %d", q.Order, pos)
		}
		q.Options = slices.Delete(q.Options, pos-1, pos)
		return nil
	})
}

// Remove drops question i; later questions move up.
func (a *Authoring) Remove(i int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.survey.Questions) {
		return errors.Wrapf(ErrNoSuchIndex, "index %d", i)
	}
	a.survey.Questions = slices.Delete(a.survey.Questions, i, i+1)
	a.renumber()
	return nil
}

func (a *Authoring) edit(i int, fn func(*model.Question) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.survey.Questions) {
		return errors.Wrapf(ErrNoSuchIndex, "index %d", i)
	}
	return fn(&a.survey.Questions[i])
}

func (a *Authoring) renumber() {
	for i := range a.survey.Questions {
		a.survey.Questions[i].Order = i + 1
	}
}

// Questions is a copy of the draft questions.
func (a *Authoring) Questions() []model.Question {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.questions()
}

func (a *Authoring) questions() []model.Question {
	qs := slices.Clone(a.survey.Questions)
	for i := range qs {
		qs[i].Prompt = strings.TrimSpace(qs[i].Prompt)
		qs[i].Options = slices.Clone(qs[i].Options)
		for j, o := range qs[i].Options {
			qs[i].Options[j] = strings.TrimSpace(o)
		}
	}
	return qs
}

// Validate reports every problem of the draft at once.
func (a *Authoring) Validate() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return model.ValidateSurvey(a.survey.Title, a.questions())
}

// Save sends the draft. An invalid draft is not sent; its problems are
// returned and shown as the notice.
func (a *Authoring) Save(ctx context.Context) (model.ID, error) {
	a.mu.Lock()
	survey := a.survey
	survey.Title = strings.TrimSpace(survey.Title)
	survey.Description = strings.TrimSpace(survey.Description)
	survey.Questions = a.questions()
	err := model.ValidateSurvey(survey.Title, survey.Questions)
	if err != nil {
		a.notice = strings.Join(model.Problems(err), "\n")
	}
	a.mu.Unlock()
	if err != nil {
		return 0, err
	}

	t := a.begin()
	id := survey.ID
	if id == 0 {
		id, err = a.backend.CreateSurvey(ctx, a.session, survey.Title, survey.Description, survey.Questions)
	} else {
		err = a.backend.UpdateQuestions(ctx, a.session, survey)
	}
	if err != nil {
		a.fail(t, "save", "Could not save the survey.", err)
		return 0, err
	}

	a.apply(t, "save", func() {
		if a.survey.ID != 0 && a.survey.Version > 0 {
			a.survey.Version++
		}
		a.saved = id
		a.survey.ID = id
		a.notice = ""
	})
	return id, nil
}

// Saved is the id of the saved survey, or 0.
func (a *Authoring) Saved() model.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved
}

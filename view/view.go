// Package view holds the headless state of the client pages: the survey
// catalog, the fill-out form, the statistics page and the authoring draft.
//
// Loads may complete on any goroutine. Each load is tagged with the view's
// instance id and a generation number, and its result is applied only when
// the view is still open and no newer load has started since.
package view

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"

	"github.com/mbolis/form-flow/client"
	"github.com/mbolis/form-flow/log"
	"github.com/mbolis/form-flow/model"
)

// Backend is the part of *client.Client the views call.
type Backend interface {
	Surveys(ctx context.Context, s client.Session, page int, mine bool) (client.SurveyPage, error)
	SurveyDetail(ctx context.Context, s client.Session, id model.ID) (model.Survey, error)
	CreateSurvey(ctx context.Context, s client.Session, title, description string, qs []model.Question) (model.ID, error)
	UpdateQuestions(ctx context.Context, s client.Session, survey model.Survey) error
	Submit(ctx context.Context, s client.Session, id model.ID, answers string) (model.ID, error)
	Stats(ctx context.Context, s client.Session, id model.ID) (model.TallyReport, error)
}

var _ Backend = (*client.Client)(nil)

// ticket identifies one load of a view.
type ticket struct {
	view       uuid.UUID
	generation uint64
}

// lifecycle is embedded by every view.
type lifecycle struct {
	mu         sync.Mutex
	name       string
	id         uuid.UUID
	generation uint64
	closed     bool
	notice     string
}

func (l *lifecycle) init(name string) {
	l.name = name
	l.id = uuid.Must(uuid.NewV4())
}

// ID is the instance id tagged on every load of the view.
func (l *lifecycle) ID() uuid.UUID {
	return l.id
}

// Notice is the last non-blocking problem to show the user, if any.
func (l *lifecycle) Notice() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.notice
}

// Close discards the results of every load still in flight.
func (l *lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func (l *lifecycle) Closed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// begin supersedes every earlier load.
func (l *lifecycle) begin() ticket {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.generation++
	return ticket{view: l.id, generation: l.generation}
}

// apply runs fn with the view locked if t is still the current load.
func (l *lifecycle) apply(t ticket, op string, fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || t.view != l.id || t.generation != l.generation {
		l.logger(t).Debugf("view.%s.%s: stale response dropped", l.name, op)
		return false
	}
	fn()
	return true
}

// fail records err as the notice of a current load and logs it.
func (l *lifecycle) fail(t ticket, op string, msg string, err error) {
	l.apply(t, op, func() {
		l.logger(t).Warnf("view.%s.%s: %s", l.name, op, err)
		l.notice = msg
	})
}

func (l *lifecycle) logger(t ticket) *log.Entry {
	return log.WithFields(log.Fields{
		"view":       t.view.String(),
		"generation": t.generation,
	})
}

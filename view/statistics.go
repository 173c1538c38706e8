package view

import (
	"context"
	"slices"
	"sync"

	"github.com/mbolis/form-flow/client"
	"github.com/mbolis/form-flow/model"
	"github.com/mbolis/form-flow/stats"
)

// Statistics shows one chart per question of a survey. When the tallies
// cannot be fetched the questions are still shown, with empty charts.
type Statistics struct {
	lifecycle
	backend  Backend
	session  client.Session
	surveyID model.ID

	survey model.Survey
	charts []stats.Chart
}

func NewStatistics(backend Backend, session client.Session, surveyID model.ID) *Statistics {
	s := &Statistics{
		backend:  backend,
		session:  session,
		surveyID: surveyID,
	}
	s.init("statistics")
	return s
}

// Load fetches the survey and its tallies concurrently. Only a failure to
// fetch the survey itself is returned.
func (s *Statistics) Load(ctx context.Context) error {
	t := s.begin()

	var (
		wg        sync.WaitGroup
		survey    model.Survey
		report    model.TallyReport
		surveyErr error
		statsErr  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		survey, surveyErr = s.backend.SurveyDetail(ctx, s.session, s.surveyID)
	}()
	go func() {
		defer wg.Done()
		report, statsErr = s.backend.Stats(ctx, s.session, s.surveyID)
	}()
	wg.Wait()

	if surveyErr != nil {
		s.fail(t, "load", "Could not load the survey.", surveyErr)
		return surveyErr
	}
	if statsErr != nil {
		s.fail(t, "load.stats", "Could not load the statistics.", statsErr)
		report = nil
	}

	s.apply(t, "load", func() {
		s.survey = survey
		s.charts = stats.ReconcileReport(survey.Questions, report)
		if statsErr == nil {
			s.notice = ""
		}
	})
	return nil
}

func (s *Statistics) Survey() model.Survey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.survey
}

// Charts are in question order. Free text questions are placeholders.
func (s *Statistics) Charts() []stats.Chart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.charts)
}

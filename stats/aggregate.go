package stats

import (
	"slices"
	"strconv"

	"github.com/mbolis/form-flow/answer"
	"github.com/mbolis/form-flow/model"
)

// Aggregator counts option positions across the submissions of a survey.
type Aggregator struct {
	codec     answer.Codec
	questions []model.Question
	counts    []map[int]int
	skipped   int
}

func NewAggregator(qs []model.Question, codec answer.Codec) *Aggregator {
	sorted := model.SortByOrder(qs)
	counts := make([]map[int]int, len(sorted))
	for i := range counts {
		counts[i] = map[int]int{}
	}
	return &Aggregator{
		codec:     codec,
		questions: sorted,
		counts:    counts,
	}
}

// Add counts one stored submission. A submission that no longer decodes
// against the current questions is skipped and the error returned.
func (a *Aggregator) Add(encoded string) error {
	answers, err := a.codec.Decode(a.questions, encoded)
	if err != nil {
		a.skipped++
		return err
	}
	for i, q := range a.questions {
		if !q.Kind.HasOptions() {
			continue
		}
		for _, p := range answers[i].Positions {
			a.counts[i][p]++
		}
	}
	return nil
}

// Skipped is the number of submissions Add could not decode.
func (a *Aggregator) Skipped() int {
	return a.skipped
}

// Report has one entry per choice question. Every option position appears
// in ascending order, including those nobody chose, followed by positions
// beyond the current options that older submissions still reference.
func (a *Aggregator) Report() model.TallyReport {
	report := model.TallyReport{}
	for i, q := range a.questions {
		if !q.Kind.HasOptions() {
			continue
		}

		tally := model.Tally{}
		for pos := 1; pos <= len(q.Options); pos++ {
			tally.Add(strconv.Itoa(pos), a.counts[i][pos])
		}

		var extra []int
		for pos := range a.counts[i] {
			if pos > len(q.Options) {
				extra = append(extra, pos)
			}
		}
		slices.Sort(extra)
		for _, pos := range extra {
			tally.Add(strconv.Itoa(pos), a.counts[i][pos])
		}

		report = append(report, model.QuestionTally{Order: q.Order, Stats: tally})
	}
	return report
}

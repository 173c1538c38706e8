// Package stats turns option-position tallies into labelled chart data and
// builds those tallies from stored submissions.
package stats

import (
	"strconv"
	"strings"

	"github.com/mbolis/form-flow/model"
)

// Slice is one labelled entry of a chart.
type Slice struct {
	Label string `json:"name"`
	Count int    `json:"value"`
}

// Chart is the reconciled statistics of one question. Free text questions
// have no chart data and are rendered as a placeholder.
type Chart struct {
	Question    model.Question `json:"question"`
	Placeholder bool           `json:"placeholder"`
	Slices      []Slice        `json:"slices"`
}

// FallbackLabel names a tally key that has no matching option, which
// happens when options changed after answers were collected.
func FallbackLabel(key string) string {
	return "Option " + key
}

// Reconcile labels every entry of tally with the option at its position,
// keeping the tally's key order. It never fails: keys that are not a valid
// position of q get FallbackLabel.
func Reconcile(q model.Question, tally model.Tally) []Slice {
	slices := make([]Slice, 0, len(tally))
	for _, e := range tally {
		label := FallbackLabel(e.Key)
		if pos, err := strconv.Atoi(strings.TrimSpace(e.Key)); err == nil {
			if opt, ok := q.Option(pos); ok {
				label = opt
			}
		}
		slices = append(slices, Slice{Label: label, Count: e.Count})
	}
	return slices
}

// ReconcileReport builds one chart per question, in question order.
func ReconcileReport(qs []model.Question, report model.TallyReport) []Chart {
	sorted := model.SortByOrder(qs)
	charts := make([]Chart, len(sorted))
	for i, q := range sorted {
		charts[i] = Chart{Question: q}
		if !q.Kind.HasOptions() {
			charts[i].Placeholder = true
			continue
		}
		tally, _ := report.For(q.Order)
		charts[i].Slices = Reconcile(q, tally)
	}
	return charts
}

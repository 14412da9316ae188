package export

import (
	"testing"
	"time"

	"github.com/vanderheijden86/graph3d/pkg/datestate"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/simulation"
)

var jan14 = time.Date(2025, time.January, 14, 0, 0, 0, 0, time.UTC)

func payrollGraph() model.Graph {
	return model.Graph{
		Nodes: []model.Node{
			{ID: "A", Name: "Payroll", Type: model.TypePrimary},
			{ID: "B", Name: "Checking", Type: model.TypeSecondary},
			{ID: "C", Name: "Rent", Type: model.TypeTertiary},
			{ID: "D", Name: "Dormant", Type: "mystery"},
		},
		Edges: []model.Edge{
			{From: "A", To: "B", Weight: 100, Type: "salary", DayOfMonth: model.Day(15)},
			{From: "B", To: "C", Weight: 50, Type: "rent", DayOfMonth: model.Day(15)},
			{From: "B", To: "ghost", Weight: 5, Type: "default"},
		},
	}
}

func newTestSession(t *testing.T, labels bool) *simulation.Session {
	t.Helper()
	s := simulation.New(payrollGraph(), labels,
		datestate.WithStartDate(jan14),
		datestate.WithScheduler(datestate.NewManualScheduler()),
	)
	t.Cleanup(s.Close)
	return s
}

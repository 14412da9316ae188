// Package balance updates the running balances of intermediate nodes when
// the simulated date changes.
package balance

import (
	"github.com/vanderheijden86/graph3d/pkg/metrics"
	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/valuation"
)

// Direction is +1 when stepping forward in time and -1 when stepping back.
type Direction int

const (
	Forward  Direction = 1
	Backward Direction = -1
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// ApplyDateTransition mutates nodes in place for a one-day transition.
//
// For every edge scheduled on dayOfMonth, an intermediate receiver gains
// dir*weight and an intermediate sender loses dir*weight. Sources, sinks and
// disconnected nodes are never touched. Applying the same day with Forward
// then Backward restores every balance.
//
// Roles are computed from the full edge set before any balance changes, so the
// result does not depend on edge order. It returns the number of balance
// updates made.
func ApplyDateTransition(nodes []model.Node, edges []model.Edge, dayOfMonth int, dir Direction) int {
	if dir != Forward && dir != Backward {
		return 0
	}
	defer metrics.Timer(metrics.BalanceApply)()

	roles := valuation.Roles(nodes, edges)
	index := make(map[string]int, len(nodes))
	for i := range nodes {
		if _, dup := index[nodes[i].ID]; !dup {
			index[nodes[i].ID] = i
		}
	}

	sign := float64(dir)
	updates := 0
	for i := range edges {
		e := &edges[i]
		if !e.ScheduledOn(dayOfMonth) {
			continue
		}
		if j, ok := index[e.To]; ok && roles[e.To] == model.RoleIntermediate {
			nodes[j].AddBalance(sign * e.Weight)
			updates++
		}
		if j, ok := index[e.From]; ok && roles[e.From] == model.RoleIntermediate {
			nodes[j].AddBalance(-sign * e.Weight)
			updates++
		}
	}
	return updates
}

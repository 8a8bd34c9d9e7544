// Package leadsync mirrors CRM leads into external systems. Targets are
// idempotent: a lead already present downstream is updated in place, so
// repeated syncs converge instead of duplicating records.
package leadsync

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-crm/internal/model"
)

// Action reports what a target did with one lead.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Target pushes a single lead into an external system.
type Target interface {
	Name() string
	SyncLead(ctx context.Context, lead model.Lead, city model.City) (Action, error)
}

// Summary aggregates one sync run.
type Summary struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

// Run pushes all leads to the target. Failures are per-lead: one bad record
// is logged and counted, the rest still sync.
func Run(ctx context.Context, t Target, leads []model.Lead, cities map[string]model.City) (*Summary, error) {
	var summary Summary
	for _, lead := range leads {
		if err := ctx.Err(); err != nil {
			return &summary, err
		}

		action, err := t.SyncLead(ctx, lead, cities[lead.CityID])
		if err != nil {
			summary.Failed++
			zap.L().Warn("lead sync failed",
				zap.String("target", t.Name()),
				zap.String("lead_id", lead.ID),
				zap.String("name", lead.Name),
				zap.Error(err),
			)
			continue
		}
		switch action {
		case ActionCreated:
			summary.Created++
		case ActionUpdated:
			summary.Updated++
		}
	}

	zap.L().Info("lead sync finished",
		zap.String("target", t.Name()),
		zap.Int("created", summary.Created),
		zap.Int("updated", summary.Updated),
		zap.Int("failed", summary.Failed),
	)
	return &summary, nil
}

// Package registry holds the canonical set of flow definitions. Admission
// is fail-soft: a definition that fails validation is excluded and reported,
// never allowed to break the rest of the catalog.
package registry

import (
	"log/slog"

	"github.com/flowdeck/flowdeck/internal/core/flow"
	"github.com/flowdeck/flowdeck/internal/infrastructure/metrics"
	"github.com/flowdeck/flowdeck/pkg/validation"
)

// Report records the exclusion of one invalid flow definition. Reports are
// a first-class output of the registry, not just a log side channel.
type Report struct {
	FlowID     string                 `json:"flow_id"`
	Violations []validation.Violation `json:"violations"`
}

// Registry is an immutable catalog of known-valid flows. Every flow handed
// out by Get or All has passed both field-level and structural validation.
type Registry struct {
	flows   map[string]*flow.Flow
	order   []string
	reports []Report
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for exclusion diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New validates each candidate flow and admits only the valid ones.
// Invalid candidates are skipped with a Report and a warning log; this is
// a deliberate fail-soft policy so one malformed definition cannot take
// down the whole catalog.
func New(candidates []*flow.Flow, opts ...Option) *Registry {
	r := &Registry{
		flows:  make(map[string]*flow.Flow, len(candidates)),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, f := range candidates {
		violations := validation.ValidateFields(f)
		violations = append(violations, validation.ValidateFlow(f)...)

		id := ""
		if f != nil {
			id = f.ID
		}
		if len(violations) > 0 {
			r.reports = append(r.reports, Report{FlowID: id, Violations: violations})
			r.logger.Warn("flow excluded from registry",
				"flow_id", id,
				"violations", len(violations),
				"first", violations[0].String(),
			)
			metrics.IncFlowsRejected()
			continue
		}
		if _, exists := r.flows[id]; exists {
			r.reports = append(r.reports, Report{
				FlowID: id,
				Violations: []validation.Violation{{
					FlowID:    id,
					Invariant: validation.InvariantUniqueIDs,
					Message:   "flow id already registered",
				}},
			})
			r.logger.Warn("flow excluded from registry", "flow_id", id, "reason", "duplicate flow id")
			metrics.IncFlowsRejected()
			continue
		}

		r.flows[id] = f
		r.order = append(r.order, id)
		metrics.IncFlowsAdmitted()
	}
	return r
}

// Get returns the flow with the given id.
func (r *Registry) Get(id string) (*flow.Flow, bool) {
	f, ok := r.flows[id]
	return f, ok
}

// All returns the admitted flows in registration order.
func (r *Registry) All() []*flow.Flow {
	out := make([]*flow.Flow, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.flows[id])
	}
	return out
}

// Reports returns the exclusion reports for every rejected candidate.
func (r *Registry) Reports() []Report {
	return r.reports
}

// Len returns the number of admitted flows.
func (r *Registry) Len() int {
	return len(r.flows)
}

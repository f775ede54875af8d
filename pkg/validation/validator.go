// Package validation provides structural invariant checks for flow
// definitions. Violations are returned as values, never as errors or
// panics: callers decide whether to reject, log, or surface a flow anyway.
package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/flowdeck/flowdeck/internal/core/flow"
)

// Invariant identifies the structural property a violation breaks.
type Invariant string

const (
	// InvariantAcyclic requires the depends-on relation to be acyclic.
	InvariantAcyclic Invariant = "acyclic"
	// InvariantHasRoot requires at least one step with no dependencies.
	InvariantHasRoot Invariant = "has-root"
	// InvariantNoOrphans requires every step to be reachable from a root
	// and every dependency to resolve to an existing step.
	InvariantNoOrphans Invariant = "no-orphans"
	// InvariantUniqueIDs requires step ids to be pairwise distinct.
	InvariantUniqueIDs Invariant = "unique-ids"
	// InvariantFields covers field-level definition problems
	// (malformed ids, bad version strings) reported by ValidateFields.
	InvariantFields Invariant = "fields"
)

// Violation describes one structural problem found in a flow.
type Violation struct {
	FlowID    string    `json:"flow_id"`
	Invariant Invariant `json:"invariant"`
	Message   string    `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: [%s] %s", v.FlowID, v.Invariant, v.Message)
}

// ValidateFlow checks every structural invariant and returns the full
// violation list. An empty result means the flow is safe to execute,
// render, and mutate.
func ValidateFlow(f *flow.Flow) []Violation {
	if f == nil {
		return []Violation{{Invariant: InvariantFields, Message: "flow is nil"}}
	}

	var violations []Violation
	violations = append(violations, checkUniqueIDs(f)...)
	violations = append(violations, checkCycles(f)...)
	violations = append(violations, checkReachability(f)...)
	return violations
}

// checkUniqueIDs enforces InvariantUniqueIDs with a multiset count.
func checkUniqueIDs(f *flow.Flow) []Violation {
	seen := make(map[string]int, len(f.Steps))
	for _, s := range f.Steps {
		seen[s.ID]++
	}

	var violations []Violation
	for _, s := range f.Steps {
		if seen[s.ID] > 1 {
			violations = append(violations, Violation{
				FlowID:    f.ID,
				Invariant: InvariantUniqueIDs,
				Message:   fmt.Sprintf("step id %q appears %d times", s.ID, seen[s.ID]),
			})
			seen[s.ID] = 0 // report each duplicate id once
		}
	}
	return violations
}

// checkCycles enforces InvariantAcyclic using DFS with a recursion stack.
// Unknown dependency ids are skipped here; checkReachability reports them.
func checkCycles(f *flow.Flow) []Violation {
	steps := make(map[string]*flow.Step, len(f.Steps))
	for _, s := range f.Steps {
		steps[s.ID] = s
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the recursion stack
		black = 2 // done
	)
	color := make(map[string]int, len(steps))
	var stack []string
	var violations []Violation

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, dep := range steps[id].DependsOn {
			if _, ok := steps[dep]; !ok {
				continue
			}
			switch color[dep] {
			case gray:
				violations = append(violations, Violation{
					FlowID:    f.ID,
					Invariant: InvariantAcyclic,
					Message:   fmt.Sprintf("dependency cycle: %s", cyclePath(stack, dep)),
				})
				return true
			case white:
				if dfs(dep) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	// Deterministic traversal order keeps the reported cycle stable.
	ids := sortedIDs(f)
	for _, id := range ids {
		if color[id] == white {
			stack = stack[:0]
			if dfs(id) {
				break // one cycle report is enough to fail the flow
			}
		}
	}
	return violations
}

// cyclePath renders the portion of the recursion stack forming the cycle.
func cyclePath(stack []string, repeat string) string {
	start := 0
	for i, id := range stack {
		if id == repeat {
			start = i
			break
		}
	}
	path := append(append([]string(nil), stack[start:]...), repeat)
	return strings.Join(path, " -> ")
}

// checkReachability enforces InvariantHasRoot and InvariantNoOrphans by
// forward reachability from the root set over the dependents relation.
func checkReachability(f *flow.Flow) []Violation {
	steps := make(map[string]*flow.Step, len(f.Steps))
	dependents := make(map[string][]string, len(f.Steps))
	for _, s := range f.Steps {
		steps[s.ID] = s
	}

	var violations []Violation
	var roots []string
	for _, s := range f.Steps {
		if s.IsRoot() {
			roots = append(roots, s.ID)
		}
		for _, dep := range s.DependsOn {
			if _, ok := steps[dep]; !ok {
				violations = append(violations, Violation{
					FlowID:    f.ID,
					Invariant: InvariantNoOrphans,
					Message:   fmt.Sprintf("step %q depends on unknown step %q", s.ID, dep),
				})
				continue
			}
			dependents[dep] = append(dependents[dep], s.ID)
		}
	}

	if len(roots) == 0 {
		violations = append(violations, Violation{
			FlowID:    f.ID,
			Invariant: InvariantHasRoot,
			Message:   "no step with empty depends_on",
		})
		return violations
	}

	visited := make(map[string]bool, len(steps))
	queue := append([]string(nil), roots...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true
		queue = append(queue, dependents[id]...)
	}

	for _, id := range sortedIDs(f) {
		if !visited[id] {
			violations = append(violations, Violation{
				FlowID:    f.ID,
				Invariant: InvariantNoOrphans,
				Message:   fmt.Sprintf("step %q is not reachable from any root", id),
			})
		}
	}
	return violations
}

// TopoOrder returns the step ids in a dependency-respecting order (every
// step after all of its dependencies), ties broken lexicographically so the
// result is deterministic. ok is false when a cycle makes ordering
// impossible; the partial order produced so far is returned anyway.
func TopoOrder(f *flow.Flow) (order []string, ok bool) {
	if f == nil {
		return nil, true
	}
	steps := make(map[string]*flow.Step, len(f.Steps))
	for _, s := range f.Steps {
		steps[s.ID] = s
	}

	indegree := make(map[string]int, len(steps))
	dependents := make(map[string][]string, len(steps))
	for id, s := range steps {
		for _, dep := range s.DependsOn {
			if _, known := steps[dep]; !known {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id := range steps {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order = make([]string, 0, len(steps))
	for len(ready) > 0 {
		sort.Strings(ready)
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	return order, len(order) == len(steps)
}

func sortedIDs(f *flow.Flow) []string {
	ids := make([]string, 0, len(f.Steps))
	for _, s := range f.Steps {
		ids = append(ids, s.ID)
	}
	sort.Strings(ids)
	return ids
}

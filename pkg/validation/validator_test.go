package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/internal/core/flow"
)

// fiveStepFlow builds the research -> {video-a, video-b} -> validate ->
// select -> play pipeline used across the engine tests.
func fiveStepFlow() *flow.Flow {
	return &flow.Flow{
		ID:      "video-pipeline",
		Name:    "Video Pipeline",
		Version: "1.0.0",
		Steps: []*flow.Step{
			{ID: "research", Kind: flow.KindModelCall},
			{ID: "video-a", Kind: flow.KindModelCall, DependsOn: []string{"research"}, Parallel: true},
			{ID: "video-b", Kind: flow.KindModelCall, DependsOn: []string{"research"}, Parallel: true},
			{ID: "validate", Kind: flow.KindValidate, DependsOn: []string{"video-a", "video-b"}},
			{ID: "select", Kind: flow.KindUserInput, DependsOn: []string{"validate"}},
			{ID: "play", Kind: flow.KindDisplay, DependsOn: []string{"select"}},
		},
	}
}

func TestValidateFlow_Valid(t *testing.T) {
	violations := ValidateFlow(fiveStepFlow())
	assert.Empty(t, violations)
}

func TestValidateFlow_Cycle(t *testing.T) {
	f := &flow.Flow{
		ID:      "cyclic",
		Name:    "Cyclic",
		Version: "1.0.0",
		Steps: []*flow.Step{
			{ID: "start", Kind: flow.KindTransform},
			{ID: "a", Kind: flow.KindTransform, DependsOn: []string{"start", "c"}},
			{ID: "b", Kind: flow.KindTransform, DependsOn: []string{"a"}},
			{ID: "c", Kind: flow.KindTransform, DependsOn: []string{"b"}},
		},
	}

	violations := ValidateFlow(f)
	require.NotEmpty(t, violations)

	var found *Violation
	for i := range violations {
		if violations[i].Invariant == InvariantAcyclic {
			found = &violations[i]
			break
		}
	}
	require.NotNil(t, found, "expected an acyclic violation")
	assert.Equal(t, "cyclic", found.FlowID)
	assert.Contains(t, found.Message, "->", "cycle path should be reported")
}

func TestValidateFlow_NoRoot(t *testing.T) {
	f := &flow.Flow{
		ID:      "rootless",
		Name:    "Rootless",
		Version: "1.0.0",
		Steps: []*flow.Step{
			{ID: "a", Kind: flow.KindTransform, DependsOn: []string{"b"}},
			{ID: "b", Kind: flow.KindTransform, DependsOn: []string{"a"}},
		},
	}

	violations := ValidateFlow(f)
	invariants := make(map[Invariant]bool)
	for _, v := range violations {
		invariants[v.Invariant] = true
	}
	assert.True(t, invariants[InvariantHasRoot])
	assert.True(t, invariants[InvariantAcyclic])
}

func TestValidateFlow_DanglingDependency(t *testing.T) {
	f := fiveStepFlow()
	f.Steps[5].DependsOn = []string{"select", "ghost"}

	violations := ValidateFlow(f)
	require.Len(t, violations, 1)
	assert.Equal(t, InvariantNoOrphans, violations[0].Invariant)
	assert.Contains(t, violations[0].Message, "ghost")
}

func TestValidateFlow_Orphan(t *testing.T) {
	f := fiveStepFlow()
	// Two steps only reachable from each other, not from any root.
	f.Steps = append(f.Steps,
		&flow.Step{ID: "island-a", Kind: flow.KindTransform, DependsOn: []string{"island-b"}},
		&flow.Step{ID: "island-b", Kind: flow.KindTransform, DependsOn: []string{"island-a"}},
	)

	violations := ValidateFlow(f)
	orphans := 0
	for _, v := range violations {
		if v.Invariant == InvariantNoOrphans {
			orphans++
		}
	}
	assert.Equal(t, 2, orphans)
}

func TestValidateFlow_DuplicateIDs(t *testing.T) {
	f := fiveStepFlow()
	f.Steps = append(f.Steps, &flow.Step{ID: "research", Kind: flow.KindModelCall})

	violations := ValidateFlow(f)
	var dup *Violation
	for i := range violations {
		if violations[i].Invariant == InvariantUniqueIDs {
			dup = &violations[i]
		}
	}
	require.NotNil(t, dup)
	assert.Contains(t, dup.Message, "research")
}

func TestValidateFlow_NilFlow(t *testing.T) {
	violations := ValidateFlow(nil)
	require.Len(t, violations, 1)
	assert.Equal(t, InvariantFields, violations[0].Invariant)
}

func TestValidateFields(t *testing.T) {
	t.Run("valid flow", func(t *testing.T) {
		assert.Empty(t, ValidateFields(fiveStepFlow()))
	})

	t.Run("bad version", func(t *testing.T) {
		f := fiveStepFlow()
		f.Version = "one-point-oh"
		violations := ValidateFields(f)
		require.NotEmpty(t, violations)
		assert.Equal(t, InvariantFields, violations[0].Invariant)
		assert.Contains(t, violations[0].Message, "version")
	})

	t.Run("bad step id", func(t *testing.T) {
		f := fiveStepFlow()
		f.Steps[0].ID = "re search!"
		violations := ValidateFields(f)
		require.NotEmpty(t, violations)
	})

	t.Run("unknown kind", func(t *testing.T) {
		f := fiveStepFlow()
		f.Steps[0].Kind = flow.StepKind("teleport")
		violations := ValidateFields(f)
		require.NotEmpty(t, violations)
		assert.Contains(t, violations[len(violations)-1].Message, "teleport")
	})
}

func TestTopoOrder(t *testing.T) {
	t.Run("dependency-respecting and deterministic", func(t *testing.T) {
		order, ok := TopoOrder(fiveStepFlow())
		require.True(t, ok)
		assert.Equal(t, []string{"research", "video-a", "video-b", "validate", "select", "play"}, order)
	})

	t.Run("cycle yields ok=false", func(t *testing.T) {
		f := &flow.Flow{
			ID:      "cyclic",
			Name:    "Cyclic",
			Version: "1.0.0",
			Steps: []*flow.Step{
				{ID: "start", Kind: flow.KindTransform},
				{ID: "a", Kind: flow.KindTransform, DependsOn: []string{"start", "b"}},
				{ID: "b", Kind: flow.KindTransform, DependsOn: []string{"a"}},
			},
		}
		order, ok := TopoOrder(f)
		assert.False(t, ok)
		assert.Equal(t, []string{"start"}, order)
	})

	t.Run("nil flow", func(t *testing.T) {
		order, ok := TopoOrder(nil)
		assert.True(t, ok)
		assert.Empty(t, order)
	})
}

func TestViolation_String(t *testing.T) {
	v := Violation{FlowID: "demo", Invariant: InvariantAcyclic, Message: "dependency cycle: a -> b -> a"}
	assert.Equal(t, "demo: [acyclic] dependency cycle: a -> b -> a", v.String())
}

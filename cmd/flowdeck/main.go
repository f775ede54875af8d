// Package main provides the FlowDeck CLI application
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/flowdeck/flowdeck/internal/core/flow"
	"github.com/flowdeck/flowdeck/internal/core/trace"
	"github.com/flowdeck/flowdeck/pkg/flowdeck"
)

// Version information set during build
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("FlowDeck %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "demo" {
		if err := runDemo(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "demo failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("FlowDeck - Flow Graph Engine")
	fmt.Println("Commands:")
	fmt.Println("  demo     validate, lay out, and trace a sample flow")
	fmt.Println("  version  print build information")
}

// demoFlow is the sample pipeline used by the demo command.
func demoFlow() *flowdeck.Flow {
	return &flowdeck.Flow{
		ID:          "video-pipeline",
		Name:        "Video Pipeline",
		Description: "research a topic, draft two videos in parallel, pick one",
		Version:     "1.0.0",
		Steps: []*flowdeck.Step{
			{ID: "research", Kind: flow.KindModelCall, Description: "gather source material"},
			{ID: "video-a", Kind: flow.KindModelCall, DependsOn: []string{"research"}, Parallel: true},
			{ID: "video-b", Kind: flow.KindModelCall, DependsOn: []string{"research"}, Parallel: true},
			{ID: "validate", Kind: flow.KindValidate, DependsOn: []string{"video-a", "video-b"}},
			{ID: "select", Kind: flow.KindUserInput, DependsOn: []string{"validate"}},
			{ID: "play", Kind: flow.KindDisplay, DependsOn: []string{"select"}},
		},
	}
}

func runDemo(ctx context.Context) error {
	rt := flowdeck.NewRuntime(ctx, []*flowdeck.Flow{demoFlow()})

	f, ok := rt.Flow("video-pipeline")
	if !ok {
		return fmt.Errorf("demo flow failed validation: %+v", rt.Reports())
	}
	fmt.Printf("flow %q admitted with %d steps\n", f.ID, len(f.Steps))

	l, err := rt.Layout(f.ID)
	if err != nil {
		return err
	}
	fmt.Printf("layout: %d columns, %.0fx%.0f\n", l.Columns, l.Width, l.Height)
	for _, step := range f.Steps {
		pos := l.Nodes[step.ID]
		fmt.Printf("  %-10s col=%d row=%d (%.0f,%.0f)\n", step.ID, pos.Column, pos.Row, pos.X, pos.Y)
	}

	exec, err := rt.StartExecution(ctx, f.ID)
	if err != nil {
		return err
	}
	for _, step := range f.Steps {
		err = rt.UpdateStep(ctx, f.ID, step.ID, func(se *flowdeck.StepExecution) {
			se.Status = trace.StepSuccess
			if step.Kind == flow.KindModelCall {
				se.Usage = &flowdeck.TokenUsage{PromptTokens: 1200, CompletionTokens: 600, TotalTokens: 1800}
			}
		})
		if err != nil {
			return err
		}
	}
	if err := rt.FinishExecution(ctx, f.ID, trace.StatusCompleted); err != nil {
		return err
	}

	history := rt.ExecutionHistory(f.ID)
	fmt.Printf("execution %s archived (%d in history)\n", exec.ID, len(history))
	fmt.Printf("estimated cost: %s\n", flowdeck.FormatCost(rt.EstimateCost(f.ID)))
	return nil
}

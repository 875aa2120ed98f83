package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// End is the terminal node of the graph.
const End = "end"

// Graph is the compiled workflow: the fixed step set plus the two
// conditional edges. Built once, reused across runs.
type Graph struct {
	runner *Runner
	steps  map[string]Step
	edges  map[string]func(*State) string
}

// NewGraph assembles the workflow from the provided steps. Every step name
// must be supplied exactly once.
func NewGraph(runner *Runner, steps ...Step) (*Graph, error) {
	if runner == nil {
		return nil, fmt.Errorf("workflow graph: runner is required")
	}
	byName := make(map[string]Step, len(steps))
	for _, step := range steps {
		if step == nil {
			return nil, fmt.Errorf("workflow graph: nil step")
		}
		name := step.Name()
		if _, dup := byName[name]; dup {
			return nil, fmt.Errorf("workflow graph: duplicate step %q", name)
		}
		byName[name] = step
	}
	for _, name := range StepNames() {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("workflow graph: missing step %q", name)
		}
	}
	if len(byName) != len(StepNames()) {
		return nil, fmt.Errorf("workflow graph: unexpected extra steps")
	}

	return &Graph{
		runner: runner,
		steps:  byName,
		edges: map[string]func(*State) string{
			StepAudioExtraction: fixedEdge(StepSpeechToText),
			StepSpeechToText:    fixedEdge(StepTranslation),
			StepTranslation:     NextAfterTranslation,
			StepTermProcessing:  fixedEdge(StepSubtitleMerge),
			StepSubtitleMerge:   NextAfterSubtitleMerge,
			StepTextToSpeech:    fixedEdge(StepVideoMuxing),
			StepVideoMuxing:     fixedEdge(End),
		},
	}, nil
}

func fixedEdge(next string) func(*State) string {
	return func(*State) string { return next }
}

// Invoke walks the graph from the first step to the end, running every
// visited step through the runner. It always returns the final state; step
// failures are recorded in it, never raised.
func (g *Graph) Invoke(ctx context.Context, state *State) *State {
	return g.InvokeUntil(ctx, state, End)
}

// InvokeUntil walks the graph like Invoke but stops once the named step
// has run, leaving later steps without results. Passing End runs the whole
// graph.
func (g *Graph) InvokeUntil(ctx context.Context, state *State, lastStep string) *State {
	current := StepAudioExtraction
	for current != End {
		g.runner.RunStep(ctx, g.steps[current], state)
		if current == lastStep {
			break
		}
		current = g.edges[current](state)
	}
	return state
}

// Render returns a static textual diagram of the graph topology.
func (g *Graph) Render() string {
	var b strings.Builder
	b.WriteString(StepAudioExtraction + "\n")
	b.WriteString("  -> " + StepSpeechToText + "\n")
	b.WriteString("  -> " + StepTranslation + "\n")
	b.WriteString("  -> " + StepTermProcessing + "  (when term processing is enabled with a dictionary)\n")
	b.WriteString("  -> " + StepSubtitleMerge + "\n")
	b.WriteString("  -> " + StepTextToSpeech + "  (when text-to-speech is enabled)\n")
	b.WriteString("  -> " + StepVideoMuxing + "\n")
	b.WriteString("  -> " + End + "\n")
	return b.String()
}

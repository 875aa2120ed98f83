package pipeline

import "context"

// Step is one stage of the pipeline. Execute reads the fields it declares
// as input, writes only the artifact path it owns, and returns an error
// classified through the services package sentinels; the runner decides
// whether the error is worth retrying.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// MetadataProvider is an optional Step extension: a step implementing it
// contributes free-form metadata to its completed StepResult.
type MetadataProvider interface {
	Metadata(state *State) map[string]any
}

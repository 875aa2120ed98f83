// Package agent wires the configuration, collaborators, and workflow graph
// together and drives complete runs: single videos, batches, and the
// subtitle-only path.
package agent

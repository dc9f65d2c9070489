// Package workflow defines the shared domain vocabulary: execution records as
// observed on a workflow-automation engine, workflow definitions, and the
// operator-supplied duration baseline. These are the canonical in-memory types
// every other package speaks; the fetch client converts the engine's wire
// payloads into them and the analysis core consumes them read-only.
package workflow

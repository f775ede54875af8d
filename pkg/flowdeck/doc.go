// Package flowdeck provides a minimal public façade for working with flow
// graphs without importing internal packages directly. It re-exports the
// core flow types for convenience and exposes a Runtime that bundles a
// validated flow catalog, the execution trace store, and a cost estimator.
package flowdeck

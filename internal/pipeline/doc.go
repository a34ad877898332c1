// Package pipeline orchestrates one crawl run end to end: validate the
// URL, fetch the page, extract entities, and update the knowledge
// graph.
//
// A run moves through the stages strictly in order and stops at the
// first failure, which is recorded with the stage it occurred in. The
// orchestrator never panics on bad input; every outcome is a
// PipelineResult.
//
// Batch runs share one graph builder and one extractor provider, with
// concurrency bounded by the caller. Graph updates are atomic per run,
// so concurrent runs interleave safely.
package pipeline

// Package risk scores signup attempts for abuse.
//
// [Scorer.Assess] runs every indicator in a fixed order and sums their
// weights; nothing short-circuits, so the indicator list is complete for the
// audit trail. Thresholds map the score onto an [Action]. The scorer only
// reads: recording the attempt and enforcing a block are the caller's job.
//
// Weights, windows and thresholds live in [Config] so the scoring table can
// be exercised in isolation.
package risk

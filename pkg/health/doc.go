// Package health fans a health probe out to every configured backend service
// and folds the outcomes into a Snapshot.
//
// Types:
//   - Status: healthy | unhealthy | unknown
//   - ServiceHealth: status, probe latency and, on failure, the error kind
//   - Snapshot: one CheckAll result keyed by service name
//   - Prober: Probe(ctx, service) error; HTTPProber and GRPCProber implement it
//
// Aggregator.CheckAll runs the probes with bounded concurrency. A failing
// probe only affects its own entry: rejections are absorbed into the
// snapshot and never returned. A probe that never started because ctx was
// already done is reported as unknown. Every configured service appears in
// the snapshot exactly once.
package health

// Package gateway exposes the HTTP submission surface.
//
// Each operation has its own endpoint under /jobs. A request is decoded into
// an ops.Descriptor, validated, optionally checked against media durations
// reported by the media store, and only then persisted as a queued job with a
// task on the queue. Malformed JSON is rejected with 400 and failed
// validation with 422; in both cases no job exists afterwards.
//
// The router is gin with release mode, request id propagation, optional
// bearer token auth and structured access logs through slog.
package gateway

// Package services holds the small cross-cutting helpers shared by the job
// pipeline and its external integrations.
//
// It provides context helpers that stamp job IDs, stages, operations and
// request IDs for logging, and the error markers plus Wrap helper that every
// component uses so a failed job can be labelled with a stable kind
// (validation, media_fetch, processing, upload) and attributed to the client,
// an upstream service, or the server.
package services

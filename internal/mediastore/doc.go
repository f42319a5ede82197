// Package mediastore talks to the external media store that holds job inputs
// and receives job outputs.
//
// The store exposes a PayloadCMS style REST collection: GET {base}/{collection}/{id}
// describes an asset and points at its download URL, and a multipart POST to
// {base}/{collection} creates a new asset. Every call is a single attempt.
// Failures are wrapped with services.ErrMediaFetch or services.ErrUpload and
// keep the upstream status and a short response excerpt.
package mediastore

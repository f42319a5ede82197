// Package textutil provides small string helpers shared by the media store
// client, the CLI and the job workspace: filename sanitization, token
// normalization and display truncation.
package textutil

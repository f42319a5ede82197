// Package progress carries job progress from the executor to the job store
// and the notification webhook.
//
// Progress for one job moves through three bands: downloading inputs fills
// 0-20, engine steps fill 20-80 by step weight and uploading fills 80-100.
// The Reporter drops any event that would move percent or time backwards, so
// readers only ever see monotonic progress.
package progress

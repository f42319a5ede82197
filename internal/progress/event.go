package progress

import "time"

// Band boundaries in percent.
const (
	DownloadStart   = 0
	ProcessingStart = 20
	UploadStart     = 80
	Done            = 100
)

// Event is one progress update for a job.
type Event struct {
	JobID       string
	Percent     int
	CurrentStep string
	Message     string
	UpdatedAt   time.Time
}

// Scale maps done/total into the [lo, hi] band.
func Scale(lo, hi int, done, total float64) int {
	if total <= 0 || done <= 0 {
		return lo
	}
	if done >= total {
		return hi
	}
	return lo + int(float64(hi-lo)*done/total)
}

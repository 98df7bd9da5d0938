// Package buildinfo carries the version stamped into the binaries with
//
//	-ldflags "-X github.com/xelth-com/iditgo/internal/buildinfo.CommitHash=..."
package buildinfo

import "time"

// Stamped at build time; empty in `go run` and tests
var (
	CommitHash string
	CommitTime string
	BuildTime  string
)

var started = time.Now().UTC()

// Info is what /api/status and `iditctl version` report
type Info struct {
	Commit     string    `json:"commitHash"`
	CommitTime string    `json:"commitTime"`
	BuildTime  string    `json:"buildTime"`
	StartedAt  time.Time `json:"startTime"`
}

// Get returns the stamped values, "dev" for unstamped ones
func Get() Info {
	return Info{
		Commit:     orDev(CommitHash),
		CommitTime: orDev(CommitTime),
		BuildTime:  orDev(BuildTime),
		StartedAt:  started,
	}
}

// Uptime is the time since process start, rounded to seconds
func (i Info) Uptime(now time.Time) time.Duration {
	if now.Before(i.StartedAt) {
		return 0
	}
	return now.Sub(i.StartedAt).Round(time.Second)
}

func orDev(s string) string {
	if s == "" {
		return "dev"
	}
	return s
}

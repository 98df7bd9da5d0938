package buildinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetFallsBackToDev(t *testing.T) {
	CommitHash = ""
	info := Get()
	assert.Equal(t, "dev", info.Commit)
	assert.Equal(t, "dev", info.BuildTime)

	CommitHash = "a1b2c3d"
	t.Cleanup(func() { CommitHash = "" })
	assert.Equal(t, "a1b2c3d", Get().Commit)
}

func TestUptime(t *testing.T) {
	info := Info{StartedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
	assert.Equal(t, 90*time.Minute, info.Uptime(time.Date(2026, 3, 1, 9, 30, 0, 400, time.UTC)))
	assert.Zero(t, info.Uptime(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)))
}

package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfoString(t *testing.T) {
	assert.Equal(t, "dev", Info{Version: "dev"}.String())
	assert.Equal(t, "1.2.0 (abc123) built 2024-05-01",
		Info{Version: "1.2.0", CommitHash: "abc123", BuildTime: "2024-05-01"}.String())
}

func TestCurrent(t *testing.T) {
	info := Current()
	assert.Equal(t, Version, info.Version)
	assert.NotEmpty(t, info.StartedAt)
	assert.NotEmpty(t, info.Uptime)
}

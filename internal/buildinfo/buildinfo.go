package buildinfo

import "time"

// Set via -ldflags at build time
var (
	Version    = "dev"
	BuildTime  string // when the binary was compiled
	CommitHash string // short git commit hash
)

var started = time.Now().UTC()

// Info is the build and process identity reported by /api/status and the CLI
type Info struct {
	Version    string `json:"version"`
	BuildTime  string `json:"buildTime,omitempty"`
	CommitHash string `json:"commitHash,omitempty"`
	StartedAt  string `json:"startedAt"`
	Uptime     string `json:"uptime"`
}

// Current returns the running binary's build info
func Current() Info {
	return Info{
		Version:    Version,
		BuildTime:  BuildTime,
		CommitHash: CommitHash,
		StartedAt:  started.Format(time.RFC3339),
		Uptime:     time.Since(started).Round(time.Second).String(),
	}
}

// String formats the version the way --version prints it
func (i Info) String() string {
	s := i.Version
	if i.CommitHash != "" {
		s += " (" + i.CommitHash + ")"
	}
	if i.BuildTime != "" {
		s += " built " + i.BuildTime
	}
	return s
}

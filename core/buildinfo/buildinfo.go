// Package buildinfo carries release metadata stamped in by the linker:
//
//	go build -ldflags "-X github.com/m3rciful/unilinkup/core/buildinfo.Version=v0.3.0 \
//	  -X github.com/m3rciful/unilinkup/core/buildinfo.Commit=$(git rev-parse --short HEAD) \
//	  -X github.com/m3rciful/unilinkup/core/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
package buildinfo

// Unstamped builds report "dev", "local" and an empty date.
var (
	Version = "dev"
	Commit  = "local"
	Date    = ""
)

// Package buildinfo carries version stamps set at link time:
//
//	go build -ldflags "-X github.com/m3rciful/pharmtutor/core/buildinfo.Version=v0.4.0 -X github.com/m3rciful/pharmtutor/core/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

var (
	Version = "dev"
	Commit  = "local"
	// Date is the RFC 3339 build time, empty for local builds.
	Date = ""
)

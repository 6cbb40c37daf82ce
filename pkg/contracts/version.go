// Package contracts pins the versioned surface shared with API
// clients: the data format version and the domain types under domain/.
package contracts

import (
	"fmt"
	"runtime"
)

const (
	// Version is the current version of the trust service
	Version = "1.2.0"

	// APIVersion is the version of the HTTP API
	APIVersion = "v1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// VersionString returns a human-readable version banner.
func VersionString() string {
	return fmt.Sprintf("terratrust %s (%s, %s/%s, commit %s)",
		Version, APIVersion, runtime.GOOS, runtime.GOARCH, GitCommit)
}

// Package version exposes the build identity cmd/priceserver logs on
// startup. The /health endpoint does not include it.
//
// Version, Commit, and BuildTime are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/spglobal/priceservice/internal/version.Version=1.0.0 \
//	                   -X github.com/spglobal/priceservice/internal/version.Commit=$(git rev-parse --short HEAD) \
//	                   -X github.com/spglobal/priceservice/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// GoVersion is not an ldflags variable: it is read from the running
// binary itself, so it is always accurate even for a build invoked
// without the flags above.
package version

import "runtime"

var (
	// Version is the semantic version of this build, e.g. "1.0.0".
	// "dev" when the binary was built without the ldflags above.
	Version = "dev"

	// Commit is the short git commit hash this build was cut from.
	Commit = "unknown"

	// BuildTime is the UTC build timestamp in RFC 3339 form.
	BuildTime = "unknown"
)

// GoVersion is the toolchain that produced this binary, e.g. "go1.24.7".
func GoVersion() string {
	return runtime.Version()
}

// String renders the build identity as a single line.
func String() string {
	return Version + " (" + Commit + ") built " + BuildTime + " with " + GoVersion()
}

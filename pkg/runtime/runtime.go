package runtime

var (
	// Version is set at build time via -ldflags.
	Version = "0.0.0-dev"
	// GitCommit is set at build time via -ldflags.
	GitCommit = "unknown"
	// Timestamp is set at build time via -ldflags.
	Timestamp = "unknown"
)

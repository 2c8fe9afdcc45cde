package env

const AppName = "exhume"

// Set at build time via -ldflags.
var (
	Version    = "dev"
	CommitHash = "none"
	BuildTime  = "unknown"
)

// internal/docker/options.go
//
// Defaults for the builder configuration. Each one can be overridden from
// the environment so CI jobs do not have to repeat flags.

package docker

import "time"

const (
	DefaultRegistry   = "ghcr.io"
	DefaultRepository = "nasa-fornax/fornax-images"
	DefaultPlatform   = "linux/amd64"
)

// DefaultConfig returns the stock configuration:
//   - IMAGECTL_REGISTRY   (ghcr.io)
//   - IMAGECTL_REPOSITORY (nasa-fornax/fornax-images)
//   - IMAGECTL_PLATFORM   (linux/amd64)
//   - IMAGECTL_ROOT       (.)
//   - IMAGECTL_DRY_RUN    (false)
func DefaultConfig() Config {
	return Config{
		Registry:     getenv("IMAGECTL_REGISTRY", DefaultRegistry),
		Repository:   getenv("IMAGECTL_REPOSITORY", DefaultRepository),
		Platform:     getenv("IMAGECTL_PLATFORM", DefaultPlatform),
		Root:         getenv("IMAGECTL_ROOT", "."),
		DryRun:       getenv("IMAGECTL_DRY_RUN", "") == "true",
		TriggerPause: 100 * time.Millisecond,
	}
}

// internal/docker/types.go
package docker

import "time"

// Config is fixed for the lifetime of a Builder.
type Config struct {
	Registry   string // e.g. ghcr.io
	Repository string // e.g. nasa-fornax/fornax-images
	Platform   string // passed as --platform; empty omits the flag
	Root       string // directory holding one build context per image
	DryRun     bool   // log commands and file operations, touch nothing

	// TriggerPause is slept after each successful webhook call.
	TriggerPause time.Duration
}

// BuildOptions tunes a single docker build.
type BuildOptions struct {
	BuildArgs []string // NAME=value
	ExtraArgs string   // free-form docker build flags, split with shell word rules
	ExtraTags []string // plain tags added next to the primary one
}

// Plan is one full run of the pipeline over a set of images.
type Plan struct {
	Images []string // nil means every image
	Tag    string

	Push       bool
	UpdateLock bool
	NoBuild    bool
	BuildArgs  []string
	ExtraArgs  string

	Release    []string // nil: no release; empty: release with implied tags only
	ExportLock bool

	TriggerECR   bool
	ECREndpoints []string
}

const (
	buildTimeout  = 10000 * time.Second
	pushTimeout   = 1000 * time.Second
	lockTimeout   = 500 * time.Second
	exportTimeout = 1000 * time.Second
	envsTimeout   = 10000 * time.Second
)

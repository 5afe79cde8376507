// internal/docker/tags.go
package docker

import (
	"fmt"
	"strings"
)

const (
	tagSeparator = ":"
	mainTag      = "main"
	stableTag    = "stable"
	developTag   = "develop"
)

// CheckTag fails unless tag is a plain, non-empty tag without ':'.
func CheckTag(tag string) error {
	if strings.TrimSpace(tag) == "" {
		return invalidf("tag is empty")
	}
	if strings.Contains(tag, tagSeparator) {
		return invalidf("tag: %s is not a str without %s", tag, tagSeparator)
	}
	return nil
}

// CheckTags validates a source tag and a list of release tags.
func CheckTags(source string, releases []string) error {
	if err := CheckTag(source); err != nil {
		return err
	}
	for _, t := range releases {
		if err := CheckTag(t); err != nil {
			return fmt.Errorf("release %w", err)
		}
	}
	return nil
}

// FullTag returns registry/repository/image:tag.
func (b *Builder) FullTag(image, tag string) (string, error) {
	if err := CheckTag(tag); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s:%s", b.cfg.Registry, b.cfg.Repository, image, tag), nil
}

// ReleaseTags returns the tags a release from source publishes. Releasing
// main always publishes stable too. The input slice is never modified.
func ReleaseTags(source string, tags []string) []string {
	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)
	if source == mainTag && !contains(out, stableTag) {
		out = append(out, stableTag)
	}
	return out
}

// plainTag drops any registry/repository/image prefix from tag.
func plainTag(tag string) string {
	if i := strings.LastIndex(tag, tagSeparator); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// internal/docker/ecr.go
package docker

import (
	"context"
	"fmt"
	"strings"

	"imagectl/pkg/webhook"
)

type imageTag struct{ image, tag string }

// PushToECR asks every mirror endpoint to copy each selected image under the
// source tag and every release tag. A 404 means the mirror has no such
// repository and is only logged; any other failure stops the run.
func (b *Builder) PushToECR(ctx context.Context, endpoints []string, sourceTag string, releaseTags, images []string) error {
	if err := CheckTags(sourceTag, releaseTags); err != nil {
		return err
	}
	var eps []string
	for _, e := range endpoints {
		if e = strings.TrimSpace(e); e != "" {
			eps = append(eps, e)
		}
	}
	if len(eps) == 0 {
		return invalidf("endpoints cannot be empty")
	}
	selected, err := b.selectImages(images)
	if err != nil {
		return err
	}
	tags := ReleaseTags(sourceTag, releaseTags)

	var pairs []imageTag
	for _, image := range selected {
		pairs = append(pairs, imageTag{image, sourceTag})
		for _, t := range tags {
			pairs = append(pairs, imageTag{image, t})
		}
	}

	for _, p := range pairs {
		b.log.Infof("Triggering ecr for %s, %s ...", p.image, p.tag)
		if b.cfg.DryRun {
			continue
		}
		for i, ep := range eps {
			b.log.Infof("Doing endpoint %d ...", i+1)
			resp, err := b.hooks.Trigger(ctx, ep, p.image, p.tag)
			if webhook.IsNotFound(err) {
				b.log.Info("Trigger returned status: 404")
				continue
			}
			if err != nil {
				return fmt.Errorf("trigger ecr for %s:%s (endpoint %d): %w", p.image, p.tag, i+1, err)
			}
			b.log.Infof("Trigger returned status: %d", resp.StatusCode)
			b.log.Infof("Trigger returned response: %s", resp.Body)
			b.sleep(b.cfg.TriggerPause)
		}
	}
	return nil
}

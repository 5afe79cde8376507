// internal/docker/plan.go
//
// Run executes a Plan the way the CI build job does:
//
//   - every image in catalog order (all of them when releasing)
//   - tag main  -> no build; retag develop as main
//   - otherwise -> [remove locks] -> [build] -> [update locks] -> [push]
//   - then the release retag, then the ECR mirror trigger
//
// Nothing is retried; the first failure aborts the run.

package docker

import (
	"context"
	"fmt"
)

func (b *Builder) Run(ctx context.Context, p Plan) error {
	if err := CheckTags(p.Tag, p.Release); err != nil {
		return err
	}
	images := p.Images
	if p.Release != nil {
		images = nil
	}
	selected, err := b.selectImages(images)
	if err != nil {
		return err
	}
	if p.TriggerECR && len(p.ECREndpoints) == 0 {
		return invalidf("an ECR endpoint is required to trigger the mirror")
	}
	if err := checkBuildArgs(p.BuildArgs); err != nil {
		return err
	}
	if _, err := splitArgs(p.ExtraArgs); err != nil {
		return err
	}

	b.log.Debugf("Images to build: %v", selected)
	for _, image := range selected {
		b.log.Debugf("Working on: %s", image)

		// main is never built directly: it is the latest develop, retagged
		if p.Tag == mainTag {
			if _, err := b.Release(ctx, developTag, []string{mainTag}, []string{image}, false); err != nil {
				return fmt.Errorf("%s: %w", image, err)
			}
			continue
		}

		if p.UpdateLock {
			if err := b.RemoveLockfiles(image); err != nil {
				return fmt.Errorf("%s: %w", image, err)
			}
		}
		if !p.NoBuild {
			opts := BuildOptions{BuildArgs: p.BuildArgs, ExtraArgs: p.ExtraArgs}
			if err := b.Build(ctx, image, p.Tag, opts); err != nil {
				return fmt.Errorf("%s: %w", image, err)
			}
		}
		if p.UpdateLock {
			if err := b.UpdateLockfiles(ctx, image, p.Tag, ""); err != nil {
				return fmt.Errorf("%s: %w", image, err)
			}
		}
		if p.Push {
			if err := b.Push(ctx, image, p.Tag); err != nil {
				return fmt.Errorf("%s: %w", image, err)
			}
		}
	}

	if p.Release != nil {
		tags, err := b.Release(ctx, p.Tag, p.Release, selected, p.ExportLock)
		if err != nil {
			return err
		}
		b.log.Infof("Released %v as %v", selected, tags)
	}

	if p.TriggerECR {
		if err := b.PushToECR(ctx, p.ECREndpoints, p.Tag, p.Release, selected); err != nil {
			return err
		}
	}
	return nil
}

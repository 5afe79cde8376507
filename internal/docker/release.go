// internal/docker/release.go
package docker

import "context"

// Release retags already published images: for every selected image (all
// when images is nil) it pulls registry/repository/image:sourceTag,
// optionally exports its lock files, then tags and pushes it under each
// release tag. It returns the tags actually published, which include
// stable when releasing main.
func (b *Builder) Release(ctx context.Context, sourceTag string, releaseTags, images []string, exportLock bool) ([]string, error) {
	if err := CheckTags(sourceTag, releaseTags); err != nil {
		return nil, err
	}
	selected, err := b.selectImages(images)
	if err != nil {
		return nil, err
	}
	tags := ReleaseTags(sourceTag, releaseTags)

	for _, image := range selected {
		src, err := b.FullTag(image, sourceTag)
		if err != nil {
			return nil, err
		}
		if err := b.pullRef(ctx, src); err != nil {
			return nil, err
		}
		if exportLock {
			if err := b.ExportLockfiles(ctx, image, sourceTag, ""); err != nil {
				return nil, err
			}
		}
		for _, t := range tags {
			dst, err := b.FullTag(image, t)
			if err != nil {
				return nil, err
			}
			if err := b.tagRef(ctx, src, dst); err != nil {
				return nil, err
			}
			if err := b.pushRef(ctx, dst); err != nil {
				return nil, err
			}
		}
	}
	return tags, nil
}

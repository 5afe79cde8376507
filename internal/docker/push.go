// internal/docker/push.go
//
// Registry side of the flow: push, pull and local retagging. Registry login
// is left to the CI job (docker/login-action or a preceding docker login).

package docker

import "context"

// Push pushes registry/repository/image:tag.
func (b *Builder) Push(ctx context.Context, image, tag string) error {
	if _, err := b.lookup(image); err != nil {
		return err
	}
	fullTag, err := b.FullTag(image, tag)
	if err != nil {
		return err
	}
	return b.pushRef(ctx, fullTag)
}

func (b *Builder) pullRef(ctx context.Context, ref string) error {
	b.log.Infof("Pulling %s ...", ref)
	_, err := b.docker(ctx, pushTimeout, "pull", ref)
	return err
}

func (b *Builder) tagRef(ctx context.Context, src, dst string) error {
	b.log.Infof("Tagging %s with %s", src, dst)
	_, err := b.docker(ctx, pushTimeout, "tag", src, dst)
	return err
}

func (b *Builder) pushRef(ctx context.Context, ref string) error {
	b.log.Infof("Pushing %s ...", ref)
	_, err := b.docker(ctx, pushTimeout, "push", ref)
	return err
}

// internal/docker/lockfiles.go
//
// Conda lock files live next to each Dockerfile:
//   <image>/conda-<env>.yml       environment definition (source)
//   <image>/conda-<env>-lock.yml  exported from a built image
// Anything matching conda-*lock.yml is regenerable.

package docker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"imagectl/internal/executil"
)

var envFileRe = regexp.MustCompile(`^conda-(.*)\.yml$`)

// RemoveLockfiles deletes every conda-*lock.yml in the image context.
func (b *Builder) RemoveLockfiles(image string) error {
	if _, err := b.lookup(image); err != nil {
		return err
	}
	b.log.Infof("Removing the lock files for %s", image)
	lockfiles, err := filepath.Glob(filepath.Join(b.contextDir(image), "conda-*lock.yml"))
	if err != nil {
		return err
	}
	for _, f := range lockfiles {
		b.log.Infof("Removing %s", f)
		if b.cfg.DryRun {
			continue
		}
		if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove lock file: %w", err)
		}
	}
	return nil
}

// UpdateLockfiles regenerates conda-<env>-lock.yml for every environment
// definition of image by exporting the environment from the built
// image:tag. extraArgs go to docker run.
func (b *Builder) UpdateLockfiles(ctx context.Context, image, tag, extraArgs string) error {
	if _, err := b.lookup(image); err != nil {
		return err
	}
	fullTag, err := b.FullTag(image, tag)
	if err != nil {
		return err
	}
	extra, err := splitArgs(extraArgs)
	if err != nil {
		return err
	}

	b.log.Infof("Updating the lock files for %s", image)
	dir := b.contextDir(image)
	envfiles, err := filepath.Glob(filepath.Join(dir, "conda-*.yml"))
	if err != nil {
		return err
	}
	for _, env := range envfiles {
		if strings.Contains(filepath.Base(env), "lock") {
			continue
		}
		envName := "base"
		if m := envFileRe.FindStringSubmatch(filepath.Base(env)); m != nil {
			envName = m[1]
		}

		args := []string{"run", "--entrypoint", "", "--rm"}
		args = append(args, extra...)
		args = append(args, fullTag, "mamba", "env", "export", "-n", envName)
		res, err := b.runner.Run(ctx, executil.Command{
			Name:    "docker",
			Args:    args,
			Timeout: lockTimeout,
			Capture: true,
		})
		if err != nil {
			return err
		}
		if res == nil {
			// dry-run
			continue
		}
		lockfile := filepath.Join(dir, "conda-"+envName+"-lock.yml")
		if err := os.WriteFile(lockfile, []byte(trimEnvExport(res.Stdout)), 0o644); err != nil {
			return fmt.Errorf("write lock file: %w", err)
		}
	}
	return nil
}

// trimEnvExport drops whatever mamba printed before the environment (banners,
// warnings): output starts at the first line containing "name:".
func trimEnvExport(out string) string {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if strings.Contains(line, "name:") {
			return strings.Join(lines[i:], "\n")
		}
	}
	return ""
}

// LockDir is where ExportLockfiles copies an image's lock files.
func (b *Builder) LockDir(image string) string {
	return filepath.Join(b.cfg.Root, image+"_locks")
}

// ExportLockfiles copies the lock files an image keeps under $LOCK_DIR into
// LockDir(image) without looking at them.
func (b *Builder) ExportLockfiles(ctx context.Context, image, tag, extraArgs string) error {
	if _, err := b.lookup(image); err != nil {
		return err
	}
	fullTag, err := b.FullTag(image, tag)
	if err != nil {
		return err
	}
	extra, err := splitArgs(extraArgs)
	if err != nil {
		return err
	}

	lockDir := b.LockDir(image)
	b.log.Infof("exporting the lock files for %s to %s", image, lockDir)
	if !b.cfg.DryRun {
		if err := os.MkdirAll(lockDir, 0o755); err != nil {
			return fmt.Errorf("create lock dir: %w", err)
		}
	}
	abs, err := filepath.Abs(lockDir)
	if err != nil {
		return err
	}

	args := []string{"run", "--entrypoint", "", "--rm",
		"-v", abs + ":/host",
		"--user", strconv.Itoa(os.Getuid()),
	}
	args = append(args, extra...)
	args = append(args, fullTag, "bash", "-c", "cp $LOCK_DIR/* /host/")
	_, err = b.docker(ctx, exportTimeout, args...)
	return err
}

// images carrying /opt/envs when none are named
var defaultEnvImages = []string{"fornax-main", "fornax-hea"}

// ExportEnvs copies /opt/envs out of each image into <root>/opt/envs and
// packs the result as <root>/opt_envs.tgz.
func (b *Builder) ExportEnvs(ctx context.Context, images []string, tag string) error {
	if len(images) == 0 {
		images = defaultEnvImages
	}
	selected, err := b.selectImages(images)
	if err != nil {
		return err
	}
	fullTags := make([]string, len(selected))
	for i, image := range selected {
		if fullTags[i], err = b.FullTag(image, tag); err != nil {
			return err
		}
	}

	for i, image := range selected {
		tarball := filepath.Join(b.cfg.Root, image+"_envs.tar")
		b.log.Infof("exporting /opt/envs of %s via %s", image, tarball)
		if err := b.streamEnvs(ctx, fullTags[i], tarball); err != nil {
			return err
		}
		if _, err := b.runner.Run(ctx, executil.Command{
			Name:    "tar",
			Args:    []string{"-xf", filepath.Base(tarball)},
			Dir:     b.cfg.Root,
			Timeout: exportTimeout,
		}); err != nil {
			return err
		}
		if !b.cfg.DryRun {
			_ = os.Remove(tarball)
		}
	}

	_, err = b.runner.Run(ctx, executil.Command{
		Name:    "tar",
		Args:    []string{"-zcf", "opt_envs.tgz", "opt/envs"},
		Dir:     b.cfg.Root,
		Timeout: exportTimeout,
	})
	return err
}

func (b *Builder) streamEnvs(ctx context.Context, fullTag, tarball string) error {
	cmd := executil.Command{
		Name:    "docker",
		Args:    []string{"run", "--rm", "--entrypoint", "tar", fullTag, "-cf", "-", "/opt/envs"},
		Timeout: envsTimeout,
	}
	if b.cfg.DryRun {
		_, err := b.runner.Run(ctx, cmd)
		return err
	}
	f, err := os.Create(tarball)
	if err != nil {
		return fmt.Errorf("create %s: %w", tarball, err)
	}
	cmd.Stdout = f
	_, err = b.runner.Run(ctx, cmd)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

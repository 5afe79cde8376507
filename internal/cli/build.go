package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"imagectl/internal/docker"
	"imagectl/internal/runtime"
)

// builderFlags are shared by every command that drives a docker.Builder.
type builderFlags struct {
	registry   string
	repository string
	platform   string
	root       string
	config     string
}

func (f *builderFlags) register(fs *pflag.FlagSet) {
	def := docker.DefaultConfig()
	fs.StringVar(&f.registry, "registry", def.Registry, "container registry name (env IMAGECTL_REGISTRY)")
	fs.StringVar(&f.repository, "repository", def.Repository, "GH repository name (env IMAGECTL_REPOSITORY)")
	fs.StringVar(&f.platform, "platform", def.Platform, "docker build --platform, empty to omit (env IMAGECTL_PLATFORM)")
	fs.StringVar(&f.root, "root", def.Root, "directory holding one build context per image (env IMAGECTL_ROOT)")
	fs.StringVar(&f.config, "config", "", "image catalog YAML (default: built-in catalog)")
}

func (a *app) builder(f *builderFlags) (*docker.Builder, error) {
	catalog, err := a.catalog(f.config)
	if err != nil {
		return nil, err
	}
	cfg := docker.DefaultConfig()
	cfg.Registry = f.registry
	cfg.Repository = f.repository
	cfg.Platform = f.platform
	cfg.Root = f.root
	cfg.DryRun = a.dryRun
	return docker.New(cfg, catalog, a.runner(),
		docker.WithLogger(logrus.NewEntry(a.log)),
		docker.WithNotifier(a.hooks),
	)
}

// tagOrBranch returns tag, or the checked out branch when tag is empty.
func (a *app) tagOrBranch(cmd *cobra.Command, tag, root string) (string, error) {
	if tag != "" {
		return tag, nil
	}
	return runtime.CurrentBranch(cmd.Context(), a.runner(), root)
}

// imageArgs accepts either image names or a single JSON list, the form
// CI jobs pass along from the changed step.
func imageArgs(args []string) ([]string, error) {
	if len(args) == 1 && strings.Contains(args[0], "[") {
		var list []string
		if err := json.Unmarshal([]byte(args[0]), &list); err != nil {
			return nil, usagef("invalid image list %q: %v", args[0], err)
		}
		return list, nil
	}
	return append([]string{}, args...), nil
}

type buildOptions struct {
	builderFlags

	tag         string
	push        bool
	release     []string
	exportLock  bool
	triggerECR  bool
	ecrEndpoint []string
	noBuild     bool
	updateLock  bool
	buildArgs   []string
	extraPars   string
	listImages  bool
}

func newBuildCmd(a *app) *cobra.Command {
	o := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build [images...]",
		Short: "Build, push and release images",
		Long: `Build the named images in catalog order, then optionally push them,
retag them as a release and trigger the ECR mirror.

Images may also be given as a single JSON list: build '["fornax-main"]'.
Building the main tag never runs docker build: the develop images are
retagged as main instead.`,
		Example: `  imagectl build fornax-base fornax-main --tag my-branch --push
  imagectl build --tag develop --release=2025.1
  imagectl build --tag main --release= --trigger-ecr --ecr-endpoint https://...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBuild(cmd, args, o)
		},
	}

	fs := cmd.Flags()
	o.builderFlags.register(fs)
	var ecrDefault []string
	if ep := envDefault("IMAGECTL_ECR_ENDPOINT", ""); ep != "" {
		ecrDefault = []string{ep}
	}
	fs.StringVar(&o.tag, "tag", "", "container registry tag name (default: current git branch)")
	fs.BoolVar(&o.push, "push", false, "after building, push to the container registry")
	fs.StringSliceVar(&o.release, "release", nil, "release the images under these comma separated tags; a bare --release is rejected, use --release= for the implied tags only")
	fs.BoolVar(&o.exportLock, "export-lock", false, "export the lock files of released images")
	fs.BoolVar(&o.triggerECR, "trigger-ecr", false, "trigger the ECR webhook")
	fs.StringArrayVar(&o.ecrEndpoint, "ecr-endpoint", ecrDefault, "endpoint triggering the push to the ECR, repeatable (env IMAGECTL_ECR_ENDPOINT)")
	fs.BoolVar(&o.noBuild, "no-build", false, "do not run docker build")
	fs.BoolVar(&o.updateLock, "update-lock", false, "update the conda lock files")
	fs.StringArrayVar(&o.buildArgs, "build-args", nil, "extra docker build --build-arg NAME=value, repeatable")
	fs.StringVar(&o.extraPars, "extra-pars", "", "arguments passed to docker build")
	fs.BoolVar(&o.listImages, "list-images", false, "print the catalog images and exit")
	return cmd
}

func (a *app) runBuild(cmd *cobra.Command, args []string, o *buildOptions) error {
	log := a.entry("build")
	if o.listImages {
		return a.printImages(o.config)
	}
	imgs, err := imageArgs(args)
	if err != nil {
		return err
	}

	var release []string
	releasing := cmd.Flags().Changed("release")
	if releasing {
		release = append([]string{}, o.release...)
	}
	if len(imgs) == 0 && !releasing && !o.triggerECR {
		log.Info("no images given, nothing to do")
		return nil
	}

	b, err := a.builder(&o.builderFlags)
	if err != nil {
		return err
	}
	tag := o.tag
	if len(imgs) > 0 || releasing || o.triggerECR {
		if tag, err = a.tagOrBranch(cmd, tag, o.root); err != nil {
			return fmt.Errorf("default tag: %w", err)
		}
	}

	if err := os.Setenv("DOCKER_BUILDKIT", "1"); err != nil {
		return err
	}

	log.Debug("+++ INPUT +++")
	cfg := b.Config()
	log.Debugf("images: %v", imgs)
	log.Debugf("catalog: %v", b.Catalog().Names())
	log.Debugf("registry: %s", cfg.Registry)
	log.Debugf("repository: %s", cfg.Repository)
	log.Debugf("root: %s", cfg.Root)
	log.Debugf("tag: %s", tag)
	log.Debugf("push: %v", o.push)
	log.Debugf("release: %v", lo.Ternary(releasing, fmt.Sprint(release), "<none>"))
	log.Debugf("update_lock: %v", o.updateLock)
	log.Debugf("no_build: %v", o.noBuild)
	log.Debugf("build_args: %v", o.buildArgs)
	log.Debugf("extra_pars: %s", o.extraPars)
	log.Debug("+++++++++++++")

	return b.Run(cmd.Context(), docker.Plan{
		Images:       imgs,
		Tag:          tag,
		Push:         o.push,
		UpdateLock:   o.updateLock,
		NoBuild:      o.noBuild,
		BuildArgs:    o.buildArgs,
		ExtraArgs:    o.extraPars,
		Release:      release,
		ExportLock:   o.exportLock,
		TriggerECR:   o.triggerECR,
		ECREndpoints: o.ecrEndpoint,
	})
}

func newImagesCmd(a *app) *cobra.Command {
	var config string
	cmd := &cobra.Command{
		Use:   "images",
		Short: "List the catalog images in build order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.printImages(config)
		},
	}
	cmd.Flags().StringVar(&config, "config", "", "image catalog YAML (default: built-in catalog)")
	return cmd
}

func (a *app) printImages(config string) error {
	catalog, err := a.catalog(config)
	if err != nil {
		return err
	}
	for _, name := range catalog.Names() {
		fmt.Fprintln(a.out, name)
	}
	return nil
}

func newExportEnvsCmd(a *app) *cobra.Command {
	var (
		f   builderFlags
		tag string
	)
	cmd := &cobra.Command{
		Use:   "export-envs [images...]",
		Short: "Pack /opt/envs of the images into opt_envs.tgz",
		Long: `Copy /opt/envs out of each image and pack them as opt_envs.tgz in the
root directory. Defaults to fornax-main and fornax-hea.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			imgs, err := imageArgs(args)
			if err != nil {
				return err
			}
			b, err := a.builder(&f)
			if err != nil {
				return err
			}
			if tag, err = a.tagOrBranch(cmd, tag, f.root); err != nil {
				return fmt.Errorf("default tag: %w", err)
			}
			return b.ExportEnvs(cmd.Context(), imgs, tag)
		},
	}
	f.register(cmd.Flags())
	cmd.Flags().StringVar(&tag, "tag", "", "image tag (default: current git branch)")
	return cmd
}

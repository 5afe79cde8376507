// Package images holds the ordered catalog of buildable images.
//
// Order matters: each image is built FROM one that comes earlier, so every
// selection is returned in catalog order regardless of how it was asked for.
package images

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"imagectl/internal/assets"
)

// ErrUnknownImage is returned for names that are not in the catalog.
var ErrUnknownImage = errors.New("unknown image")

// Image is one build context directory with a Dockerfile.
type Image struct {
	Name string `yaml:"name"`
	// Root images have no parent in this repository, so they get no
	// REPOSITORY/REGISTRY/BASE_TAG build args.
	Root            bool `yaml:"root,omitempty"`
	SkipCommonFiles bool `yaml:"skip_common_files,omitempty"`
}

// Catalog is the ordered image set.
type Catalog struct {
	Images      []Image  `yaml:"images"`
	CommonFiles []string `yaml:"common_files,omitempty"`
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(assets.ImagesYAML())
	if err != nil {
		panic(fmt.Sprintf("images: embedded catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from a YAML file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse image catalog: %w", err)
	}
	if len(c.Images) == 0 {
		return nil, errors.New("image catalog has no images")
	}
	seen := make(map[string]struct{}, len(c.Images))
	for i, img := range c.Images {
		name := strings.TrimSpace(img.Name)
		if name == "" {
			return nil, fmt.Errorf("image #%d has no name", i+1)
		}
		if strings.ContainsAny(name, ":/ ") {
			return nil, fmt.Errorf("image name %q must be a plain directory name", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("image %q listed twice", name)
		}
		seen[name] = struct{}{}
		c.Images[i].Name = name
	}
	return &c, nil
}

// Names returns every image name in build order.
func (c *Catalog) Names() []string {
	return lo.Map(c.Images, func(img Image, _ int) string { return img.Name })
}

// Has reports whether name is a catalog image.
func (c *Catalog) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Get looks an image up by name.
func (c *Catalog) Get(name string) (Image, bool) {
	return lo.Find(c.Images, func(img Image) bool { return img.Name == name })
}

// Select validates names and returns them deduplicated in build order.
// A nil selection means every image.
func (c *Catalog) Select(names []string) ([]string, error) {
	if names == nil {
		return c.Names(), nil
	}
	for _, n := range names {
		if !c.Has(n) {
			return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownImage, n, strings.Join(c.Names(), ", "))
		}
	}
	wanted := lo.Uniq(names)
	return lo.Filter(c.Names(), func(n string, _ int) bool { return lo.Contains(wanted, n) }), nil
}

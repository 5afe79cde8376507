package assets

import (
	_ "embed"
)

//go:embed images.yaml
var imagesYAML []byte

// ImagesYAML returns the embedded default image catalog.
func ImagesYAML() []byte {
	out := make([]byte, len(imagesYAML))
	copy(out, imagesYAML)
	return out
}

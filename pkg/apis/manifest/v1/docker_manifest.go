package v1

import (
	"iter"

	specv1 "github.com/opencontainers/image-spec/specs-go/v1"
)

// DockerManifest is a schema 2 image manifest.
type DockerManifest specv1.Manifest

var _ Manifest = DockerManifest{}

func (DockerManifest) Type() string {
	return MediaTypeManifestV2
}

func (m DockerManifest) Schema() int {
	return m.SchemaVersion
}

func (m DockerManifest) References() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		if !yield(m.Config) {
			return
		}
		for _, l := range m.Layers {
			if !yield(l) {
				return
			}
		}
	}
}

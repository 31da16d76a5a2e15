package v1

import (
	"iter"

	"github.com/opencontainers/go-digest"
)

// DockerManifestV1 is a legacy schema 1 image manifest.
//
// Schema 1 documents carry no mediaType field; the type is inferred from
// schemaVersion during unmarshalling.
type DockerManifestV1 struct {
	SchemaVersion int    `json:"schemaVersion"`
	Name          string `json:"name,omitempty"`
	Tag           string `json:"tag,omitempty"`
	Architecture  string `json:"architecture,omitempty"`

	FSLayers []FSLayer   `json:"fsLayers"`
	History  []V1History `json:"history,omitempty"`
}

type FSLayer struct {
	BlobSum digest.Digest `json:"blobSum"`
}

type V1History struct {
	V1Compatibility string `json:"v1Compatibility"`
}

var _ Manifest = DockerManifestV1{}

func (DockerManifestV1) Type() string {
	return MediaTypeManifestV1
}

func (m DockerManifestV1) Schema() int {
	return m.SchemaVersion
}

func (m DockerManifestV1) References() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		for _, l := range m.FSLayers {
			if !yield(Descriptor{
				MediaType: MediaTypeRegularBlob,
				Digest:    l.BlobSum,
			}) {
				return
			}
		}
	}
}

package v1

import (
	"iter"

	"github.com/opencontainers/go-digest"
)

// DockerManifestList references one manifest per platform.
type DockerManifestList struct {
	SchemaVersion int              `json:"schemaVersion"`
	MediaType     string           `json:"mediaType,omitempty"`
	Manifests     []ListedManifest `json:"manifests"`
}

type ListedManifest struct {
	MediaType string        `json:"mediaType,omitempty"`
	Size      int64         `json:"size,omitempty"`
	Digest    digest.Digest `json:"digest"`
	Platform  *Platform     `json:"platform,omitempty"`
}

// Platform is the platform block of a manifest list entry.
//
// Unlike the OCI descriptor platform it carries the legacy `features` array.
type Platform struct {
	Architecture string   `json:"architecture,omitempty"`
	OS           string   `json:"os,omitempty"`
	OSVersion    string   `json:"os.version,omitempty"`
	OSFeatures   []string `json:"os.features,omitempty"`
	Variant      string   `json:"variant,omitempty"`
	Features     []string `json:"features,omitempty"`
}

var _ Manifest = DockerManifestList{}

func (DockerManifestList) Type() string {
	return MediaTypeManifestList
}

func (m DockerManifestList) Schema() int {
	return m.SchemaVersion
}

func (m DockerManifestList) References() iter.Seq[Descriptor] {
	return func(yield func(Descriptor) bool) {
		for _, l := range m.Manifests {
			if !yield(Descriptor{
				MediaType: l.MediaType,
				Size:      l.Size,
				Digest:    l.Digest,
			}) {
				return
			}
		}
	}
}

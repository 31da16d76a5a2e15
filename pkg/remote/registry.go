package remote

import (
	"fmt"
	"path"
	"strings"

	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

type Registry struct {
	// Remote container registry endpoint
	Endpoint string `flag:",omitzero"`
	// Remote container registry username
	Username string `flag:",omitzero"`
	// Remote container registry password
	Password string `flag:",omitzero,secret"`
}

// NamespacedName normalizes a repository name the way docker hub does:
// a name without a namespace lives under library/.
func NamespacedName(name string) (string, error) {
	named, err := reference.WithName(name)
	if err != nil {
		return "", err
	}

	n := named.Name()
	if !strings.Contains(n, "/") {
		return path.Join("library", n), nil
	}
	return n, nil
}

func (r Registry) ManifestURL(name string, ref string) string {
	return fmt.Sprintf("%s/v2/%s/manifests/%s", strings.TrimRight(r.Endpoint, "/"), name, ref)
}

func (r Registry) BlobURL(name string, dgst digest.Digest) string {
	return fmt.Sprintf("%s/v2/%s/blobs/%s", strings.TrimRight(r.Endpoint, "/"), name, dgst)
}

func (r Registry) TagsURL(name string) string {
	return fmt.Sprintf("%s/v2/%s/tags/list", strings.TrimRight(r.Endpoint, "/"), name)
}

type TagList struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

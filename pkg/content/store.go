package content

import (
	"context"
	"io"

	manifestv1 "github.com/octohelm/mirrorkit/pkg/apis/manifest/v1"
	"github.com/opencontainers/go-digest"
)

// Store maps a content digest to immutable bytes.
//
// Entries become visible only after the bytes are durably written and the
// digest verified. Put is idempotent per digest: re-putting identical content
// returns the existing descriptor without touching storage.
type Store interface {
	Ingester
	Provider
}

type Ingester interface {
	Put(ctx context.Context, expected manifestv1.Descriptor, r io.Reader) (*manifestv1.Descriptor, error)
}

type Provider interface {
	Stat(ctx context.Context, dgst digest.Digest) (*manifestv1.Descriptor, error)
	Open(ctx context.Context, dgst digest.Digest) (io.ReadCloser, error)
}

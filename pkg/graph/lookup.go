package graph

import (
	"context"
	"database/sql"
	"errors"

	"github.com/opencontainers/go-digest"

	"github.com/octohelm/mirrorkit/pkg/content"
)

func (g *Graph) Blob(ctx context.Context, dgst digest.Digest) (*Blob, error) {
	b := &Blob{}
	if err := g.db.GetContext(ctx, b, "SELECT * FROM blobs WHERE digest = ?", dgst); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &content.ErrBlobUnknown{Digest: dgst}
		}
		return nil, err
	}
	return b, nil
}

// requireBlob resolves a blob referenced by a manifest being ingested.
func (g *Graph) requireBlob(ctx context.Context, dgst digest.Digest) (*Blob, error) {
	b, err := g.Blob(ctx, dgst)
	if err != nil {
		unknown := &content.ErrBlobUnknown{}
		if errors.As(err, &unknown) {
			return nil, &content.ErrManifestBlobUnknown{Digest: dgst}
		}
		return nil, err
	}
	return b, nil
}

func (g *Graph) Manifest(ctx context.Context, dgst digest.Digest) (*Manifest, error) {
	m := &Manifest{}
	if err := g.db.GetContext(ctx, m, "SELECT * FROM manifests WHERE digest = ?", dgst); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &content.ErrManifestUnknownRevision{Revision: dgst}
		}
		return nil, err
	}
	return m, nil
}

func (g *Graph) ManifestList(ctx context.Context, dgst digest.Digest) (*ManifestList, error) {
	l := &ManifestList{}
	if err := g.db.GetContext(ctx, l, "SELECT * FROM manifest_lists WHERE digest = ?", dgst); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &content.ErrManifestUnknownRevision{Revision: dgst}
		}
		return nil, err
	}
	return l, nil
}

// LayersOf returns the blob joins of a manifest in layer order.
func (g *Graph) LayersOf(ctx context.Context, dgst digest.Digest) ([]ManifestBlob, error) {
	joins := make([]ManifestBlob, 0)
	if err := g.db.SelectContext(ctx, &joins,
		"SELECT * FROM manifest_blobs WHERE manifest_digest = ? ORDER BY position", dgst,
	); err != nil {
		return nil, err
	}
	return joins, nil
}

// ManifestsOf returns the platform-annotated manifest joins of a manifest list.
func (g *Graph) ManifestsOf(ctx context.Context, dgst digest.Digest) ([]ManifestListManifest, error) {
	joins := make([]ManifestListManifest, 0)
	if err := g.db.SelectContext(ctx, &joins,
		"SELECT * FROM manifest_list_manifests WHERE list_digest = ? ORDER BY manifest_digest", dgst,
	); err != nil {
		return nil, err
	}
	return joins, nil
}

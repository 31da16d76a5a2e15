package graph

import (
	"context"

	"github.com/opencontainers/go-digest"

	"github.com/octohelm/mirrorkit/pkg/content"
)

// Tag points a name at a manifest revision. Earlier revisions tagged under
// the same name are retained, so a name accumulates its tag history.
func (g *Graph) Tag(ctx context.Context, name string, dgst digest.Digest) (*ManifestTag, error) {
	if _, err := g.Manifest(ctx, dgst); err != nil {
		return nil, err
	}

	if _, err := g.db.ExecContext(ctx,
		"INSERT INTO manifest_tags (name, manifest_digest) VALUES (?, ?) "+
			"ON CONFLICT (name, manifest_digest) DO NOTHING",
		name, dgst,
	); err != nil {
		return nil, err
	}

	return &ManifestTag{Name: name, ManifestDigest: dgst}, nil
}

// TagList points a name at a manifest list revision, like Tag does for
// manifests.
func (g *Graph) TagList(ctx context.Context, name string, dgst digest.Digest) (*ManifestListTag, error) {
	if _, err := g.ManifestList(ctx, dgst); err != nil {
		return nil, err
	}

	if _, err := g.db.ExecContext(ctx,
		"INSERT INTO manifest_list_tags (name, list_digest) VALUES (?, ?) "+
			"ON CONFLICT (name, list_digest) DO NOTHING",
		name, dgst,
	); err != nil {
		return nil, err
	}

	return &ManifestListTag{Name: name, ListDigest: dgst}, nil
}

// TagsOf returns every manifest revision recorded under a name.
func (g *Graph) TagsOf(ctx context.Context, name string) ([]ManifestTag, error) {
	tags := make([]ManifestTag, 0)
	if err := g.db.SelectContext(ctx, &tags,
		"SELECT * FROM manifest_tags WHERE name = ? ORDER BY manifest_digest", name,
	); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, &content.ErrTagUnknown{Tag: name}
	}
	return tags, nil
}

// ListTagsOf returns every manifest list revision recorded under a name.
func (g *Graph) ListTagsOf(ctx context.Context, name string) ([]ManifestListTag, error) {
	tags := make([]ManifestListTag, 0)
	if err := g.db.SelectContext(ctx, &tags,
		"SELECT * FROM manifest_list_tags WHERE name = ? ORDER BY list_digest", name,
	); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, &content.ErrTagUnknown{Tag: name}
	}
	return tags, nil
}

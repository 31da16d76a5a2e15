package graph

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/opencontainers/go-digest"

	manifestv1 "github.com/octohelm/mirrorkit/pkg/apis/manifest/v1"
	"github.com/octohelm/mirrorkit/pkg/content"
)

// IngestBlob registers a blob whose bytes are already present in the store.
//
// Re-ingesting a known digest with identical media type and size returns the
// existing entity.
func (g *Graph) IngestBlob(ctx context.Context, desc manifestv1.Descriptor) (*Blob, error) {
	stored, err := g.store.Stat(ctx, desc.Digest)
	if err != nil {
		return nil, err
	}

	b := &Blob{
		Digest:    desc.Digest,
		MediaType: desc.MediaType,
		Size:      stored.Size,
	}

	if _, err := g.db.ExecContext(ctx,
		"INSERT INTO blobs (digest, media_type, size) VALUES (?, ?, ?) "+
			"ON CONFLICT (digest) DO NOTHING",
		b.Digest, b.MediaType, b.Size,
	); err != nil {
		return nil, err
	}

	existing := &Blob{}
	if err := g.db.GetContext(ctx, existing, "SELECT * FROM blobs WHERE digest = ?", b.Digest); err != nil {
		return nil, err
	}

	if existing.MediaType != b.MediaType || existing.Size != b.Size {
		return nil, &content.ErrDigestConflict{
			Digest: b.Digest,
			Reason: "existing blob entity does not match",
		}
	}

	return existing, nil
}

// IngestManifest parses a manifest document, writes its bytes through the
// store and records the entity plus its blob references.
//
// Every referenced config and layer blob must already be ingested.
func (g *Graph) IngestManifest(ctx context.Context, raw []byte, dgst digest.Digest, mediaType string) (*Manifest, error) {
	payload := &manifestv1.Payload{}
	if err := payload.UnmarshalJSON(raw); err != nil {
		return nil, err
	}

	_, computed, err := payload.Payload()
	if err != nil {
		return nil, err
	}
	if dgst != "" && dgst != computed {
		return nil, &content.ErrBlobInvalidDigest{
			Digest: computed,
			Reason: errors.New("manifest content does not match " + dgst.String()),
		}
	}

	if mediaType == "" {
		mediaType = payload.Type()
	}

	if expected := manifestv1.SchemaVersionFor(mediaType); expected == 0 || payload.Schema() != expected {
		return nil, &content.ErrSchemaVersionInvalid{
			MediaType:     mediaType,
			SchemaVersion: payload.Schema(),
		}
	}

	m := &Manifest{
		Digest:        computed,
		SchemaVersion: payload.Schema(),
		MediaType:     mediaType,
	}

	layers := make([]digest.Digest, 0)

	switch doc := payload.Manifest.(type) {
	case *manifestv1.DockerManifest:
		if doc.Config.Digest != "" {
			if _, err := g.requireBlob(ctx, doc.Config.Digest); err != nil {
				return nil, err
			}
			m.ConfigBlobDigest = sql.NullString{String: doc.Config.Digest.String(), Valid: true}
		}
		for _, l := range doc.Layers {
			if _, err := g.requireBlob(ctx, l.Digest); err != nil {
				return nil, err
			}
			layers = append(layers, l.Digest)
		}
	case *manifestv1.DockerManifestV1:
		for _, l := range doc.FSLayers {
			if _, err := g.requireBlob(ctx, l.BlobSum); err != nil {
				return nil, err
			}
			layers = append(layers, l.BlobSum)
		}
	default:
		return nil, &content.ErrSchemaVersionInvalid{
			MediaType:     payload.Type(),
			SchemaVersion: payload.Schema(),
		}
	}

	if _, err := g.store.Put(ctx, manifestv1.Descriptor{
		MediaType: mediaType,
		Digest:    computed,
		Size:      int64(len(raw)),
	}, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}

	if err := inTx(ctx, g.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO manifests (digest, schema_version, media_type, config_blob_digest) VALUES (?, ?, ?, ?) "+
				"ON CONFLICT (digest) DO NOTHING",
			m.Digest, m.SchemaVersion, m.MediaType, m.ConfigBlobDigest,
		); err != nil {
			return err
		}

		for i, l := range layers {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO manifest_blobs (manifest_digest, blob_digest, position) VALUES (?, ?, ?) "+
					"ON CONFLICT (manifest_digest, blob_digest) DO NOTHING",
				m.Digest, l, i,
			); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return g.Manifest(ctx, m.Digest)
}

// IngestManifestList parses a manifest list document and records the entity
// plus one platform-annotated reference per listed manifest.
//
// Every referenced manifest must already be ingested.
func (g *Graph) IngestManifestList(ctx context.Context, raw []byte, dgst digest.Digest) (*ManifestList, error) {
	payload := &manifestv1.Payload{}
	if err := payload.UnmarshalJSON(raw); err != nil {
		return nil, err
	}

	doc, ok := payload.Manifest.(*manifestv1.DockerManifestList)
	if !ok {
		return nil, &content.ErrSchemaVersionInvalid{
			MediaType:     payload.Type(),
			SchemaVersion: payload.Schema(),
		}
	}

	_, computed, err := payload.Payload()
	if err != nil {
		return nil, err
	}
	if dgst != "" && dgst != computed {
		return nil, &content.ErrBlobInvalidDigest{
			Digest: computed,
			Reason: errors.New("manifest list content does not match " + dgst.String()),
		}
	}

	if doc.SchemaVersion != 2 {
		return nil, &content.ErrSchemaVersionInvalid{
			MediaType:     manifestv1.MediaTypeManifestList,
			SchemaVersion: doc.SchemaVersion,
		}
	}

	joins := make([]ManifestListManifest, 0, len(doc.Manifests))

	for _, listed := range doc.Manifests {
		if _, err := g.Manifest(ctx, listed.Digest); err != nil {
			notFound := &content.ErrManifestUnknownRevision{}
			if errors.As(err, &notFound) {
				return nil, &content.ErrListManifestUnknown{
					Digest: listed.Digest,
				}
			}
			return nil, err
		}

		join := ManifestListManifest{
			ListDigest:     computed,
			ManifestDigest: listed.Digest,
		}
		if p := listed.Platform; p != nil {
			join.Architecture = p.Architecture
			join.OS = p.OS
			join.OSVersion = p.OSVersion
			join.OSFeatures = strings.Join(p.OSFeatures, ",")
			join.Features = strings.Join(p.Features, ",")
			join.Variant = p.Variant
		}
		joins = append(joins, join)
	}

	if _, err := g.store.Put(ctx, manifestv1.Descriptor{
		MediaType: manifestv1.MediaTypeManifestList,
		Digest:    computed,
		Size:      int64(len(raw)),
	}, strings.NewReader(string(raw))); err != nil {
		return nil, err
	}

	if err := inTx(ctx, g.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO manifest_lists (digest, schema_version, media_type) VALUES (?, ?, ?) "+
				"ON CONFLICT (digest) DO NOTHING",
			computed, doc.SchemaVersion, manifestv1.MediaTypeManifestList,
		); err != nil {
			return err
		}

		for _, join := range joins {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO manifest_list_manifests "+
					"(list_digest, manifest_digest, architecture, os, os_version, os_features, features, variant) "+
					"VALUES (?, ?, ?, ?, ?, ?, ?, ?) "+
					"ON CONFLICT (list_digest, manifest_digest) DO NOTHING",
				join.ListDigest, join.ManifestDigest,
				join.Architecture, join.OS, join.OSVersion, join.OSFeatures, join.Features, join.Variant,
			); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return nil, err
	}

	return g.ManifestList(ctx, computed)
}

func inTx(ctx context.Context, db *sqlx.DB, do func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := do(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

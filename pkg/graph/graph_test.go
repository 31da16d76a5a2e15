package graph_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/octohelm/unifs/pkg/filesystem/local"
	testingx "github.com/octohelm/x/testing"
	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	manifestv1 "github.com/octohelm/mirrorkit/pkg/apis/manifest/v1"
	"github.com/octohelm/mirrorkit/pkg/content"
	contentfs "github.com/octohelm/mirrorkit/pkg/content/fs"
	"github.com/octohelm/mirrorkit/pkg/graph"
)

func newGraph(t *testing.T) (*graph.Graph, content.Store) {
	t.Helper()

	tmp := t.TempDir()
	t.Cleanup(func() {
		_ = os.RemoveAll(tmp)
	})

	ctx := context.Background()

	db, err := graph.Open(ctx, "file:"+tmp+"/graph.db")
	testingx.Expect(t, err, testingx.Be[error](nil))
	t.Cleanup(func() {
		_ = db.Close()
	})

	store := contentfs.NewStore(local.NewFS(tmp))

	g := graph.New(db, store)
	testingx.Expect(t, g.Init(ctx), testingx.Be[error](nil))

	return g, store
}

func putBlob(t *testing.T, store content.Store, mediaType string, raw []byte) manifestv1.Descriptor {
	t.Helper()

	desc := manifestv1.Descriptor{
		MediaType: mediaType,
		Digest:    digest.FromBytes(raw),
		Size:      int64(len(raw)),
	}
	_, err := store.Put(context.Background(), desc, bytes.NewReader(raw))
	testingx.Expect(t, err, testingx.Be[error](nil))
	return desc
}

func TestGraphConcurrentIngest(t *testing.T) {
	g, store := newGraph(t)
	ctx := context.Background()

	descs := make([]manifestv1.Descriptor, 32)
	for i := range descs {
		descs[i] = putBlob(t, store, manifestv1.MediaTypeRegularBlob, fmt.Appendf(nil, "layer-%d", i))
	}

	// independent digests land on different pooled connections
	eg := &errgroup.Group{}
	for i := range descs {
		eg.Go(func() error {
			_, err := g.IngestBlob(ctx, descs[i])
			return err
		})
	}
	testingx.Expect(t, eg.Wait(), testingx.Be[error](nil))

	for _, d := range descs {
		b, err := g.Blob(ctx, d.Digest)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, b.Size, testingx.Be(d.Size))
	}
}

func TestGraph(t *testing.T) {
	g, store := newGraph(t)
	ctx := context.Background()

	configRaw := []byte(`{"architecture":"amd64","os":"linux"}`)
	layerRaw := []byte("layer-0")

	configDesc := putBlob(t, store, manifestv1.MediaTypeConfigBlob, configRaw)
	layerDesc := putBlob(t, store, manifestv1.MediaTypeRegularBlob, layerRaw)

	manifestRaw := []byte(fmt.Sprintf(`{
  "schemaVersion": 2,
  "mediaType": %q,
  "config": {"mediaType": %q, "digest": %q, "size": %d},
  "layers": [
    {"mediaType": %q, "digest": %q, "size": %d}
  ]
}`,
		manifestv1.MediaTypeManifestV2,
		manifestv1.MediaTypeConfigBlob, configDesc.Digest, configDesc.Size,
		manifestv1.MediaTypeRegularBlob, layerDesc.Digest, layerDesc.Size,
	))
	manifestDigest := digest.FromBytes(manifestRaw)

	t.Run("manifest before its blobs is rejected", func(t *testing.T) {
		_, err := g.IngestManifest(ctx, manifestRaw, manifestDigest, "")
		unknown := &content.ErrManifestBlobUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})

	t.Run("ingest blobs", func(t *testing.T) {
		b, err := g.IngestBlob(ctx, configDesc)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, b.Size, testingx.Be(configDesc.Size))

		_, err = g.IngestBlob(ctx, layerDesc)
		testingx.Expect(t, err, testingx.Be[error](nil))

		t.Run("re-ingest returns the existing entity", func(t *testing.T) {
			again, err := g.IngestBlob(ctx, configDesc)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, again.Digest, testingx.Be(configDesc.Digest))
		})

		t.Run("re-ingest with a different media type conflicts", func(t *testing.T) {
			bad := configDesc
			bad.MediaType = manifestv1.MediaTypeRegularBlob
			_, err := g.IngestBlob(ctx, bad)
			conflict := &content.ErrDigestConflict{}
			testingx.Expect(t, errors.As(err, &conflict), testingx.Be(true))
		})
	})

	t.Run("ingest manifest", func(t *testing.T) {
		m, err := g.IngestManifest(ctx, manifestRaw, manifestDigest, "")
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, m.Digest, testingx.Be(manifestDigest))
		testingx.Expect(t, m.SchemaVersion, testingx.Be(2))
		testingx.Expect(t, m.ConfigBlobDigest.String, testingx.Be(configDesc.Digest.String()))

		t.Run("manifest bytes are written through the store", func(t *testing.T) {
			d, err := store.Stat(ctx, manifestDigest)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, d.MediaType, testingx.Be(manifestv1.MediaTypeManifestV2))
		})

		t.Run("layers keep document order", func(t *testing.T) {
			layers, err := g.LayersOf(ctx, manifestDigest)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, len(layers), testingx.Be(1))
			testingx.Expect(t, layers[0].BlobDigest, testingx.Be(layerDesc.Digest))
		})

		t.Run("re-ingest is idempotent", func(t *testing.T) {
			again, err := g.IngestManifest(ctx, manifestRaw, manifestDigest, "")
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, again.Digest, testingx.Be(manifestDigest))
		})

		t.Run("declared digest must match content", func(t *testing.T) {
			_, err := g.IngestManifest(ctx, manifestRaw, digest.FromString("other"), "")
			invalid := &content.ErrBlobInvalidDigest{}
			testingx.Expect(t, errors.As(err, &invalid), testingx.Be(true))
		})
	})

	listRaw := []byte(fmt.Sprintf(`{
  "schemaVersion": 2,
  "mediaType": %q,
  "manifests": [
    {"mediaType": %q, "digest": %q, "size": %d, "platform": {"architecture": "amd64", "os": "linux"}}
  ]
}`,
		manifestv1.MediaTypeManifestList,
		manifestv1.MediaTypeManifestV2, manifestDigest, len(manifestRaw),
	))
	listDigest := digest.FromBytes(listRaw)

	t.Run("ingest manifest list", func(t *testing.T) {
		l, err := g.IngestManifestList(ctx, listRaw, listDigest)
		testingx.Expect(t, err, testingx.Be[error](nil))
		testingx.Expect(t, l.Digest, testingx.Be(listDigest))

		t.Run("platform is recorded on the join", func(t *testing.T) {
			joins, err := g.ManifestsOf(ctx, listDigest)
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, len(joins), testingx.Be(1))
			testingx.Expect(t, joins[0].ManifestDigest, testingx.Be(manifestDigest))
			testingx.Expect(t, joins[0].Architecture, testingx.Be("amd64"))
			testingx.Expect(t, joins[0].OS, testingx.Be("linux"))
		})
	})

	t.Run("list referencing an unknown manifest is rejected", func(t *testing.T) {
		orphan := []byte(fmt.Sprintf(`{
  "schemaVersion": 2,
  "mediaType": %q,
  "manifests": [
    {"mediaType": %q, "digest": %q, "size": 2}
  ]
}`,
			manifestv1.MediaTypeManifestList,
			manifestv1.MediaTypeManifestV2, digest.FromString("missing"),
		))
		_, err := g.IngestManifestList(ctx, orphan, digest.FromBytes(orphan))
		unknown := &content.ErrListManifestUnknown{}
		testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
	})

	t.Run("tags", func(t *testing.T) {
		_, err := g.Tag(ctx, "latest", manifestDigest)
		testingx.Expect(t, err, testingx.Be[error](nil))

		t.Run("tagging an unknown manifest is rejected", func(t *testing.T) {
			_, err := g.Tag(ctx, "latest", digest.FromString("missing"))
			unknown := &content.ErrManifestUnknownRevision{}
			testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
		})

		t.Run("moving a tag retains its history", func(t *testing.T) {
			secondRaw := append(bytes.Clone(manifestRaw), '\n')
			secondDigest := digest.FromBytes(secondRaw)

			_, err := g.IngestManifest(ctx, secondRaw, secondDigest, "")
			testingx.Expect(t, err, testingx.Be[error](nil))

			_, err = g.Tag(ctx, "latest", secondDigest)
			testingx.Expect(t, err, testingx.Be[error](nil))

			tags, err := g.TagsOf(ctx, "latest")
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, len(tags), testingx.Be(2))
		})

		t.Run("list tag", func(t *testing.T) {
			_, err := g.TagList(ctx, "latest", listDigest)
			testingx.Expect(t, err, testingx.Be[error](nil))

			tags, err := g.ListTagsOf(ctx, "latest")
			testingx.Expect(t, err, testingx.Be[error](nil))
			testingx.Expect(t, len(tags), testingx.Be(1))
			testingx.Expect(t, tags[0].ListDigest, testingx.Be(listDigest))
		})

		t.Run("unknown tag name", func(t *testing.T) {
			_, err := g.TagsOf(ctx, "nope")
			unknown := &content.ErrTagUnknown{}
			testingx.Expect(t, errors.As(err, &unknown), testingx.Be(true))
		})
	})
}

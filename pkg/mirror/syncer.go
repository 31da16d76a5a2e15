package mirror

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-courier/logr"
	"golang.org/x/sync/errgroup"

	manifestv1 "github.com/octohelm/mirrorkit/pkg/apis/manifest/v1"
	"github.com/octohelm/mirrorkit/pkg/content"
	"github.com/octohelm/mirrorkit/pkg/graph"
	"github.com/octohelm/mirrorkit/pkg/remote"
)

// Syncer mirrors one upstream repository into the local graph, bottom-up:
// blobs first, then manifests, then manifest lists, then tags.
type Syncer struct {
	// Upstream repository name
	Name string `flag:",omitzero"`
	// Tag glob patterns to sync, all tags when empty
	Tags []string `flag:",omitzero"`
	// Parallel blob fetches per manifest
	Concurrency int `flag:",omitzero"`

	Client *remote.Client
	Graph  *graph.Graph
	Store  content.Store
}

func (s *Syncer) SetDefaults() {
	if s.Concurrency == 0 {
		s.Concurrency = 4
	}
}

// Result records the outcome per tag unit. One failing tag never stops its
// siblings, except when the remote rejects our credentials outright.
type Result struct {
	Synced []string
	Failed map[string]error
}

func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	name, err := remote.NamespacedName(s.Name)
	if err != nil {
		return nil, err
	}

	filter, err := NewTagFilter(s.Tags)
	if err != nil {
		return nil, err
	}

	tagList, err := s.Client.Tags(ctx, name)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Failed: map[string]error{},
	}

	l := logr.FromContext(ctx).WithValues(slog.String("repository", name))

	for _, tag := range tagList.Tags {
		if !filter.Match(tag) {
			continue
		}

		if err := s.syncTag(ctx, name, tag); err != nil {
			failed := &remote.ErrAuthenticationFailed{}
			if errors.As(err, &failed) {
				return result, err
			}

			l.WithValues(slog.String("tag", tag)).Warn(err)
			result.Failed[tag] = err
			continue
		}

		l.WithValues(slog.String("tag", tag)).Info("synced")
		result.Synced = append(result.Synced, tag)
	}

	return result, nil
}

func (s *Syncer) syncTag(ctx context.Context, name string, tag string) error {
	payload, err := s.Client.FetchManifest(ctx, name, tag)
	if err != nil {
		return err
	}

	raw, dgst, err := payload.Payload()
	if err != nil {
		return err
	}

	list, ok := payload.Manifest.(*manifestv1.DockerManifestList)
	if !ok {
		if err := s.syncManifest(ctx, name, payload); err != nil {
			return err
		}
		_, err := s.Graph.Tag(ctx, tag, dgst)
		return err
	}

	for _, listed := range list.Manifests {
		entry, err := s.Client.FetchManifest(ctx, name, listed.Digest.String())
		if err != nil {
			return err
		}
		if err := s.syncManifest(ctx, name, entry); err != nil {
			return err
		}
	}

	if _, err := s.Graph.IngestManifestList(ctx, raw, dgst); err != nil {
		return err
	}

	_, err = s.Graph.TagList(ctx, tag, dgst)
	return err
}

func (s *Syncer) syncManifest(ctx context.Context, name string, payload *manifestv1.Payload) error {
	raw, dgst, err := payload.Payload()
	if err != nil {
		return err
	}

	descs := make([]manifestv1.Descriptor, 0)
	for desc := range payload.References() {
		descs = append(descs, desc)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.Concurrency)

	for _, desc := range descs {
		eg.Go(func() error {
			return s.fetchBlob(egCtx, name, desc)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	// row inserts stay on a single writer, only fetches run in parallel
	for _, desc := range descs {
		if _, err := s.Graph.IngestBlob(ctx, desc); err != nil {
			return err
		}
	}

	_, err = s.Graph.IngestManifest(ctx, raw, dgst, payload.Type())
	return err
}

func (s *Syncer) fetchBlob(ctx context.Context, name string, desc manifestv1.Descriptor) error {
	if _, err := s.Store.Stat(ctx, desc.Digest); err == nil {
		return nil
	}

	r, err := s.Client.FetchBlob(ctx, name, desc.Digest)
	if err != nil {
		return err
	}
	defer r.Close()

	_, err = s.Store.Put(ctx, desc, r)
	return err
}
